package unlocks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/infrastructure/config"
	"github.com/payhole/payments/internal/infrastructure/database"
	"github.com/payhole/payments/internal/infrastructure/ledger"
	"github.com/payhole/payments/internal/shared/logger"
)

// NewCommand returns the administrative "unlocks" command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlocks",
		Short: "Inspect and administer the unlock ledger",
	}

	cmd.AddCommand(
		newListCommand(),
		newClearCommand(),
		newWatchCommand(),
	)

	return cmd
}

// session holds what a single CLI invocation needs from the configured backends.
type session struct {
	cfg     *config.Config
	log     logger.Interface
	redis   *redis.Client
	ledger  unlock.Ledger
	closers []func() error
}

func openSession(cmd *cobra.Command) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries command output
	if cfg.Logger.OutputPath == "" || strings.EqualFold(cfg.Logger.OutputPath, "stdout") {
		cfg.Logger.OutputPath = "stderr"
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &session{
		cfg: cfg,
		log: logger.NewLogger().Named("cli"),
	}

	if cfg.Redis.Enabled() {
		client, err := database.NewRedisClient(cmd.Context(), cfg.Redis, s.log)
		if err != nil {
			return nil, err
		}
		s.redis = client
		s.closers = append(s.closers, client.Close)
	}

	store, closeLedger, err := ledger.New(cfg.Ledger, s.redis, s.log)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.ledger = store
	s.closers = append(s.closers, closeLedger)

	return s, nil
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
