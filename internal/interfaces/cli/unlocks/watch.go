package unlocks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/infrastructure/pubsub"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow unlock grants published on redis",
		Long:  `Subscribe to the redis unlock channel and print one JSON line per granted unlock until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.redis == nil {
				return errors.New("watch requires redis.host to be configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bus := pubsub.NewRedisUnlockEventBus(s.redis, s.cfg.Redis.UnlockChannel, s.log)
			err = bus.Subscribe(ctx, printEvents(cmd.OutOrStdout()))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func printEvents(w io.Writer) pubsub.UnlockEventHandler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, event notifier.UnlockEvent) {
		_ = enc.Encode(event)
	}
}
