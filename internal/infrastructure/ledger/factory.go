package ledger

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/payhole/payments/internal/domain/unlock"
	sharedConfig "github.com/payhole/payments/internal/shared/config"
	"github.com/payhole/payments/internal/shared/logger"
)

// New builds the ledger selected by cfg.Driver. The returned close function
// releases backend resources and is never nil.
func New(cfg sharedConfig.LedgerConfig, redisClient *redis.Client, log logger.Interface, opts ...Option) (unlock.Ledger, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", "file":
		log.Infow("using file unlock ledger", "path", cfg.Path)
		return NewFileStore(cfg.Path, log, opts...), noop, nil

	case "sqlite":
		db, err := OpenSQLite(cfg.Path, log)
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		log.Infow("using sqlite unlock ledger", "path", cfg.Path)
		return NewSQLStore(db, log, opts...), sqlDB.Close, nil

	case "redis":
		if redisClient == nil {
			return nil, noop, fmt.Errorf("ledger driver redis requires redis.host to be configured")
		}
		log.Infow("using redis unlock ledger", "key", cfg.RedisKey)
		return NewRedisStore(redisClient, cfg.RedisKey, log, opts...), noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported ledger driver: %s", cfg.Driver)
	}
}
