package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"

	"github.com/payhole/payments/internal/shared/config"
	"github.com/payhole/payments/internal/shared/logger"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient connects to the configured redis server and verifies the
// connection with a ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log logger.Interface) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}

	log.Infow("redis connection established", "addr", cfg.GetAddr(), "db", cfg.DB)
	return client, nil
}

// NewGormLogger routes gorm's output through the application logger.
func NewGormLogger(log logger.Interface) gormlogger.Interface {
	return gormlogger.New(
		&filteredLogger{log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// filteredLogger filters out sqlite pragma and schema introspection noise
type filteredLogger struct {
	log logger.Interface
}

func (l *filteredLogger) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "sqlite_master") || strings.Contains(lower, "pragma ") {
		return
	}

	switch {
	case strings.Contains(lower, "slow sql"):
		l.log.Warnw("slow query", "details", msg)
	case strings.Contains(lower, "error"):
		l.log.Errorw("database error", "details", msg)
	default:
		l.log.Debugw("database query", "details", msg)
	}
}
