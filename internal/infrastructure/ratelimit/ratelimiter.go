package ratelimit

import (
	"context"
	"time"
)

// Config is a single sliding window: at most Limit requests per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the config actually limits anything.
func (c Config) Enabled() bool {
	return c.Limit > 0 && c.Window > 0
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
