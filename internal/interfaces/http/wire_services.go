package http

import (
	"context"
	"fmt"

	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/infrastructure/auth"
	"github.com/payhole/payments/internal/infrastructure/blockchain"
	"github.com/payhole/payments/internal/infrastructure/database"
	"github.com/payhole/payments/internal/infrastructure/ledger"
	"github.com/payhole/payments/internal/infrastructure/notification"
	"github.com/payhole/payments/internal/infrastructure/pubsub"
	"github.com/payhole/payments/internal/infrastructure/ratelimit"
)

// initInfrastructure creates redis (when configured), the unlock ledger, the
// chain verifier and the credential service.
func (c *Container) initInfrastructure(ctx context.Context, o containerOptions) error {
	cfg := c.cfg
	log := c.log

	switch {
	case o.redisClient != nil:
		c.redis = o.redisClient
	case cfg.Redis.Enabled():
		client, err := database.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		c.redis = client
		c.addCloser("redis", client.Close)
	}

	store, closeStore, err := ledger.New(cfg.Ledger, c.redis, log.Named("ledger"))
	if err != nil {
		return fmt.Errorf("failed to initialize unlock ledger: %w", err)
	}
	c.ledger = store
	c.addCloser("ledger", closeStore)

	verifier, err := blockchain.NewSolanaVerifier(cfg.Solana, o.httpClient, log.Named("solana"))
	if err != nil {
		return fmt.Errorf("failed to initialize chain verifier: %w", err)
	}
	c.verifier = verifier

	tokens, err := auth.NewUnlockTokenService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize credential service: %w", err)
	}
	c.tokens = tokens

	if c.redis != nil {
		c.rateLimiter = ratelimit.NewRedisRateLimiter(c.redis, "pay", ratelimit.Config{
			Limit:  cfg.RateLimit.PayLimit,
			Window: cfg.RateLimit.Window,
		})
	}

	return nil
}

// initNotifiers assembles every configured unlock notifier. With none
// configured notification is disabled.
func (c *Container) initNotifiers(o containerOptions) error {
	cfg := c.cfg
	log := c.log.Named("notify")

	var targets []notification.Named

	if cfg.Webhook.UnlockURL != "" {
		targets = append(targets, notification.Named{
			Name:     "webhook",
			Notifier: notification.NewWebhookNotifier(cfg.Webhook.UnlockURL, cfg.Webhook.Timeout, o.httpClient, log),
		})
	}

	if cfg.NATS.URL != "" {
		nc, err := notification.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.Subject, log)
		if err != nil {
			return err
		}
		c.addCloser("nats", func() error {
			nc.Close()
			return nil
		})
		targets = append(targets, notification.Named{Name: "nats", Notifier: nc})
	}

	if c.redis != nil && cfg.Redis.UnlockChannel != "" {
		targets = append(targets, notification.Named{
			Name:     "redis",
			Notifier: pubsub.NewRedisUnlockEventBus(c.redis, cfg.Redis.UnlockChannel, log),
		})
	}

	if len(targets) == 0 {
		c.notifier = notifier.Nop{}
		log.Infow("unlock notifications disabled")
		return nil
	}

	c.notifier = notification.NewMultiNotifier(targets...)
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
	}
	log.Infow("unlock notifications enabled", "targets", names)
	return nil
}
