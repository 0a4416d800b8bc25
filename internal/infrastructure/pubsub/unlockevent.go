package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/shared/logger"
)

// DefaultUnlockChannel is the redis channel unlock events are published on.
const DefaultUnlockChannel = "payhole:unlocks:granted"

// UnlockEventHandler handles a single event received from the bus.
type UnlockEventHandler func(ctx context.Context, event notifier.UnlockEvent)

// RedisUnlockEventBus publishes unlock events over redis Pub/Sub so other
// instances and operators can follow grants as they happen.
type RedisUnlockEventBus struct {
	client  *redis.Client
	channel string
	logger  logger.Interface
}

var _ notifier.UnlockNotifier = (*RedisUnlockEventBus)(nil)

func NewRedisUnlockEventBus(client *redis.Client, channel string, logger logger.Interface) *RedisUnlockEventBus {
	if channel == "" {
		channel = DefaultUnlockChannel
	}
	return &RedisUnlockEventBus{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// NotifyUnlock publishes the event as JSON.
func (b *RedisUnlockEventBus) NotifyUnlock(ctx context.Context, event notifier.UnlockEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Errorw("failed to publish unlock event",
			"channel", b.channel,
			"wallet", event.Wallet,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("unlock event published",
		"channel", b.channel,
		"wallet", event.Wallet,
	)
	return nil
}

// Subscribe blocks, calling handler for every event until ctx is done.
// Handlers run on the receiving goroutine so events are seen in order.
func (b *RedisUnlockEventBus) Subscribe(ctx context.Context, handler UnlockEventHandler) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to unlock events", "channel", b.channel)

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("unlock event subscriber stopped", "reason", ctx.Err())
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("unlock event channel closed")
				return nil
			}

			var event notifier.UnlockEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal unlock event",
					"payload", msg.Payload,
					"error", err,
				)
				continue
			}

			handler(ctx, event)
		}
	}
}
