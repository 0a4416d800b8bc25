package notifier

import (
	"context"
	"time"
)

// UnlockEvent announces that a wallet's unlock was granted or renewed.
type UnlockEvent struct {
	Wallet    string    `json:"wallet"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ClientIP  string    `json:"clientIp,omitempty"`
}

// UnlockNotifier delivers unlock events to downstream consumers. Delivery is
// best effort; callers log failures and never roll back the unlock.
type UnlockNotifier interface {
	NotifyUnlock(ctx context.Context, event UnlockEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) NotifyUnlock(context.Context, UnlockEvent) error { return nil }
