// Package unlock holds the per-wallet unlock record and the ledger contract
// every storage backend must satisfy.
package unlock

import (
	"math"
	"time"
)

// ValidityPeriod is how long a verified payment keeps a wallet unlocked.
const ValidityPeriod = 30 * 24 * time.Hour

// UnlockRecord is the ledger entry for one wallet.
type UnlockRecord struct {
	Wallet    string    `json:"wallet"`
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns an independent copy safe to hand to callers.
func (r *UnlockRecord) Clone() *UnlockRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Active reports whether the unlock window is still open at now.
func (r *UnlockRecord) Active(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// DaysRemaining rounds the time left in the unlock window up to whole days,
// never returning a negative value.
func (r *UnlockRecord) DaysRemaining(now time.Time) int {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// Apply returns the record that results from a successful verification at now.
// existing may be nil. createdAt is carried over from existing and updatedAt
// always moves forward, even if the clock does not.
func Apply(existing *UnlockRecord, wallet, signature string, expiresAt, now time.Time) *UnlockRecord {
	now = now.UTC()
	rec := &UnlockRecord{
		Wallet:    wallet,
		Signature: signature,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
		if !now.After(existing.UpdatedAt) {
			rec.UpdatedAt = existing.UpdatedAt.Add(time.Nanosecond)
		}
	}
	return rec
}
