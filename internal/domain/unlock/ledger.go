package unlock

import (
	"context"
	"sort"
	"time"
)

// Ledger stores at most one UnlockRecord per wallet.
//
// Implementations serialize mutations so that concurrent upserts never lose
// each other's writes, and return copies so readers never observe a record
// that is being modified.
type Ledger interface {
	// Upsert creates or replaces the record for wallet. createdAt is preserved
	// across replacements.
	Upsert(ctx context.Context, wallet, signature string, expiresAt time.Time) (*UnlockRecord, error)
	// Get returns nil, nil when the wallet has no record.
	Get(ctx context.Context, wallet string) (*UnlockRecord, error)
	// All returns every record, most recently updated first.
	All(ctx context.Context) ([]*UnlockRecord, error)
	// Clear removes every record.
	Clear(ctx context.Context) error
}

// SortByUpdatedDesc orders records most recently updated first, breaking ties
// by wallet so the output is deterministic.
func SortByUpdatedDesc(records []*UnlockRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].Wallet < records[j].Wallet
		}
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
}
