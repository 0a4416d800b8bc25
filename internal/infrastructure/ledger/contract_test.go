package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhole/payments/internal/domain/unlock"
)

// stepClock returns base, base+1s, base+2s, ... on successive calls.
type stepClock struct {
	mu   sync.Mutex
	base time.Time
	n    int
}

func newStepClock() *stepClock {
	return &stepClock{base: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * time.Second)
	c.n++
	return t
}

type ledgerFactory func(t *testing.T, clock *stepClock) unlock.Ledger

// runLedgerContract exercises the behaviour every backend must share.
func runLedgerContract(t *testing.T, newLedger ledgerFactory) {
	ctx := context.Background()
	expiry1 := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry2 := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("new wallet gets createdAt equal to updatedAt", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		rec, err := l.Upsert(ctx, "wallet-abc", "sig-123", expiry1)
		require.NoError(t, err)

		assert.Equal(t, "wallet-abc", rec.Wallet)
		assert.Equal(t, "sig-123", rec.Signature)
		assert.True(t, rec.ExpiresAt.Equal(expiry1))
		assert.True(t, rec.CreatedAt.Equal(rec.UpdatedAt))

		stored, err := l.Get(ctx, "wallet-abc")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "sig-123", stored.Signature)
	})

	t.Run("second upsert preserves createdAt", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		first, err := l.Upsert(ctx, "wallet-xyz", "sig-initial", expiry1)
		require.NoError(t, err)
		second, err := l.Upsert(ctx, "wallet-xyz", "sig-updated", expiry2)
		require.NoError(t, err)

		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
		assert.Equal(t, "sig-updated", second.Signature)
		assert.True(t, second.ExpiresAt.Equal(expiry2))

		all, err := l.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("get missing wallet returns nil", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		rec, err := l.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("all is ordered most recently updated first", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		for _, w := range []string{"w1", "w2", "w3"} {
			_, err := l.Upsert(ctx, w, "sig-"+w, expiry1)
			require.NoError(t, err)
		}
		_, err := l.Upsert(ctx, "w1", "sig-w1b", expiry2)
		require.NoError(t, err)

		all, err := l.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"w1", "w3", "w2"}, []string{all[0].Wallet, all[1].Wallet, all[2].Wallet})
	})

	t.Run("clear removes every record", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		_, err := l.Upsert(ctx, "w1", "s1", expiry1)
		require.NoError(t, err)
		_, err = l.Upsert(ctx, "w2", "s2", expiry1)
		require.NoError(t, err)

		require.NoError(t, l.Clear(ctx))

		all, err := l.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		rec, err := l.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		rec, err := l.Upsert(ctx, "w1", "s1", expiry1)
		require.NoError(t, err)
		rec.Signature = "tampered"

		stored, err := l.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, "s1", stored.Signature)
	})

	t.Run("concurrent upserts are all kept", func(t *testing.T) {
		l := newLedger(t, newStepClock())

		const writers = 20
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := l.Upsert(ctx, fmt.Sprintf("wallet-%02d", i), fmt.Sprintf("sig-%02d", i), expiry1)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := l.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, writers)
	})
}
