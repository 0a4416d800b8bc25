package unlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApply_NewRecord(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := Apply(nil, "W1", "S1", now.Add(ValidityPeriod), now)

	assert.Equal(t, "W1", rec.Wallet)
	assert.Equal(t, "S1", rec.Signature)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.Equal(t, now.Add(ValidityPeriod), rec.ExpiresAt)
}

func TestApply_PreservesCreatedAt(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	existing := Apply(nil, "W1", "S1", first.Add(ValidityPeriod), first)

	rec := Apply(existing, "W1", "S2", second.Add(ValidityPeriod), second)

	assert.Equal(t, first, rec.CreatedAt)
	assert.Equal(t, second, rec.UpdatedAt)
	assert.Equal(t, "S2", rec.Signature)
	assert.Equal(t, second.Add(ValidityPeriod), rec.ExpiresAt)
}

func TestApply_UpdatedAtStrictlyIncreasesWithFrozenClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := Apply(nil, "W1", "S1", now.Add(ValidityPeriod), now)

	rec := Apply(existing, "W1", "S2", now.Add(ValidityPeriod), now)

	assert.True(t, rec.UpdatedAt.After(existing.UpdatedAt))
	assert.Equal(t, existing.CreatedAt, rec.CreatedAt)
}

func TestSortByUpdatedDesc(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*UnlockRecord{
		{Wallet: "old", UpdatedAt: base},
		{Wallet: "new", UpdatedAt: base.Add(2 * time.Minute)},
		{Wallet: "b", UpdatedAt: base.Add(time.Minute)},
		{Wallet: "a", UpdatedAt: base.Add(time.Minute)},
	}

	SortByUpdatedDesc(records)

	var got []string
	for _, r := range records {
		got = append(got, r.Wallet)
	}
	assert.Equal(t, []string{"new", "a", "b", "old"}, got)
}

func TestUnlockRecord_Active(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &UnlockRecord{ExpiresAt: now}

	assert.False(t, rec.Active(now))
	assert.True(t, rec.Active(now.Add(-time.Nanosecond)))
}

func TestUnlockRecord_DaysRemaining(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"full period", now.Add(ValidityPeriod), 30},
		{"partial day rounds up", now.Add(4*24*time.Hour + time.Minute), 5},
		{"exactly five days", now.Add(5 * 24 * time.Hour), 5},
		{"one second left", now.Add(time.Second), 1},
		{"expires now", now, 0},
		{"expired in the past", now.Add(-48 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &UnlockRecord{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, rec.DaysRemaining(now))
		})
	}
}
