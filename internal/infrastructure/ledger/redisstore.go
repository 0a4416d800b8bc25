package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/shared/logger"
)

// maxWatchRetries bounds optimistic-lock retries when another process
// modifies the ledger hash between WATCH and EXEC.
const maxWatchRetries = 5

// hashGetter is satisfied by both *redis.Client and *redis.Tx.
type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// RedisStore keeps the ledger in a single redis hash, one field per wallet.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
	logger logger.Interface
	mu     sync.Mutex
}

var _ unlock.Ledger = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed ledger stored under key.
func NewRedisStore(client *redis.Client, key string, log logger.Interface, opts ...Option) *RedisStore {
	o := applyOptions(opts)
	return &RedisStore{client: client, key: key, now: o.now, logger: log}
}

// Upsert runs a WATCH/MULTI transaction on the hash so createdAt survives
// concurrent writers in other processes.
func (s *RedisStore) Upsert(ctx context.Context, wallet, signature string, expiresAt time.Time) (*unlock.UnlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record *unlock.UnlockRecord
	txf := func(tx *redis.Tx) error {
		previous, err := s.read(ctx, tx, wallet)
		if err != nil {
			return err
		}

		record = unlock.Apply(previous, wallet, signature, expiresAt, s.now())
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode unlock record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, wallet, data)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return record.Clone(), nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			s.logger.Errorw("failed to upsert unlock record", "wallet", wallet, "error", err)
			return nil, fmt.Errorf("failed to upsert unlock record: %w", err)
		}
		s.logger.Debugw("unlock ledger changed during upsert, retrying", "wallet", wallet, "attempt", attempt+1)
	}

	return nil, fmt.Errorf("failed to upsert unlock record: concurrent modification of %s", s.key)
}

func (s *RedisStore) Get(ctx context.Context, wallet string) (*unlock.UnlockRecord, error) {
	return s.read(ctx, s.client, wallet)
}

func (s *RedisStore) All(ctx context.Context) ([]*unlock.UnlockRecord, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list unlock records: %w", err)
	}

	records := make([]*unlock.UnlockRecord, 0, len(values))
	for wallet, raw := range values {
		var rec unlock.UnlockRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode unlock record for %s: %w", wallet, err)
		}
		records = append(records, &rec)
	}

	unlock.SortByUpdatedDesc(records)
	return records, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear unlock records: %w", err)
	}
	s.logger.Infow("unlock ledger cleared", "key", s.key)
	return nil
}

func (s *RedisStore) read(ctx context.Context, c hashGetter, wallet string) (*unlock.UnlockRecord, error) {
	raw, err := c.HGet(ctx, s.key, wallet).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unlock record: %w", err)
	}

	var rec unlock.UnlockRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode unlock record for %s: %w", wallet, err)
	}
	return &rec, nil
}
