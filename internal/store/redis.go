package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const updateMaxRetries = 5

// RedisStore implements Store on a Redis client. Optimistic updates use
// WATCH-guarded transactions so overlapping cycles cannot clobber each
// other's counter increments.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger.Named("store")}
}

// GetJSON loads and unmarshals the value at key.
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil // miss
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// PutJSON marshals and stores v at key with no expiry.
func (s *RedisStore) PutJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// UpdateJSON applies a WATCH-guarded read-modify-write with bounded retries.
func (s *RedisStore) UpdateJSON(ctx context.Context, key string, dest interface{}, apply func() error) error {
	txf := func(tx *redis.Tx) error {
		resetDest(dest)

		data, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}
		if err == nil {
			if err := json.Unmarshal([]byte(data), dest); err != nil {
				return fmt.Errorf("failed to unmarshal %s: %w", key, err)
			}
		}

		if err := apply(); err != nil {
			return err
		}

		out, err := json.Marshal(dest)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < updateMaxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			s.logger.Debug("optimistic update conflict, retrying",
				zap.String("key", key),
				zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrConflict, key, updateMaxRetries)
}
