// Package redis provides a Redis-backed checkpoint saver.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phantomlabs/beastmode/store"
)

// Saver implements store.Saver on Redis, one key per thread.
type Saver struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.Saver = (*Saver)(nil)

// Options configures the Redis saver.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "beastmode:"
	TTL      time.Duration // checkpoint expiry, default 0 (none)
}

// NewSaver creates a Redis client and the saver on top of it.
func NewSaver(opts Options) *Saver {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewSaverWithClient(client, opts.Prefix, opts.TTL)
}

// NewSaverWithClient wraps an existing client; useful for tests with miniredis.
func NewSaverWithClient(client *redis.Client, prefix string, ttl time.Duration) *Saver {
	if prefix == "" {
		prefix = "beastmode:"
	}
	return &Saver{client: client, prefix: prefix, ttl: ttl}
}

func (s *Saver) key(threadID string) string {
	return fmt.Sprintf("%scheckpoint:%s", s.prefix, threadID)
}

// Put stores the checkpoint under the thread's key.
func (s *Saver) Put(ctx context.Context, cp *store.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, s.key(cp.ThreadID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Get loads the checkpoint for the thread.
func (s *Saver) Get(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint for the thread.
func (s *Saver) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
