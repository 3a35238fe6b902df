// Package redis is the shared cache.Store used when several instances serve
// assist traffic.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"content-assist/internal/cache"
)

// Interface is the subset of the go-redis client used by Store.
type Interface interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

type Store struct {
	client Interface
}

func New(client Interface) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis: client must not be nil")
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, cache.ErrMiss
		}
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}
	return raw, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("redis: ttl must be positive")
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}
