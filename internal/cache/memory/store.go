// Package memory is an in-process cache.Store for single-instance and local
// runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"content-assist/internal/cache"
)

const (
	defaultMaxCost = 64 << 20
	numCounters    = 1e5
	bufferItems    = 64
)

type Store struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a Store bounded to maxCost bytes of cached values. A
// non-positive maxCost selects 64 MiB.
func New(maxCost int64) (*Store, error) {
	if maxCost <= 0 {
		maxCost = defaultMaxCost
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: new cache: %w", err)
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

// Set blocks until the write is applied so it is visible to the next Get.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("memory: ttl must be positive")
	}
	if !s.c.SetWithTTL(key, value, int64(len(value)), ttl) {
		return errors.New("memory: write dropped")
	}
	s.c.Wait()
	return nil
}

func (s *Store) Close() {
	s.c.Close()
}
