// Package cache provides the idempotency store for assist answers. The
// RequestCache owns key namespacing and encoding; backends in the sub-packages
// only move bytes.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content-assist/internal/domain"
)

// KeyPrefix namespaces assist entries away from the feed, search and content
// caches that may share the same store.
const KeyPrefix = "ai:assist:"

// ErrMiss is returned by a Store when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented key-value store with per-entry TTL. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key returns the store key for a request id.
func Key(requestID string) string {
	return KeyPrefix + requestID
}

// RequestCache stores one CachedResponse per request id.
type RequestCache struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRequestCache(store Store, logger *slog.Logger) (*RequestCache, error) {
	if store == nil {
		return nil, errors.New("cache: store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestCache{store: store, logger: logger, now: time.Now}, nil
}

// Get returns the cached body for requestID. Store failures and undecodable
// entries are reported as a miss so callers fall through to the model.
func (c *RequestCache) Get(ctx context.Context, requestID string) (domain.Answer, bool) {
	key := Key(requestID)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("assist cache lookup failed", "cache_key", key, "err", err)
		}
		return nil, false
	}

	entry, err := decodeEntry(raw)
	if err != nil || entry.Body == nil {
		c.logger.Warn("assist cache entry undecodable", "cache_key", key, "err", err)
		return nil, false
	}
	c.logger.Debug("assist cache hit", "cache_key", key, "stored_at", entry.StoredAt)
	return entry.Body, true
}

// Set overwrites the entry for requestID.
func (c *RequestCache) Set(ctx context.Context, requestID string, body domain.Answer, ttl time.Duration) error {
	raw, err := json.Marshal(domain.CachedResponse{Body: body, StoredAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}
	if err := c.store.Set(ctx, Key(requestID), raw, ttl); err != nil {
		return fmt.Errorf("cache: set %q: %w", Key(requestID), err)
	}
	return nil
}

// decodeEntry keeps numbers as json.Number so a cached body re-encodes to the
// same text the model produced.
func decodeEntry(raw []byte) (domain.CachedResponse, error) {
	var entry domain.CachedResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&entry); err != nil {
		return domain.CachedResponse{}, err
	}
	return entry, nil
}
