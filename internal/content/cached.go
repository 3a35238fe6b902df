package content

import (
	"context"
	"crypto/md5" // #nosec G501 -- cache key derivation only
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"content-assist/internal/cache"
	"content-assist/internal/domain"
)

const (
	contentKeyPrefix = "content:"
	searchKeyPrefix  = "search:"

	DefaultContentTTL = 5 * time.Minute
	DefaultSearchTTL  = time.Minute
)

// Reader is the read surface shared by Repository and CachedRepository.
type Reader interface {
	FindByID(ctx context.Context, id int64) (domain.Content, error)
	Search(ctx context.Context, query string, tags []string, limit, offset int) ([]domain.Content, error)
}

// CachedRepository reads through a cache.Store in front of another Reader.
// Store failures never fail a read; not-found results are not cached.
type CachedRepository struct {
	next       Reader
	store      cache.Store
	logger     *slog.Logger
	contentTTL time.Duration
	searchTTL  time.Duration
}

func NewCachedRepository(next Reader, store cache.Store, logger *slog.Logger) (*CachedRepository, error) {
	if next == nil {
		return nil, errors.New("content: reader must not be nil")
	}
	if store == nil {
		return nil, errors.New("content: store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{
		next:       next,
		store:      store,
		logger:     logger,
		contentTTL: DefaultContentTTL,
		searchTTL:  DefaultSearchTTL,
	}, nil
}

func contentKey(id int64) string {
	return contentKeyPrefix + strconv.FormatInt(id, 10)
}

func searchKey(query string, tags []string, limit, offset int) string {
	raw, _ := json.Marshal(struct {
		Q      string   `json:"q"`
		Tags   []string `json:"tags"`
		Limit  int      `json:"limit"`
		Offset int      `json:"offset"`
	}{query, tags, limit, offset})
	sum := md5.Sum(raw) // #nosec G401
	return searchKeyPrefix + hex.EncodeToString(sum[:])
}

func (r *CachedRepository) FindByID(ctx context.Context, id int64) (domain.Content, error) {
	key := contentKey(id)
	var c domain.Content
	if r.load(ctx, key, &c) {
		return c, nil
	}
	c, err := r.next.FindByID(ctx, id)
	if err != nil {
		return domain.Content{}, err
	}
	r.save(ctx, key, c, r.contentTTL)
	return c, nil
}

func (r *CachedRepository) Search(ctx context.Context, query string, tags []string, limit, offset int) ([]domain.Content, error) {
	key := searchKey(query, tags, limit, offset)
	var items []domain.Content
	if r.load(ctx, key, &items) {
		return items, nil
	}
	items, err := r.next.Search(ctx, query, tags, limit, offset)
	if err != nil {
		return nil, err
	}
	r.save(ctx, key, items, r.searchTTL)
	return items, nil
}

func (r *CachedRepository) load(ctx context.Context, key string, dst any) bool {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.logger.Warn("content cache lookup failed", "cache_key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.logger.Warn("content cache entry undecodable", "cache_key", key, "err", err)
		return false
	}
	return true
}

func (r *CachedRepository) save(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = r.store.Set(ctx, key, raw, ttl)
	}
	if err != nil {
		r.logger.Warn("content cache write failed", "cache_key", key, "err", err)
	}
}
