// Package sqlite is a file-backed cache.Store for local CLI runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"content-assist/internal/cache"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT NOT NULL PRIMARY KEY,
	value BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	ttl_seconds INTEGER NOT NULL
);
`

// Stats reports cache usage for the current process.
type Stats struct {
	Entries int64
	Hits    int64
	Misses  int64
}

type Store struct {
	db     *sql.DB
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

// New opens (and migrates) the cache database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open cache db: %w", err)
	}
	if _, err := db.Exec(createCacheTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate cache db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value      []byte
		createdAt  int64
		ttlSeconds int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, created_at, ttl_seconds FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &createdAt, &ttlSeconds)
	if err != nil {
		s.misses.Add(1)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrMiss
		}
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	if expired(s.now(), createdAt, ttlSeconds) {
		s.misses.Add(1)
		return nil, cache.ErrMiss
	}
	s.hits.Add(1)
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Second {
		return errors.New("sqlite: ttl must be at least one second")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, value, created_at, ttl_seconds) VALUES (?, ?, ?, ?)`,
		key, value, s.now().Unix(), int64(ttl/time.Second),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set %q: %w", key, err)
	}
	return nil
}

// Stats returns the entry count and this process's hit/miss counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("sqlite: stats: %w", err)
	}
	return Stats{Entries: count, Hits: s.hits.Load(), Misses: s.misses.Load()}, nil
}

// Clear removes entries; with expiredOnly only those past their TTL. It
// returns the number of rows removed.
func (s *Store) Clear(ctx context.Context, expiredOnly bool) (int64, error) {
	query := `DELETE FROM cache_entries`
	var args []any
	if expiredOnly {
		query += ` WHERE ? - created_at >= ttl_seconds`
		args = append(args, s.now().Unix())
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: clear: %w", err)
	}
	return n, nil
}

// expired reports whether an entry written at createdAt (unix seconds) has
// outlived its TTL.
func expired(now time.Time, createdAt, ttlSeconds int64) bool {
	return now.Unix()-createdAt >= ttlSeconds
}

func (s *Store) Close() error {
	return s.db.Close()
}
