// Package content implements the read-only content collaborators used by the
// assist tools on top of the platform's PostgreSQL schema.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"content-assist/internal/domain"
)

const (
	statusPublished = "published"
	defaultLimit    = 20
)

// ErrNotFound is returned by FindByID when no content has the requested id.
var ErrNotFound = errors.New("content: not found")

var columns = []string{"id", "title", "description", "tags", "status", "created_at"}

// DBInterface defines the minimal pgx surface needed by the repository.
// *pgxpool.Pool and pgxmock pools satisfy it.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads the content table.
type Repository struct {
	db DBInterface
}

func NewRepository(db DBInterface) (*Repository, error) {
	if db == nil {
		return nil, errors.New("content: db must not be nil")
	}
	return &Repository{db: db}, nil
}

// FindByID loads a single content row regardless of status.
func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Content, error) {
	query, args, err := squirrel.Select(columns...).
		From("content").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return domain.Content{}, fmt.Errorf("content: building select query: %w", err)
	}
	var c domain.Content
	if err := pgxscan.Get(ctx, r.db, &c, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return domain.Content{}, fmt.Errorf("content %d: %w", id, ErrNotFound)
		}
		return domain.Content{}, fmt.Errorf("content: scanning content %d: %w", id, err)
	}
	return c, nil
}

// Search returns published content, newest first. A non-blank query is
// matched with PostgreSQL full-text search over title and description; tags
// match when they overlap the content's tags.
func (r *Repository) Search(ctx context.Context, query string, tags []string, limit, offset int) ([]domain.Content, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	qb := squirrel.Select(columns...).
		From("content").
		Where(squirrel.Eq{"status": statusPublished})
	if q := strings.TrimSpace(query); q != "" {
		qb = qb.Where("to_tsvector('english', title || ' ' || description) @@ plainto_tsquery('english', ?)", q)
	}
	if len(tags) > 0 {
		qb = qb.Where("tags && ?", tags)
	}
	sql, args, err := qb.
		OrderBy("created_at DESC").
		Limit(uint64(limit)).   // #nosec G115 -- limit is positive
		Offset(uint64(offset)). // #nosec G115 -- offset is non-negative
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("content: building search query: %w", err)
	}

	var items []domain.Content
	if err := pgxscan.Select(ctx, r.db, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("content: scanning search results: %w", err)
	}
	return items, nil
}
