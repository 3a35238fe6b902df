package domain

import "time"

// Content is a published piece of platform content as exposed to the assist
// tools.
type Content struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Tags        []string  `db:"tags"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}
