package domain

import (
	"maps"
	"time"
)

// RequestIDField is the answer key carrying the resolved request id.
const RequestIDField = "requestId"

// Answer is the structured assist result returned to callers.
type Answer map[string]any

// WithRequestID returns a copy of a with the request id attached. The
// receiver is never modified.
func (a Answer) WithRequestID(id string) Answer {
	out := make(Answer, len(a)+1)
	maps.Copy(out, a)
	out[RequestIDField] = id
	return out
}

// CachedResponse is the idempotency record stored per request id.
type CachedResponse struct {
	Body     Answer    `json:"body"`
	StoredAt time.Time `json:"storedAt"`
}
