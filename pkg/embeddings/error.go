package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrUnavailable marks transient provider failures (rate limits, 5xx,
	// network errors) that are safe to retry. It is always joined with
	// ErrEmbedding.
	ErrUnavailable = errors.New("embedding provider unavailable")
)
