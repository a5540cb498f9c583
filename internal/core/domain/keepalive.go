package domain

import "time"

// KeepaliveTick records the outcome of one warm-up tick.
// Failures are logged, never raised; the next tick still fires on
// schedule.
type KeepaliveTick struct {
	// StartedAt is when the tick began.
	StartedAt time.Time

	// EndedAt is when the tick finished.
	EndedAt time.Time

	// EmbeddingOK reports whether the embedding capability responded.
	EmbeddingOK bool

	// GenerationOK reports whether the generation capability responded.
	GenerationOK bool

	// IndexOK reports whether the trivial index query succeeded.
	IndexOK bool

	// Err holds the first failure message, if any.
	Err string
}

// Healthy reports whether every probe in the tick succeeded.
func (t KeepaliveTick) Healthy() bool {
	return t.EmbeddingOK && t.GenerationOK && t.IndexOK
}
