package driven

import (
	"context"
	"time"
)

// IndexRecord is the persisted form of a built index: per-chunk vectors
// plus the identity needed to validate the record on reload. A record
// built under a different embedding model, chunking configuration or
// document content must be rejected, never silently served.
type IndexRecord struct {
	// DocumentID is the owning document.
	DocumentID string

	// ModelName is the embedding model the vectors were produced with.
	ModelName string

	// Dimensions is the vector size.
	Dimensions int

	// ChunkingFingerprint identifies the chunking configuration the
	// document was split with.
	ChunkingFingerprint string

	// ContentHash is the hash of the document content the index was
	// built from.
	ContentHash string

	// BuiltAt is when the index was built.
	BuiltAt time.Time

	// Vectors maps chunk ID to its embedding.
	Vectors map[string][]float32
}

// IndexArchive persists built indexes across restarts.
type IndexArchive interface {
	// SaveIndex stores or replaces the record for its document.
	SaveIndex(ctx context.Context, record IndexRecord) error

	// LoadIndex retrieves the record for a document.
	// Returns domain.ErrNotFound when absent.
	LoadIndex(ctx context.Context, documentID string) (IndexRecord, error)

	// DeleteIndex removes the record for a document.
	DeleteIndex(ctx context.Context, documentID string) error
}
