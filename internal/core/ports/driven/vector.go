package driven

import (
	"context"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}

// IndexSnapshot is an immutable per-document vector index.
// Snapshots are built once, published whole, and are safe for concurrent
// reads without locking. Mutation happens only by building and publishing
// a replacement snapshot.
type IndexSnapshot interface {
	// Search finds the k nearest chunks to the query vector.
	// Ranking is deterministic for a fixed snapshot and query.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// DocumentID returns the owning document.
	DocumentID() string

	// ModelName returns the embedding model the snapshot was built with.
	ModelName() string

	// Dimensions returns the vector size the snapshot was built with.
	Dimensions() int

	// Size returns the number of indexed chunks.
	Size() int
}

// VectorIndexFactory builds index snapshots.
// A build is all-or-nothing: if any chunk is missing a vector the build
// fails and no partially indexed document is ever published.
type VectorIndexFactory interface {
	// Build constructs a snapshot from chunks and their vectors, parallel
	// slices of equal length.
	Build(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32, modelName string) (IndexSnapshot, error)
}
