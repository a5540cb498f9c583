// Package memory provides an exact in-memory vector index.
//
// Two reports yield a few hundred chunks at most, so brute-force cosine
// scan is both faster and simpler than an approximate structure while
// keeping ranking fully deterministic.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// Ensure the adapter implements the ports.
var (
	_ driven.VectorIndexFactory = (*Factory)(nil)
	_ driven.IndexSnapshot      = (*Snapshot)(nil)
)

// Factory builds immutable in-memory index snapshots.
type Factory struct{}

// NewFactory creates an in-memory index factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Build constructs a snapshot from chunks and their vectors.
// The build is all-or-nothing: a missing or mis-sized vector rejects the
// whole build so a partially indexed document is never published.
func (f *Factory) Build(
	_ context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32, modelName string,
) (driven.IndexSnapshot, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrEmbeddingUnavailable, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s has no chunks to index", domain.ErrEmbeddingUnavailable, doc.ID)
	}

	dims := len(vectors[0])
	entries := make([]entry, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != dims || dims == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrEmbeddingUnavailable, i, len(vectors[i]), dims)
		}
		entries[i] = entry{
			chunkID:  chunks[i].ID,
			position: chunks[i].Position,
			vector:   normalize(vectors[i]),
		}
	}

	return &Snapshot{
		documentID: doc.ID,
		modelName:  modelName,
		dimensions: dims,
		entries:    entries,
	}, nil
}

// entry is a normalized vector with its chunk identity.
type entry struct {
	chunkID  string
	position int
	vector   []float32
}

// Snapshot is an immutable per-document index. It is safe for concurrent
// reads without locking; nothing mutates it after Build returns.
type Snapshot struct {
	documentID string
	modelName  string
	dimensions int
	entries    []entry
}

// Search finds the k nearest chunks to the query vector by cosine
// similarity. Ties break by chunk position, so ranking is deterministic.
func (s *Snapshot) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrIndexModelMismatch, len(query), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalize(query)

	type scored struct {
		entry entry
		score float64
	}
	all := make([]scored, len(s.entries))
	for i, e := range s.entries {
		all[i] = scored{entry: e, score: dot(q, e.vector)}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].entry.position < all[j].entry.position
	})

	if k > len(all) {
		k = len(all)
	}
	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = driven.VectorHit{
			ChunkID:    all[i].entry.chunkID,
			Similarity: clamp01(all[i].score),
		}
	}
	return hits, nil
}

// DocumentID returns the owning document.
func (s *Snapshot) DocumentID() string {
	return s.documentID
}

// ModelName returns the embedding model the snapshot was built with.
func (s *Snapshot) ModelName() string {
	return s.modelName
}

// Dimensions returns the vector size the snapshot was built with.
func (s *Snapshot) Dimensions() int {
	return s.dimensions
}

// Size returns the number of indexed chunks.
func (s *Snapshot) Size() int {
	return len(s.entries)
}

// normalize returns v scaled to unit length. Cosine similarity of
// normalized vectors reduces to a dot product.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return append([]float32(nil), v...)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
