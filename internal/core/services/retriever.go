package services

import (
	"context"
	"fmt"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// RetrieverService answers "which passages are relevant" for a query
// against one or more indexed documents.
//
// The query is embedded exactly once and the same vector is searched
// against every requested document's snapshot. Results below the
// minimum similarity are discarded; an empty result set is a valid
// outcome, not an error.
type RetrieverService struct {
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	registry *IndexRegistry
	kPerDoc  int
	minScore float64
}

// NewRetrieverService wires a retriever over the published snapshots.
func NewRetrieverService(
	store driven.DocumentStore,
	embedder driven.EmbeddingService,
	registry *IndexRegistry,
	settings domain.Settings,
) *RetrieverService {
	return &RetrieverService{
		store:    store,
		embedder: embedder,
		registry: registry,
		kPerDoc:  settings.KPerDoc,
		minScore: settings.MinScore,
	}
}

// Retrieve returns up to k chunks per document, merged across documents
// in descending similarity order. Every requested document must have a
// published index built with the retriever's embedding model.
func (s *RetrieverService) Retrieve(ctx context.Context, query string, documentIDs []string) (domain.RetrievalResult, error) {
	// A repeated document ID must not surface the same chunk twice or
	// skew the confidence mean.
	documentIDs = dedupeIDs(documentIDs)

	result := domain.RetrievalResult{
		Query:       query,
		DocumentIDs: documentIDs,
		KPerDoc:     s.kPerDoc,
	}
	if len(documentIDs) == 0 {
		return result, fmt.Errorf("no documents selected: %w", domain.ErrInvalidConfiguration)
	}

	snaps := make([]driven.IndexSnapshot, 0, len(documentIDs))
	for _, id := range documentIDs {
		snap, ok := s.registry.Get(id)
		if !ok {
			return result, fmt.Errorf("document %s: %w", id, domain.ErrIndexNotBuilt)
		}
		if snap.ModelName() != s.embedder.ModelName() {
			return result, fmt.Errorf("document %s indexed with %s, current model %s: %w",
				id, snap.ModelName(), s.embedder.ModelName(), domain.ErrIndexModelMismatch)
		}
		snaps = append(snaps, snap)
	}

	queryVec, err := embedText(ctx, s.embedder, query)
	if err != nil {
		return result, fmt.Errorf("embedding query: %w", err)
	}

	var merged []domain.RetrievedChunk
	for i, snap := range snaps {
		hits, err := snap.Search(ctx, queryVec, s.kPerDoc)
		if err != nil {
			return result, fmt.Errorf("searching document %s: %w", documentIDs[i], err)
		}
		for _, hit := range hits {
			if hit.Similarity < s.minScore {
				continue
			}
			chunk, err := s.store.GetChunk(ctx, hit.ChunkID)
			if err != nil {
				return result, fmt.Errorf("loading chunk %s: %w", hit.ChunkID, err)
			}
			merged = append(merged, domain.RetrievedChunk{
				Chunk:      *chunk,
				Similarity: hit.Similarity,
			})
		}
	}

	domain.SortChunks(merged, documentIDs)
	result.Chunks = merged

	logger.Debug("retrieved %d chunks for %q across %d documents (k=%d min=%.2f)",
		len(merged), query, len(documentIDs), s.kPerDoc, s.minScore)
	return result, nil
}

// dedupeIDs drops repeated document IDs, keeping first-seen order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
