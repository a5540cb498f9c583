package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// RestoreIndexes rebuilds and publishes snapshots from archived indexes
// at startup. A record is only restored when its identity still matches
// the running configuration: same embedding model and dimensions, same
// chunking fingerprint, same document content. Stale records are
// skipped with a warning; the document then needs a re-ingest before it
// can be queried.
//
// Returns the number of restored documents.
func RestoreIndexes(
	ctx context.Context,
	store driven.DocumentStore,
	archive driven.IndexArchive,
	factory driven.VectorIndexFactory,
	registry *IndexRegistry,
	embedder driven.EmbeddingService,
	settings domain.Settings,
) (int, error) {
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}

	restored := 0
	for _, doc := range docs {
		record, err := archive.LoadIndex(ctx, doc.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("document %s has no archived index, re-ingest required", doc.ID)
				continue
			}
			return restored, fmt.Errorf("loading index for %s: %w", doc.ID, err)
		}

		if err := validateRecord(record, doc, embedder, settings); err != nil {
			logger.Warn("skipping archived index for %s: %v", doc.ID, err)
			continue
		}

		chunks, err := store.GetChunks(ctx, doc.ID)
		if err != nil {
			return restored, fmt.Errorf("loading chunks for %s: %w", doc.ID, err)
		}

		vectors := make([][]float32, 0, len(chunks))
		complete := true
		for _, c := range chunks {
			vec, ok := record.Vectors[c.ID]
			if !ok {
				complete = false
				break
			}
			vectors = append(vectors, vec)
		}
		if !complete {
			logger.Warn("skipping archived index for %s: %v", doc.ID,
				fmt.Errorf("missing chunk vectors: %w", domain.ErrStaleIndex))
			continue
		}

		snap, err := factory.Build(ctx, doc, chunks, vectors, record.ModelName)
		if err != nil {
			return restored, fmt.Errorf("rebuilding index for %s: %w", doc.ID, err)
		}

		registry.Publish(doc.ID, snap)
		restored++
		logger.Debug("restored index for %s: %d chunks", doc.ID, len(chunks))
	}

	if restored > 0 {
		logger.Info("restored %d of %d document indexes", restored, len(docs))
	}
	return restored, nil
}

// validateRecord checks a persisted index against the running
// configuration and document content.
func validateRecord(record driven.IndexRecord, doc domain.Document, embedder driven.EmbeddingService, settings domain.Settings) error {
	if record.ModelName != embedder.ModelName() {
		return fmt.Errorf("built with model %s, current %s: %w",
			record.ModelName, embedder.ModelName(), domain.ErrStaleIndex)
	}
	if record.Dimensions != embedder.Dimensions() {
		return fmt.Errorf("built with %d dimensions, current %d: %w",
			record.Dimensions, embedder.Dimensions(), domain.ErrStaleIndex)
	}
	if record.ChunkingFingerprint != settings.ChunkingFingerprint() {
		return fmt.Errorf("chunking configuration changed: %w", domain.ErrStaleIndex)
	}
	if record.ContentHash != doc.ContentHash {
		return fmt.Errorf("document content changed: %w", domain.ErrStaleIndex)
	}
	return nil
}
