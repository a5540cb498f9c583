package services

import (
	"context"
	"fmt"
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// Embedding calls retry exactly once after a short pause, the same
// discipline generation follows. A failure that survives the retry
// surfaces as domain.ErrEmbeddingUnavailable with the underlying cause
// preserved, since adapter errors carry the HTTP detail worth logging.

func embedText(ctx context.Context, embedder driven.EmbeddingService, text string) ([]float32, error) {
	vec, err := embedder.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	logger.Warn("embedding failed, retrying once: %v", err)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("embedding interrupted: %w", ctx.Err())
	case <-time.After(retryBackoff):
	}

	vec, err = embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed after retry: %v: %w", err, domain.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

func embedBatch(ctx context.Context, embedder driven.EmbeddingService, texts []string) ([][]float32, error) {
	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	logger.Warn("batch embedding failed, retrying once: %v", err)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("embedding interrupted: %w", ctx.Err())
	case <-time.After(retryBackoff):
	}

	vecs, err = embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed after retry: %v: %w", err, domain.ErrEmbeddingUnavailable)
	}
	return vecs, nil
}
