package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/logger"
	"github.com/marketlens/marketlens-cli/internal/postprocessors/chunker"
)

// Embedding batch size per provider request. Large reports produce
// hundreds of chunks and providers cap request payloads.
const embedBatchSize = 32

// IngestService turns raw report text into a published index snapshot.
//
// Ingestion is all-or-nothing: the document, its chunks, and its index
// snapshot become visible together only after every step succeeds. A
// failure at any point leaves the previously published snapshot (if
// any) untouched, so concurrent queries keep working against the old
// view.
type IngestService struct {
	store     driven.DocumentStore
	embedder  driven.EmbeddingService
	factory   driven.VectorIndexFactory
	registry  *IndexRegistry
	processor *chunker.Processor
	limiter   *rate.Limiter
	archive   driven.IndexArchive
	settings  domain.Settings

	mu     sync.Mutex
	active map[string]struct{}
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithIndexArchive persists built indexes so they survive restarts.
// Archive failures are logged, not raised: the published in-memory
// snapshot is the source of truth for the running process.
func WithIndexArchive(archive driven.IndexArchive) IngestOption {
	return func(s *IngestService) {
		s.archive = archive
	}
}

// NewIngestService creates an ingest service with the given chunking
// configuration. The rate limiter spaces out embedding batches so a
// large ingest does not starve interactive queries of provider quota.
func NewIngestService(
	store driven.DocumentStore,
	embedder driven.EmbeddingService,
	factory driven.VectorIndexFactory,
	registry *IndexRegistry,
	settings domain.Settings,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		store:    store,
		embedder: embedder,
		factory:  factory,
		registry: registry,
		processor: chunker.New(
			chunker.WithChunkSize(settings.ChunkSize),
			chunker.WithOverlap(settings.ChunkOverlap),
		),
		limiter:  rate.NewLimiter(rate.Limit(4), 2),
		settings: settings,
		active:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest chunks, embeds, and indexes a document, then publishes the
// snapshot. Re-ingesting an existing document ID replaces its snapshot
// atomically. A second concurrent ingest of the same document returns
// domain.ErrIngestInProgress.
func (s *IngestService) Ingest(ctx context.Context, documentID, filename, text string) (domain.Document, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, fmt.Errorf("document %q is empty: %w", filename, domain.ErrInvalidConfiguration)
	}

	if err := s.acquire(documentID); err != nil {
		return domain.Document{}, err
	}
	defer s.release(documentID)

	sum := sha256.Sum256([]byte(text))
	doc := domain.Document{
		ID:          documentID,
		Filename:    filename,
		Content:     text,
		ContentHash: hex.EncodeToString(sum[:]),
		IngestedAt:  time.Now().UTC(),
	}

	logger.Section("Ingest")
	logger.Info("ingesting %s (%d bytes)", filename, len(text))

	chunks, err := s.processor.Process(&doc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("chunking %s: %w", filename, err)
	}
	logger.Debug("produced %d chunks (size=%d overlap=%d)",
		len(chunks), s.processor.ChunkSize(), s.processor.Overlap())

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return domain.Document{}, err
	}

	snap, err := s.factory.Build(ctx, doc, chunks, vectors, s.embedder.ModelName())
	if err != nil {
		return domain.Document{}, fmt.Errorf("building index for %s: %w", filename, err)
	}

	if err := s.store.SaveDocument(ctx, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("saving document %s: %w", filename, err)
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return domain.Document{}, fmt.Errorf("saving chunks for %s: %w", filename, err)
	}

	s.registry.Publish(doc.ID, snap)
	logger.Info("published index for %s: %d chunks, model %s", filename, snap.Size(), snap.ModelName())

	s.archiveIndex(ctx, doc, chunks, vectors)

	return doc, nil
}

// archiveIndex persists the built index when an archive is configured.
func (s *IngestService) archiveIndex(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32) {
	if s.archive == nil {
		return
	}
	record := driven.IndexRecord{
		DocumentID:          doc.ID,
		ModelName:           s.embedder.ModelName(),
		Dimensions:          s.embedder.Dimensions(),
		ChunkingFingerprint: s.settings.ChunkingFingerprint(),
		ContentHash:         doc.ContentHash,
		BuiltAt:             time.Now().UTC(),
		Vectors:             make(map[string][]float32, len(chunks)),
	}
	for i, c := range chunks {
		record.Vectors[c.ID] = vectors[i]
	}
	if err := s.archive.SaveIndex(ctx, record); err != nil {
		logger.Warn("archiving index for %s failed: %v", doc.ID, err)
	}
}

// Remove drops a document and its published snapshot.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	s.registry.Remove(documentID)
	if s.archive != nil {
		if err := s.archive.DeleteIndex(ctx, documentID); err != nil {
			logger.Warn("removing archived index for %s failed: %v", documentID, err)
		}
	}
	return nil
}

func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding interrupted: %w", err)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		batch, err := embedBatch(ctx, s.embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedding returned %d vectors for %d chunks: %w",
				len(batch), len(texts), domain.ErrEmbeddingUnavailable)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *IngestService) acquire(documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[documentID]; busy {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrIngestInProgress)
	}
	s.active[documentID] = struct{}{}
	return nil
}

func (s *IngestService) release(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, documentID)
}
