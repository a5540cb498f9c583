package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// mockArchive is an in-memory index archive.
type mockArchive struct {
	records map[string]driven.IndexRecord
}

func newMockArchive() *mockArchive {
	return &mockArchive{records: make(map[string]driven.IndexRecord)}
}

func (m *mockArchive) SaveIndex(ctx context.Context, record driven.IndexRecord) error {
	m.records[record.DocumentID] = record
	return nil
}

func (m *mockArchive) LoadIndex(ctx context.Context, documentID string) (driven.IndexRecord, error) {
	record, ok := m.records[documentID]
	if !ok {
		return driven.IndexRecord{}, fmt.Errorf("index for %s: %w", documentID, domain.ErrNotFound)
	}
	return record, nil
}

func (m *mockArchive) DeleteIndex(ctx context.Context, documentID string) error {
	delete(m.records, documentID)
	return nil
}

var _ driven.IndexArchive = (*mockArchive)(nil)

func archivedFixture(t *testing.T, store *mockStore, archive *mockArchive, embedder *mockEmbedder, settings domain.Settings, docID string) {
	t.Helper()
	ctx := context.Background()

	doc := domain.Document{
		ID: docID, Filename: docID + ".pdf", Content: "chunk content",
		ContentHash: "hash-" + docID, IngestedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveDocument(ctx, &doc))

	chunk := domain.Chunk{ID: docID + "-c0", DocumentID: docID, Position: 0, Content: "chunk content"}
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{chunk}))

	require.NoError(t, archive.SaveIndex(ctx, driven.IndexRecord{
		DocumentID:          docID,
		ModelName:           embedder.ModelName(),
		Dimensions:          embedder.Dimensions(),
		ChunkingFingerprint: settings.ChunkingFingerprint(),
		ContentHash:         doc.ContentHash,
		BuiltAt:             time.Now().UTC(),
		Vectors:             map[string][]float32{chunk.ID: {1, 0, 0, 0}},
	}))
}

// TestRestoreIndexes tests restoring a valid archived index
func TestRestoreIndexes(t *testing.T) {
	store := newMockStore()
	archive := newMockArchive()
	embedder := newMockEmbedder()
	registry := NewIndexRegistry()
	settings := testSettings()

	archivedFixture(t, store, archive, embedder, settings, "report-a")

	restored, err := RestoreIndexes(context.Background(), store, archive, &mockFactory{}, registry, embedder, settings)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	_, ok := registry.Get("report-a")
	assert.True(t, ok)
}

// TestRestoreIndexes_StaleRecordsSkipped tests each staleness condition
func TestRestoreIndexes_StaleRecordsSkipped(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*driven.IndexRecord)
	}{
		{"model changed", func(r *driven.IndexRecord) { r.ModelName = "other-model" }},
		{"dimensions changed", func(r *driven.IndexRecord) { r.Dimensions = 99 }},
		{"chunking changed", func(r *driven.IndexRecord) { r.ChunkingFingerprint = "stale" }},
		{"content changed", func(r *driven.IndexRecord) { r.ContentHash = "stale" }},
		{"vectors missing", func(r *driven.IndexRecord) { r.Vectors = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			archive := newMockArchive()
			embedder := newMockEmbedder()
			registry := NewIndexRegistry()
			settings := testSettings()

			archivedFixture(t, store, archive, embedder, settings, "report-a")
			record := archive.records["report-a"]
			tt.mutate(&record)
			archive.records["report-a"] = record

			restored, err := RestoreIndexes(context.Background(), store, archive, &mockFactory{}, registry, embedder, settings)
			require.NoError(t, err, "stale records are skipped, not fatal")
			assert.Equal(t, 0, restored)

			_, ok := registry.Get("report-a")
			assert.False(t, ok)
		})
	}
}

// TestRestoreIndexes_NoArchivedIndex tests documents without records
func TestRestoreIndexes_NoArchivedIndex(t *testing.T) {
	store := newMockStore()
	ctx := context.Background()
	doc := domain.Document{ID: "report-a", Filename: "a.pdf", Content: "x", ContentHash: "h", IngestedAt: time.Now().UTC()}
	require.NoError(t, store.SaveDocument(ctx, &doc))

	restored, err := RestoreIndexes(ctx, store, newMockArchive(), &mockFactory{}, NewIndexRegistry(), newMockEmbedder(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
}

// TestIngestService_ArchivesIndex tests that ingest persists the record
func TestIngestService_ArchivesIndex(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder()
	archive := newMockArchive()
	registry := NewIndexRegistry()
	settings := testSettings()
	svc := NewIngestService(store, embedder, &mockFactory{}, registry, settings, WithIndexArchive(archive))

	_, err := svc.Ingest(context.Background(), "report-a", "report-a.pdf", "steady growth across all segments this year")
	require.NoError(t, err)

	record, err := archive.LoadIndex(context.Background(), "report-a")
	require.NoError(t, err)
	assert.Equal(t, embedder.ModelName(), record.ModelName)
	assert.Equal(t, settings.ChunkingFingerprint(), record.ChunkingFingerprint)
	assert.NotEmpty(t, record.Vectors)
}
