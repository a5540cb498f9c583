package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

func newTestEngine(t *testing.T, llm driven.LLMService) (*Engine, *mockCache, *mockEmbedder) {
	t.Helper()
	settings := testSettings()
	store := newMockStore()
	embedder := newMockEmbedder()
	factory := &mockFactory{}
	registry := NewIndexRegistry()
	cache := newMockCache()

	ingest := NewIngestService(store, embedder, factory, registry, settings)
	retriever := NewRetrieverService(store, embedder, registry, settings)
	synthesizer := NewSynthesizerService(llm, NewAnalysisService(), settings)
	return NewEngine(ingest, retriever, synthesizer, store, cache, settings), cache, embedder
}

func mustIngest(t *testing.T, e *Engine, id string) {
	t.Helper()
	text := strings.Repeat("strong growth in the premium segment drove revenue. ", 10)
	require.NoError(t, e.Ingest(context.Background(), id, id+".pdf", text))
}

// TestEngine_AskCachesAnswer tests that a repeated question is served
// from the cache without touching the model
func TestEngine_AskCachesAnswer(t *testing.T) {
	llm := &mockLLM{responses: []string{"Premium pricing drives growth [S1]."}}
	engine, cache, _ := newTestEngine(t, llm)
	mustIngest(t, engine, "report-a")

	first, err := engine.Ask(context.Background(), "what drives growth?", []string{"report-a"})
	require.NoError(t, err)
	require.True(t, first.Grounded())
	assert.Equal(t, 1, cache.Len())

	second, err := engine.Ask(context.Background(), "what drives growth?", []string{"report-a"})
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, llm.callCount(), "cache hit must not regenerate")
}

// TestEngine_CacheKeyIgnoresDocumentOrder tests that the document set,
// not its order, identifies a question
func TestEngine_CacheKeyIgnoresDocumentOrder(t *testing.T) {
	llm := &mockLLM{responses: []string{"Both reports agree [S1]."}}
	engine, _, _ := newTestEngine(t, llm)

	keyAB := engine.cacheKey("compare revenue", []string{"report-a", "report-b"})
	keyBA := engine.cacheKey("compare revenue", []string{"report-b", "report-a"})
	assert.Equal(t, keyAB, keyBA)
}

// TestEngine_CacheKeyNormalizesQuery tests whitespace and case folding
func TestEngine_CacheKeyNormalizesQuery(t *testing.T) {
	engine, _, _ := newTestEngine(t, &mockLLM{})

	a := engine.cacheKey("What Drives   Growth?", []string{"report-a"})
	b := engine.cacheKey("what drives growth?", []string{"report-a"})
	assert.Equal(t, a, b)

	c := engine.cacheKey("what drives revenue?", []string{"report-a"})
	assert.NotEqual(t, a, c)
}

// TestEngine_EmptyQueryRejected tests input validation
func TestEngine_EmptyQueryRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t, &mockLLM{})

	_, err := engine.Ask(context.Background(), "   ", []string{"report-a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}

// TestEngine_IngestPurgesCache tests that replacing a document drops
// potentially stale cached answers
func TestEngine_IngestPurgesCache(t *testing.T) {
	llm := &mockLLM{responses: []string{"Growth [S1]."}}
	engine, cache, _ := newTestEngine(t, llm)
	mustIngest(t, engine, "report-a")

	_, err := engine.Ask(context.Background(), "what drives growth?", []string{"report-a"})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	mustIngest(t, engine, "report-a")
	assert.Equal(t, 0, cache.Len())
}

// TestEngine_OverloadedFailsFast tests the concurrency cap
func TestEngine_OverloadedFailsFast(t *testing.T) {
	engine, _, _ := newTestEngine(t, &mockLLM{})

	// Occupy every synthesis slot.
	for i := 0; i < engine.settings.MaxConcurrent; i++ {
		engine.slots <- struct{}{}
	}
	defer func() {
		for i := 0; i < engine.settings.MaxConcurrent; i++ {
			<-engine.slots
		}
	}()

	_, err := engine.Ask(context.Background(), "what drives growth?", []string{"report-a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOverloaded))
}

// TestEngine_ComparisonCitesBothDocuments tests the headline flow: two
// reports with divergent figures, one comparison question, an answer
// grounded in both
func TestEngine_ComparisonCitesBothDocuments(t *testing.T) {
	llm := &mockLLM{responses: []string{
		"Report A projects revenue rising to 120M [S1], while report B expects a decline to 80M [S4].",
	}}
	engine, _, _ := newTestEngine(t, llm)

	textA := strings.Repeat("revenue is projected to rise to 120M on premium demand. ", 10)
	textB := strings.Repeat("revenue is expected to decline to 80M as churn accelerates. ", 10)
	require.NoError(t, engine.Ingest(context.Background(), "report-a", "report-a.pdf", textA))
	require.NoError(t, engine.Ingest(context.Background(), "report-b", "report-b.pdf", textB))

	answer, err := engine.Ask(context.Background(), "how do the revenue projections compare?",
		[]string{"report-a", "report-b"})
	require.NoError(t, err)
	require.True(t, answer.Grounded())
	require.Len(t, answer.Citations, 2)

	cited := make(map[string]bool)
	for _, c := range answer.Citations {
		cited[c.DocumentID] = true
	}
	assert.True(t, cited["report-a"], "answer must cite the first report")
	assert.True(t, cited["report-b"], "answer must cite the second report")
	assert.Greater(t, answer.Confidence, domain.InsufficientContextFloor)
}

// TestEngine_DetachedGenerationStillCaches tests that a caller who
// gives up does not waste the generation
func TestEngine_DetachedGenerationStillCaches(t *testing.T) {
	release := make(chan struct{})
	llm := newSlowLLM(release, "Late answer [S1].")
	engine, cache, _ := newTestEngine(t, llm)
	mustIngest(t, engine, "report-a")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := engine.Ask(ctx, "what drives growth?", []string{"report-a"})
		errCh <- err
	}()

	<-llm.started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	waitFor(t, func() bool { return cache.Len() == 1 })
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestEngine_Documents lists ingested documents
func TestEngine_Documents(t *testing.T) {
	engine, _, _ := newTestEngine(t, &mockLLM{})
	mustIngest(t, engine, "report-a")
	mustIngest(t, engine, "report-b")

	docs, err := engine.Documents(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
