package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

func retrievalFixture(sims ...float64) domain.RetrievalResult {
	result := domain.RetrievalResult{
		Query:       "what drives growth?",
		DocumentIDs: []string{"report-a"},
		KPerDoc:     3,
	}
	for i, sim := range sims {
		result.Chunks = append(result.Chunks, domain.RetrievedChunk{
			Chunk: domain.Chunk{
				ID:         string(rune('a' + i)),
				DocumentID: "report-a",
				Position:   i,
				Content:    "strong growth in segment",
			},
			Similarity: sim,
		})
	}
	return result
}

func withFastRetry(t *testing.T) {
	t.Helper()
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })
}

// TestSynthesizerService_GroundedAnswer tests citation extraction and
// answer assembly
func TestSynthesizerService_GroundedAnswer(t *testing.T) {
	llm := &mockLLM{responses: []string{"Growth is driven by pricing [S1] and demand [S2]."}}
	svc := NewSynthesizerService(llm, NewAnalysisService(), testSettings())

	answer, err := svc.Synthesize(context.Background(), retrievalFixture(0.9, 0.8, 0.7))
	require.NoError(t, err)

	assert.Equal(t, domain.AnswerKindGrounded, answer.Kind)
	assert.True(t, answer.Grounded())
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "[S1]", answer.Citations[0].Marker)
	assert.Equal(t, "[S2]", answer.Citations[1].Marker)
	assert.Equal(t, 0.9, answer.Citations[0].Similarity)
	assert.Equal(t, 0.8, answer.Citations[1].Similarity)
	assert.Greater(t, answer.Confidence, 0.0)
	assert.NotEmpty(t, answer.Sources)
}

// TestSynthesizerService_DuplicateMarkersCitedOnce tests that repeating
// a marker does not duplicate its citation
func TestSynthesizerService_DuplicateMarkersCitedOnce(t *testing.T) {
	llm := &mockLLM{responses: []string{"Pricing [S1] matters. Pricing [S1] again."}}
	svc := NewSynthesizerService(llm, nil, testSettings())

	answer, err := svc.Synthesize(context.Background(), retrievalFixture(0.9))
	require.NoError(t, err)
	assert.Len(t, answer.Citations, 1)
}

// TestSynthesizerService_UnmatchedMarkerDropped tests that a marker
// pointing past the supplied passages is stripped from the text
func TestSynthesizerService_UnmatchedMarkerDropped(t *testing.T) {
	llm := &mockLLM{responses: []string{"Demand rose [S1] sharply [S9]."}}
	svc := NewSynthesizerService(llm, nil, testSettings())

	answer, err := svc.Synthesize(context.Background(), retrievalFixture(0.9))
	require.NoError(t, err)

	assert.NotContains(t, answer.Text, "[S9]")
	assert.Contains(t, answer.Text, "[S1]")
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "[S1]", answer.Citations[0].Marker)
}

// TestSynthesizerService_EmptyRetrievalSkipsModel tests the
// insufficient-context short circuit
func TestSynthesizerService_EmptyRetrievalSkipsModel(t *testing.T) {
	llm := &mockLLM{}
	svc := NewSynthesizerService(llm, NewAnalysisService(), testSettings())

	answer, err := svc.Synthesize(context.Background(), retrievalFixture())
	require.NoError(t, err)

	assert.Equal(t, domain.AnswerKindInsufficientContext, answer.Kind)
	assert.False(t, answer.Grounded())
	assert.Equal(t, domain.InsufficientContextFloor, answer.Confidence)
	assert.Empty(t, answer.Citations)
	assert.Equal(t, 0, llm.callCount(), "no generation without context")
}

// TestSynthesizerService_RetriesOnce tests transient failure recovery
func TestSynthesizerService_RetriesOnce(t *testing.T) {
	withFastRetry(t)
	llm := &mockLLM{
		errs:      []error{errors.New("transient"), nil},
		responses: []string{"", "Answer [S1]."},
	}
	svc := NewSynthesizerService(llm, nil, testSettings())

	answer, err := svc.Synthesize(context.Background(), retrievalFixture(0.9))
	require.NoError(t, err)
	assert.Equal(t, 2, llm.callCount())
	assert.Equal(t, domain.AnswerKindGrounded, answer.Kind)
}

// TestSynthesizerService_FailsAfterRetry tests the unavailable error
func TestSynthesizerService_FailsAfterRetry(t *testing.T) {
	withFastRetry(t)
	llm := &mockLLM{errs: []error{errors.New("down"), errors.New("still down")}}
	svc := NewSynthesizerService(llm, nil, testSettings())

	_, err := svc.Synthesize(context.Background(), retrievalFixture(0.9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGenerationUnavailable))
	assert.Equal(t, 2, llm.callCount())
}

// TestSynthesizerService_PromptContainsPassages tests grounded prompt
// assembly
func TestSynthesizerService_PromptContainsPassages(t *testing.T) {
	llm := &mockLLM{responses: []string{"Answer [S1]."}}
	svc := NewSynthesizerService(llm, nil, testSettings())

	_, err := svc.Synthesize(context.Background(), retrievalFixture(0.9, 0.8))
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "[S1]")
	assert.Contains(t, prompt, "[S2]")
	assert.Contains(t, prompt, "what drives growth?")
	assert.Contains(t, prompt, "strong growth in segment")
}

// TestConfidence_SparseRetrievalDiscounted tests the sparseness
// discount in the confidence score
func TestConfidence_SparseRetrievalDiscounted(t *testing.T) {
	full := retrievalFixture(0.8, 0.8, 0.8)
	sparse := retrievalFixture(0.8)

	citation := func(r domain.RetrievalResult) []domain.Citation {
		var cs []domain.Citation
		for _, rc := range r.Chunks {
			cs = append(cs, domain.Citation{ChunkID: rc.Chunk.ID, Similarity: rc.Similarity})
		}
		return cs
	}

	fullScore := confidence(full, citation(full))
	sparseScore := confidence(sparse, citation(sparse))
	assert.Greater(t, fullScore, sparseScore)
	assert.InDelta(t, 0.8, fullScore, 0.001)
}

// TestConfidence_NoCitationsFloors tests the citation-free floor
func TestConfidence_NoCitationsFloors(t *testing.T) {
	score := confidence(retrievalFixture(0.9), nil)
	assert.Equal(t, domain.InsufficientContextFloor, score)
}
