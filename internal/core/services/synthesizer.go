package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

const systemPrompt = `You are a senior market research analyst. Answer the question using only the numbered source passages below. Cite every claim with its source marker, for example [S2]. If the passages do not contain enough information to answer, say so explicitly instead of guessing.`

const insufficientContextText = "The selected reports do not contain enough relevant information to answer this question. Try rephrasing the question or ingesting additional reports."

// markerPattern matches source citations like [S1] or [S12] in
// generated text.
var markerPattern = regexp.MustCompile(`\[S(\d+)\]`)

// retryBackoff is the pause before the single generation retry.
var retryBackoff = 2 * time.Second

// SynthesizerService turns retrieved passages into a cited answer.
//
// Passages are numbered [S1]..[Sn] in the order the retriever ranked
// them, and the model is instructed to cite by marker. Markers that do
// not map back to a supplied passage are stripped from the answer and
// logged, never surfaced to the caller.
type SynthesizerService struct {
	llm         driven.LLMService
	analyzer    *AnalysisService
	temperature float64
	maxTokens   int
}

// NewSynthesizerService wires a synthesizer over the generation port.
func NewSynthesizerService(llm driven.LLMService, analyzer *AnalysisService, settings domain.Settings) *SynthesizerService {
	return &SynthesizerService{
		llm:         llm,
		analyzer:    analyzer,
		temperature: settings.Temperature,
		maxTokens:   settings.MaxTokens,
	}
}

// Synthesize produces an answer for the retrieval result. An empty
// result short-circuits to an insufficient-context answer without
// calling the model.
func (s *SynthesizerService) Synthesize(ctx context.Context, result domain.RetrievalResult) (domain.Answer, error) {
	if result.Empty() {
		logger.Debug("no passages above threshold for %q, skipping generation", result.Query)
		return insufficientAnswer(result), nil
	}

	prompt := buildPrompt(result)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		return domain.Answer{}, err
	}

	cleaned, citations := s.extractCitations(text, result)
	answer := domain.Answer{
		Query:       result.Query,
		Kind:        domain.AnswerKindGrounded,
		Text:        cleaned,
		Citations:   citations,
		Confidence:  confidence(result, citations),
		DocumentIDs: result.DocumentIDs,
		CreatedAt:   time.Now().UTC(),
	}

	if s.analyzer != nil {
		answer.Sentiment = s.analyzer.Sentiment(cleaned)
		answer.Topics = s.analyzer.Topics(result.Chunks)
		answer.Sources = s.analyzer.AnalyzeSources(result.Chunks)
	}
	return answer, nil
}

// generate calls the model, retrying exactly once after a short pause.
func (s *SynthesizerService) generate(ctx context.Context, prompt string) (string, error) {
	opts := driven.GenerateOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	text, err := s.llm.Generate(ctx, prompt, opts)
	if err == nil {
		return text, nil
	}
	logger.Warn("generation failed, retrying once: %v", err)

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("generation interrupted: %w", ctx.Err())
	case <-time.After(retryBackoff):
	}

	text, err = s.llm.Generate(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("generation failed after retry: %w", domain.ErrGenerationUnavailable)
	}
	return text, nil
}

// extractCitations resolves [S#] markers against the supplied passages.
// Unresolvable markers are removed from the text.
func (s *SynthesizerService) extractCitations(text string, result domain.RetrievalResult) (string, []domain.Citation) {
	seen := make(map[int]bool)
	var citations []domain.Citation

	cleaned := markerPattern.ReplaceAllStringFunc(text, func(marker string) string {
		n, _ := strconv.Atoi(markerPattern.FindStringSubmatch(marker)[1])
		idx := n - 1
		if idx < 0 || idx >= len(result.Chunks) {
			logger.Warn("dropping marker %s: %v", marker, domain.ErrCitationIntegrity)
			return ""
		}
		if !seen[n] {
			seen[n] = true
			rc := result.Chunks[idx]
			citations = append(citations, domain.Citation{
				Marker:     marker,
				ChunkID:    rc.Chunk.ID,
				DocumentID: rc.Chunk.DocumentID,
				Position:   rc.Chunk.Position,
				Start:      rc.Chunk.Start,
				End:        rc.Chunk.End,
				Similarity: rc.Similarity,
			})
		}
		return marker
	})

	return strings.TrimSpace(cleaned), citations
}

// buildPrompt assembles the grounded prompt: system instructions, the
// numbered passages, then the question.
func buildPrompt(result domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nSource passages:\n")
	for i, rc := range result.Chunks {
		fmt.Fprintf(&b, "\n[S%d] (from %s)\n%s\n", i+1, rc.Chunk.DocumentID, rc.Chunk.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(result.Query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// confidence scores an answer by the mean similarity of its cited
// passages, discounted when retrieval came back sparser than requested.
func confidence(result domain.RetrievalResult, citations []domain.Citation) float64 {
	if len(citations) == 0 {
		return domain.InsufficientContextFloor
	}
	var sum float64
	for _, c := range citations {
		sum += c.Similarity
	}
	mean := sum / float64(len(citations))

	expected := result.KPerDoc * len(result.DocumentIDs)
	sparseness := 0.0
	if expected > 0 && len(result.Chunks) < expected {
		sparseness = 1 - float64(len(result.Chunks))/float64(expected)
	}
	score := mean * (1 - 0.25*sparseness)
	if score < domain.InsufficientContextFloor {
		return domain.InsufficientContextFloor
	}
	if score > 1 {
		return 1
	}
	return score
}

func insufficientAnswer(result domain.RetrievalResult) domain.Answer {
	return domain.Answer{
		Query:       result.Query,
		Kind:        domain.AnswerKindInsufficientContext,
		Text:        insufficientContextText,
		Confidence:  domain.InsufficientContextFloor,
		DocumentIDs: result.DocumentIDs,
		CreatedAt:   time.Now().UTC(),
	}
}
