package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driving"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// admissionWait is how long a query waits for a synthesis slot before
// failing fast with ErrOverloaded.
const admissionWait = 250 * time.Millisecond

// Engine is the orchestrating service behind the driving port. It wires
// ingestion, cached retrieval and synthesis together and owns the
// concurrency policy: a bounded number of in-flight queries, with
// generation detached from the caller's context so an abandoned request
// still warms the cache.
type Engine struct {
	ingest      *IngestService
	retriever   *RetrieverService
	synthesizer *SynthesizerService
	store       driven.DocumentStore
	cache       driven.AnswerCache
	settings    domain.Settings
	slots       chan struct{}
}

var _ driving.AnalysisEngine = (*Engine)(nil)

// NewEngine assembles the engine from its collaborating services.
func NewEngine(
	ingest *IngestService,
	retriever *RetrieverService,
	synthesizer *SynthesizerService,
	store driven.DocumentStore,
	cache driven.AnswerCache,
	settings domain.Settings,
) *Engine {
	return &Engine{
		ingest:      ingest,
		retriever:   retriever,
		synthesizer: synthesizer,
		store:       store,
		cache:       cache,
		settings:    settings,
		slots:       make(chan struct{}, settings.MaxConcurrent),
	}
}

// Ingest delegates to the ingest service and invalidates the response
// cache, since cached answers may cite the replaced document.
func (e *Engine) Ingest(ctx context.Context, documentID, filename, text string) error {
	if _, err := e.ingest.Ingest(ctx, documentID, filename, text); err != nil {
		return err
	}
	e.cache.Purge()
	return nil
}

// Ask answers a question against the named documents. Identical
// questions against the same document set under the same configuration
// are served from the cache.
func (e *Engine) Ask(ctx context.Context, query string, documentIDs []string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, fmt.Errorf("empty query: %w", domain.ErrInvalidConfiguration)
	}

	key := e.cacheKey(query, documentIDs)
	if answer, ok := e.cache.Get(ctx, key); ok {
		logger.Debug("cache hit for %q", query)
		return answer, nil
	}

	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return domain.Answer{}, fmt.Errorf("query interrupted: %w", ctx.Err())
	case <-time.After(admissionWait):
		return domain.Answer{}, fmt.Errorf("%d queries in flight: %w", e.settings.MaxConcurrent, domain.ErrOverloaded)
	}

	type outcome struct {
		answer domain.Answer
		err    error
	}
	done := make(chan outcome, 1)

	// Generation keeps running on a detached context so a disconnecting
	// caller still populates the cache for the next identical question.
	go func() {
		defer func() { <-e.slots }()

		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.settings.GenerateTimeout)
		defer cancel()

		answer, err := e.answer(genCtx, query, documentIDs)
		if err == nil {
			e.cache.Put(genCtx, key, answer)
		}
		done <- outcome{answer, err}
	}()

	select {
	case out := <-done:
		return out.answer, out.err
	case <-ctx.Done():
		logger.Debug("caller left, generation for %q continues detached", query)
		return domain.Answer{}, fmt.Errorf("query interrupted: %w", ctx.Err())
	}
}

// Documents lists the ingested documents, most recent first.
func (e *Engine) Documents(ctx context.Context) ([]domain.Document, error) {
	return e.store.ListDocuments(ctx)
}

func (e *Engine) answer(ctx context.Context, query string, documentIDs []string) (domain.Answer, error) {
	result, err := e.retriever.Retrieve(ctx, query, documentIDs)
	if err != nil {
		return domain.Answer{}, err
	}
	return e.synthesizer.Synthesize(ctx, result)
}

// cacheKey derives the response cache key from the normalized query,
// the sorted document set and the retrieval fingerprint. Document order
// must not matter: asking against (a, b) and (b, a) is the same
// question.
func (e *Engine) cacheKey(query string, documentIDs []string) string {
	ids := append([]string(nil), documentIDs...)
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s",
		strings.ToLower(strings.Join(strings.Fields(query), " ")),
		strings.Join(ids, ","),
		e.settings.RetrievalFingerprint())
	return hex.EncodeToString(h.Sum(nil))
}
