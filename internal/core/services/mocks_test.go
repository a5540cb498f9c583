package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// mockEmbedder returns deterministic vectors keyed by text. Unknown
// texts get a unit vector on the first axis. embedErr fails every
// call; failures fails that many calls and then recovers.
type mockEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	dims      int
	model     string
	embedErr  error
	failures  int
	pingErr   error
	calls     int
	lastTexts []string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors: make(map[string][]float32),
		dims:    4,
		model:   "mock-embed",
	}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failures > 0 {
		m.failures--
		return nil, fmt.Errorf("transient embed failure")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, m.dims)
	v[0] = 1
	return v, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.lastTexts = append([]string(nil), texts...)
	m.mu.Unlock()
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int                { return m.dims }
func (m *mockEmbedder) ModelName() string              { return m.model }
func (m *mockEmbedder) Ping(ctx context.Context) error { return m.pingErr }
func (m *mockEmbedder) Close() error                   { return nil }

// mockLLM returns canned responses in order and records prompts.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
	pingErr   error
	calls     int
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	if len(m.responses) > 0 {
		return m.responses[len(m.responses)-1], nil
	}
	return "mock answer", nil
}

func (m *mockLLM) ModelName() string              { return "mock-llm" }
func (m *mockLLM) Ping(ctx context.Context) error { return m.pingErr }
func (m *mockLLM) Close() error                   { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSnapshot serves fixed hits regardless of the query vector.
type mockSnapshot struct {
	docID     string
	model     string
	dims      int
	hits      []driven.VectorHit
	searchErr error
}

func (m *mockSnapshot) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		k = len(m.hits)
	}
	return m.hits[:k], nil
}

func (m *mockSnapshot) DocumentID() string { return m.docID }
func (m *mockSnapshot) ModelName() string  { return m.model }
func (m *mockSnapshot) Dimensions() int    { return m.dims }
func (m *mockSnapshot) Size() int          { return len(m.hits) }

// mockFactory builds mockSnapshots, or fails when buildErr is set.
type mockFactory struct {
	buildErr error
	built    int
}

func (m *mockFactory) Build(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32, modelName string) (driven.IndexSnapshot, error) {
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	m.built++
	hits := make([]driven.VectorHit, 0, len(chunks))
	for _, c := range chunks {
		hits = append(hits, driven.VectorHit{ChunkID: c.ID, Similarity: 0.9})
	}
	return &mockSnapshot{docID: doc.ID, model: modelName, dims: 4, hits: hits}, nil
}

// mockStore is a minimal in-memory document store for service tests.
type mockStore struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	chunks  map[string]domain.Chunk
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string]domain.Chunk),
	}
}

func (m *mockStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *mockStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

func (m *mockStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	for cid, c := range m.chunks {
		if c.DocumentID == id {
			delete(m.chunks, cid)
		}
	}
	return nil
}

func (m *mockStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

// mockCache counts hits and puts.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]domain.Answer
	puts    int
	purges  int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.Answer)}
}

func (m *mockCache) Get(ctx context.Context, key string) (domain.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.entries[key]
	return a, ok
}

func (m *mockCache) Put(ctx context.Context, key string, answer domain.Answer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = answer
	m.puts++
}

func (m *mockCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockCache) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]domain.Answer)
	m.purges++
}

// slowLLM blocks generation until released, signalling when a call has
// started. Used to exercise detached generation.
type slowLLM struct {
	release   chan struct{}
	response  string
	startOnce sync.Once
	started   chan struct{}
}

func (m *slowLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.startOnce.Do(func() { close(m.started) })
	select {
	case <-m.release:
		return m.response, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newSlowLLM(release chan struct{}, response string) *slowLLM {
	return &slowLLM{
		release:  release,
		response: response,
		started:  make(chan struct{}),
	}
}

func (m *slowLLM) ModelName() string              { return "slow-llm" }
func (m *slowLLM) Ping(ctx context.Context) error { return nil }
func (m *slowLLM) Close() error                   { return nil }

// Compile-time port conformance for the mocks.
var (
	_ driven.EmbeddingService   = (*mockEmbedder)(nil)
	_ driven.LLMService         = (*mockLLM)(nil)
	_ driven.IndexSnapshot      = (*mockSnapshot)(nil)
	_ driven.VectorIndexFactory = (*mockFactory)(nil)
	_ driven.DocumentStore      = (*mockStore)(nil)
	_ driven.AnswerCache        = (*mockCache)(nil)
	_ driven.LLMService         = (*slowLLM)(nil)
)
