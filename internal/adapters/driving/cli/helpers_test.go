package cli

import (
	"context"
	"sync"
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driving"
)

// fakeEngine records calls and returns canned answers. Ingest is
// guarded because the watch command drives it from a goroutine.
type fakeEngine struct {
	mu        sync.Mutex
	ingested  []string
	lastQuery string
	lastDocs  []string
	answer    domain.Answer
	docs      []domain.Document
	err       error
}

func (f *fakeEngine) Ingest(_ context.Context, documentID, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, documentID)
	return nil
}

func (f *fakeEngine) ingestedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ingested...)
}

func (f *fakeEngine) Ask(_ context.Context, query string, documentIDs []string) (domain.Answer, error) {
	if f.err != nil {
		return domain.Answer{}, f.err
	}
	f.lastQuery = query
	f.lastDocs = documentIDs
	return f.answer, nil
}

func (f *fakeEngine) Documents(_ context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

// fakeKeepalive returns immediately from Start so blocking commands can
// run under test.
type fakeKeepalive struct {
	started bool
	tick    domain.KeepaliveTick
	hasTick bool
}

func (f *fakeKeepalive) Start(_ context.Context) error {
	f.started = true
	return nil
}

func (f *fakeKeepalive) Stop() error { return nil }

func (f *fakeKeepalive) LastTick() (domain.KeepaliveTick, bool) {
	return f.tick, f.hasTick
}

// fakeConfigStore is an in-memory ConfigStore.
type fakeConfigStore struct {
	values map[string]any
	saves  int
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{values: make(map[string]any)}
}

func (f *fakeConfigStore) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeConfigStore) GetString(key string) string {
	if v, ok := f.values[key].(string); ok {
		return v
	}
	return ""
}

func (f *fakeConfigStore) GetInt(key string) int {
	switch v := f.values[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (f *fakeConfigStore) GetFloat(key string) float64 {
	switch v := f.values[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (f *fakeConfigStore) GetBool(key string) bool {
	if v, ok := f.values[key].(bool); ok {
		return v
	}
	return false
}

func (f *fakeConfigStore) Set(key string, value any) error {
	f.values[key] = value
	return nil
}

func (f *fakeConfigStore) Save() error {
	f.saves++
	return nil
}

var (
	_ driving.AnalysisEngine  = (*fakeEngine)(nil)
	_ driving.KeepaliveRunner = (*fakeKeepalive)(nil)
	_ driven.ConfigStore      = (*fakeConfigStore)(nil)
)

func groundedAnswer() domain.Answer {
	return domain.Answer{
		Query: "test question",
		Kind:  domain.AnswerKindGrounded,
		Text:  "Revenue grew 12% year over year [S1].",
		Citations: []domain.Citation{
			{Marker: "[S1]", ChunkID: "c1", DocumentID: "report-a", Position: 3, Similarity: 0.91},
		},
		Confidence:  0.84,
		DocumentIDs: []string{"report-a"},
		Sentiment:   0.4,
		Topics: []domain.Topic{
			{Keywords: []string{"revenue", "growth"}, Weight: 0.6},
		},
		CreatedAt: time.Now(),
	}
}

// setupTestServices wires fake services into the package-level vars and
// returns the fakes plus a cleanup restoring the previous wiring.
func setupTestServices() (*fakeEngine, *fakeKeepalive, *fakeConfigStore, func()) {
	prevEngine := engine
	prevKeepalive := keepaliveRunner
	prevConfig := configStore

	fe := &fakeEngine{answer: groundedAnswer()}
	fk := &fakeKeepalive{}
	fc := newFakeConfigStore()
	SetServices(fe, fk, fc)

	return fe, fk, fc, func() {
		SetServices(prevEngine, prevKeepalive, prevConfig)
	}
}
