package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driving"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// KeepaliveService pings the model providers and runs a trivial index
// query on a fixed interval, keeping remote models loaded and index
// memory warm between user queries.
//
// A tick never raises: every failure is recorded on the tick and
// logged, and the next tick fires on schedule regardless.
type KeepaliveService struct {
	embedder driven.EmbeddingService
	llm      driven.LLMService
	registry *IndexRegistry
	interval time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	last     domain.KeepaliveTick
	hasTick  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

var _ driving.KeepaliveRunner = (*KeepaliveService)(nil)

// NewKeepaliveService creates a keepalive loop over the model ports.
func NewKeepaliveService(
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	registry *IndexRegistry,
	settings domain.Settings,
) *KeepaliveService {
	return &KeepaliveService{
		embedder: embedder,
		llm:      llm,
		registry: registry,
		interval: settings.KeepaliveInterval,
		timeout:  settings.KeepaliveTimeout,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the loop until the context is cancelled or Stop is called.
// The first tick fires immediately so a cold start warms up right away.
func (s *KeepaliveService) Start(ctx context.Context) error {
	defer close(s.done)

	logger.Info("keepalive started (interval %v)", s.interval)
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("keepalive stopping: %v", ctx.Err())
			return ctx.Err()
		case <-s.stop:
			logger.Debug("keepalive stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop shuts the loop down and waits for an in-flight tick to finish.
// Safe to call more than once.
func (s *KeepaliveService) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// LastTick reports the most recent tick outcome, or false when no tick
// has completed yet.
func (s *KeepaliveService) LastTick() (domain.KeepaliveTick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasTick
}

// tick probes each capability with its own short timeout.
func (s *KeepaliveService) tick(ctx context.Context) {
	t := domain.KeepaliveTick{StartedAt: time.Now().UTC()}

	if err := s.probe(ctx, s.embedder.Ping); err != nil {
		t.Err = fmt.Sprintf("embedding: %v", err)
		logger.Warn("keepalive embedding probe failed: %v", err)
	} else {
		t.EmbeddingOK = true
	}

	if err := s.probe(ctx, s.llm.Ping); err != nil {
		if t.Err == "" {
			t.Err = fmt.Sprintf("generation: %v", err)
		}
		logger.Warn("keepalive generation probe failed: %v", err)
	} else {
		t.GenerationOK = true
	}

	if err := s.probeIndex(ctx); err != nil {
		if t.Err == "" {
			t.Err = fmt.Sprintf("index: %v", err)
		}
		logger.Warn("keepalive index probe failed: %v", err)
	} else {
		t.IndexOK = true
	}

	t.EndedAt = time.Now().UTC()

	s.mu.Lock()
	s.last = t
	s.hasTick = true
	s.mu.Unlock()

	logger.Debug("keepalive tick: embedding=%v generation=%v index=%v",
		t.EmbeddingOK, t.GenerationOK, t.IndexOK)
}

func (s *KeepaliveService) probe(ctx context.Context, ping func(context.Context) error) error {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return ping(probeCtx)
}

// probeIndex runs a trivial one-result search against any published
// snapshot. No snapshot means nothing to keep warm, which counts as
// healthy.
func (s *KeepaliveService) probeIndex(ctx context.Context) error {
	snap, ok := s.registry.Any()
	if !ok {
		return nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	probe := make([]float32, snap.Dimensions())
	probe[0] = 1
	_, err := snap.Search(probeCtx, probe, 1)
	return err
}
