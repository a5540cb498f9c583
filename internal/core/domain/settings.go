package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Default engine settings. Chunking and retrieval defaults follow the
// values the reference reports were tuned with.
const (
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultKPerDoc           = 3
	DefaultMinScore          = 0.2
	DefaultCacheSize         = 128
	DefaultCacheTTL          = 1 * time.Hour
	DefaultKeepaliveInterval = 14 * time.Minute
	DefaultKeepaliveTimeout  = 10 * time.Second
	DefaultMaxConcurrent     = 4
	DefaultGenerateTimeout   = 2 * time.Minute
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 1024
)

// Settings is the explicit engine configuration record. Every parameter
// has validated bounds; there is no pass-through of arbitrary options.
type Settings struct {
	// ChunkSize is the chunk window in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks in
	// characters. Must be smaller than ChunkSize.
	ChunkOverlap int

	// KPerDoc is the number of chunks retrieved per document.
	KPerDoc int

	// MinScore is the minimum cosine similarity for a chunk to be
	// considered relevant, in [0, 1).
	MinScore float64

	// CacheSize is the maximum number of cached answers.
	CacheSize int

	// CacheTTL expires cached answers regardless of recency, so changed
	// generation parameters cannot serve stale answers forever.
	CacheTTL time.Duration

	// KeepaliveInterval is the fixed interval between warm-up ticks.
	KeepaliveInterval time.Duration

	// KeepaliveTimeout bounds each external call made by a keepalive
	// tick. It must stay shorter than user-facing request timeouts.
	KeepaliveTimeout time.Duration

	// MaxConcurrent caps concurrent synthesis calls. Beyond it, queries
	// fail fast with ErrOverloaded.
	MaxConcurrent int

	// GenerateTimeout bounds a single generation call.
	GenerateTimeout time.Duration

	// Temperature is passed through to the generation capability.
	Temperature float64

	// MaxTokens caps the length of a generated answer.
	MaxTokens int
}

// DefaultSettings returns the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		KPerDoc:           DefaultKPerDoc,
		MinScore:          DefaultMinScore,
		CacheSize:         DefaultCacheSize,
		CacheTTL:          DefaultCacheTTL,
		KeepaliveInterval: DefaultKeepaliveInterval,
		KeepaliveTimeout:  DefaultKeepaliveTimeout,
		MaxConcurrent:     DefaultMaxConcurrent,
		GenerateTimeout:   DefaultGenerateTimeout,
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
	}
}

// Validate checks every parameter against its bounds.
// Violations return ErrInvalidConfiguration.
func (s Settings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", ErrInvalidConfiguration, s.ChunkOverlap, s.ChunkSize)
	}
	if s.KPerDoc <= 0 {
		return fmt.Errorf("%w: k per document must be positive, got %d", ErrInvalidConfiguration, s.KPerDoc)
	}
	if s.MinScore < 0 || s.MinScore >= 1 {
		return fmt.Errorf("%w: min score %v must be in [0, 1)", ErrInvalidConfiguration, s.MinScore)
	}
	if s.CacheSize <= 0 {
		return fmt.Errorf("%w: cache size must be positive, got %d", ErrInvalidConfiguration, s.CacheSize)
	}
	if s.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache TTL must be positive, got %v", ErrInvalidConfiguration, s.CacheTTL)
	}
	if s.KeepaliveInterval <= 0 {
		return fmt.Errorf("%w: keepalive interval must be positive, got %v", ErrInvalidConfiguration, s.KeepaliveInterval)
	}
	if s.KeepaliveTimeout <= 0 || s.KeepaliveTimeout >= s.GenerateTimeout {
		return fmt.Errorf("%w: keepalive timeout %v must be positive and below the generate timeout %v",
			ErrInvalidConfiguration, s.KeepaliveTimeout, s.GenerateTimeout)
	}
	if s.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: max concurrent must be positive, got %d", ErrInvalidConfiguration, s.MaxConcurrent)
	}
	if s.GenerateTimeout <= 0 {
		return fmt.Errorf("%w: generate timeout must be positive, got %v", ErrInvalidConfiguration, s.GenerateTimeout)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v must be in [0, 2]", ErrInvalidConfiguration, s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidConfiguration, s.MaxTokens)
	}
	return nil
}

// RetrievalFingerprint hashes the parameters that change retrieval or
// synthesis behaviour. It is part of every cache key, so answers produced
// under a different configuration can never be served.
func (s Settings) RetrievalFingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "cs=%d|co=%d|k=%d|ms=%.6f|t=%.3f|mt=%d",
		s.ChunkSize, s.ChunkOverlap, s.KPerDoc, s.MinScore, s.Temperature, s.MaxTokens)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ChunkingFingerprint hashes only the chunking parameters. Persisted
// indexes record it so a loaded index can be validated against the
// current configuration before use.
func (s Settings) ChunkingFingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "cs=%d|co=%d", s.ChunkSize, s.ChunkOverlap)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
