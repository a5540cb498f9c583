package file

import (
	"time"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
)

// Configuration keys for engine settings.
const (
	KeyChunkSize         = "engine.chunk_size"
	KeyChunkOverlap      = "engine.chunk_overlap"
	KeyKPerDoc           = "engine.k_per_doc"
	KeyMinScore          = "engine.min_score"
	KeyCacheSize         = "engine.cache_size"
	KeyCacheTTL          = "engine.cache_ttl_seconds"
	KeyKeepaliveInterval = "engine.keepalive_interval_seconds"
	KeyKeepaliveTimeout  = "engine.keepalive_timeout_seconds"
	KeyMaxConcurrent     = "engine.max_concurrent"
	KeyGenerateTimeout   = "engine.generate_timeout_seconds"
	KeyTemperature       = "engine.temperature"
	KeyMaxTokens         = "engine.max_tokens"
)

// Configuration keys for providers.
const (
	KeyProvider       = "provider.name"
	KeyOllamaURL      = "provider.ollama_url"
	KeyEmbeddingModel = "provider.embedding_model"
	KeyLLMModel       = "provider.llm_model"
	KeyOpenAIKey      = "provider.openai_api_key"
	KeyPostgresURL    = "provider.postgres_url"
)

// LoadSettings reads engine settings from the store, falling back to
// the defaults for absent keys. The result is not validated here; the
// caller validates before wiring the engine so a bad config file fails
// loudly at startup.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	s := domain.DefaultSettings()

	if v := store.GetInt(KeyChunkSize); v > 0 {
		s.ChunkSize = v
	}
	if _, ok := store.Get(KeyChunkOverlap); ok {
		s.ChunkOverlap = store.GetInt(KeyChunkOverlap)
	}
	if v := store.GetInt(KeyKPerDoc); v > 0 {
		s.KPerDoc = v
	}
	if _, ok := store.Get(KeyMinScore); ok {
		s.MinScore = store.GetFloat(KeyMinScore)
	}
	if v := store.GetInt(KeyCacheSize); v > 0 {
		s.CacheSize = v
	}
	if v := store.GetInt(KeyCacheTTL); v > 0 {
		s.CacheTTL = time.Duration(v) * time.Second
	}
	if v := store.GetInt(KeyKeepaliveInterval); v > 0 {
		s.KeepaliveInterval = time.Duration(v) * time.Second
	}
	if v := store.GetInt(KeyKeepaliveTimeout); v > 0 {
		s.KeepaliveTimeout = time.Duration(v) * time.Second
	}
	if v := store.GetInt(KeyMaxConcurrent); v > 0 {
		s.MaxConcurrent = v
	}
	if v := store.GetInt(KeyGenerateTimeout); v > 0 {
		s.GenerateTimeout = time.Duration(v) * time.Second
	}
	if _, ok := store.Get(KeyTemperature); ok {
		s.Temperature = store.GetFloat(KeyTemperature)
	}
	if v := store.GetInt(KeyMaxTokens); v > 0 {
		s.MaxTokens = v
	}

	return s
}
