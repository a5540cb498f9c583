package main

import (
	"context"
	"fmt"
	"os"

	cachemem "github.com/marketlens/marketlens-cli/internal/adapters/driven/cache/memory"
	config "github.com/marketlens/marketlens-cli/internal/adapters/driven/config/file"
	embedollama "github.com/marketlens/marketlens-cli/internal/adapters/driven/embedding/ollama"
	embedopenai "github.com/marketlens/marketlens-cli/internal/adapters/driven/embedding/openai"
	llmollama "github.com/marketlens/marketlens-cli/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/marketlens/marketlens-cli/internal/adapters/driven/llm/openai"
	"github.com/marketlens/marketlens-cli/internal/adapters/driven/storage/sqlite"
	vecmem "github.com/marketlens/marketlens-cli/internal/adapters/driven/vector/memory"
	"github.com/marketlens/marketlens-cli/internal/adapters/driven/vector/pgvector"
	"github.com/marketlens/marketlens-cli/internal/adapters/driving/cli"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/core/services"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// version is overridden at build time:
//
//	go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	configStore, err := config.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	settings := config.LoadSettings(configStore)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer store.Close()

	embedder, llm, err := buildProviders(configStore)
	if err != nil {
		return err
	}

	var factory driven.VectorIndexFactory
	if pgURL := configStore.GetString(config.KeyPostgresURL); pgURL != "" {
		pgFactory, err := pgvector.NewFactory(ctx, pgURL)
		if err != nil {
			return fmt.Errorf("connecting to pgvector: %w", err)
		}
		defer pgFactory.Close()
		factory = pgFactory
	} else {
		factory = vecmem.NewFactory()
	}

	registry := services.NewIndexRegistry()
	if restored, err := services.RestoreIndexes(ctx, store, store, factory, registry, embedder, settings); err != nil {
		logger.Warn("index restore failed: %v", err)
	} else if restored > 0 {
		logger.Info("restored %d document indexes", restored)
	}

	cache := cachemem.NewAnswerCache(settings.CacheSize, settings.CacheTTL)
	analyzer := services.NewAnalysisService()
	ingest := services.NewIngestService(store, embedder, factory, registry, settings,
		services.WithIndexArchive(store))
	retriever := services.NewRetrieverService(store, embedder, registry, settings)
	synthesizer := services.NewSynthesizerService(llm, analyzer, settings)
	engine := services.NewEngine(ingest, retriever, synthesizer, store, cache, settings)
	keepalive := services.NewKeepaliveService(embedder, llm, registry, settings)

	cli.SetVersion(version)
	cli.SetServices(engine, keepalive, configStore)
	return cli.Execute()
}

// buildProviders selects the model backend from configuration. Ollama
// is the default; OpenAI requires an API key.
func buildProviders(store driven.ConfigStore) (driven.EmbeddingService, driven.LLMService, error) {
	provider := store.GetString(config.KeyProvider)
	switch provider {
	case "", "ollama":
		embedder := embedollama.NewEmbeddingService(embedollama.Config{
			BaseURL: store.GetString(config.KeyOllamaURL),
			Model:   store.GetString(config.KeyEmbeddingModel),
		})
		llm := llmollama.NewLLMService(llmollama.LLMConfig{
			BaseURL: store.GetString(config.KeyOllamaURL),
			Model:   store.GetString(config.KeyLLMModel),
		})
		return embedder, llm, nil

	case "openai":
		apiKey := store.GetString(config.KeyOpenAIKey)
		embedder, err := embedopenai.NewEmbeddingService(embedopenai.Config{
			APIKey: apiKey,
			Model:  store.GetString(config.KeyEmbeddingModel),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedding: %w", err)
		}
		llm, err := llmopenai.NewLLMService(llmopenai.LLMConfig{
			APIKey: apiKey,
			Model:  store.GetString(config.KeyLLMModel),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai llm: %w", err)
		}
		return embedder, llm, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q", provider)
	}
}
