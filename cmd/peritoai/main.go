// Command peritoai indexes insurance policies and coverage protocols and
// builds grounded context for claim handling.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/criskgl/peritoai/internal/adapters/driven/ai"
	"github.com/criskgl/peritoai/internal/adapters/driven/config/file"
	"github.com/criskgl/peritoai/internal/adapters/driven/metrics"
	"github.com/criskgl/peritoai/internal/adapters/driven/storage/memory"
	"github.com/criskgl/peritoai/internal/adapters/driven/storage/sqlite"
	"github.com/criskgl/peritoai/internal/adapters/driving/cli"
	"github.com/criskgl/peritoai/internal/connectors/filesystem"
	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/core/services"
	"github.com/criskgl/peritoai/internal/logger"
	"github.com/criskgl/peritoai/internal/normalisers"
	"github.com/criskgl/peritoai/internal/normalisers/docx"
	"github.com/criskgl/peritoai/internal/normalisers/markdown"
	"github.com/criskgl/peritoai/internal/normalisers/pdf"
	"github.com/criskgl/peritoai/internal/normalisers/plaintext"
	"github.com/criskgl/peritoai/internal/postprocessors"
)

// configDirEnv overrides the directory holding config.toml.
const configDirEnv = "PERITOAI_CONFIG_DIR"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("Loading .env: %v", err)
	}

	configStore, err := file.NewConfigStore(os.Getenv(configDirEnv),
		file.WithEnvOverrides(services.SettingKeys()...),
		file.WithEnvAlias(services.KeyEmbedAPIKey, "GEMINI_API_KEY", "OPENAI_API_KEY"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading configuration: %v\n", err)
		return 1
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	svcs := cli.Services{Settings: settingsService}

	closeIndex, err := wire(ctx, settingsService, &svcs)
	if err != nil {
		// Settings commands still work so the configuration can be fixed.
		svcs.SetupErr = err
	} else {
		defer closeIndex()
	}

	cli.SetServices(svcs)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// wire builds the index and retrieval services from the stored settings.
// The returned func releases the chunk store and the embedding service.
func wire(ctx context.Context, settingsService *services.SettingsService, svcs *cli.Services) (func(), error) {
	if err := settingsService.Validate(); err != nil {
		return nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	collections, err := filesystem.NewCollections(settings.Collections)
	if err != nil {
		return nil, err
	}

	pipeline, err := postprocessors.Build(settings.Chunking)
	if err != nil {
		return nil, err
	}

	store, err := openStore(settings.Storage)
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics()

	index := services.NewIndexStore(store, openEmbedder(ctx, &settings.Embedding))
	index.SetMetrics(m)
	// Searches and inserts fail on a mismatch; listing still works.
	if err := index.CheckModel(ctx); err != nil {
		logger.Warn("%v", err)
	}

	extractors := normalisers.NewRegistry(
		pdf.New(),
		docx.New(),
		markdown.New(),
		plaintext.New(),
	)

	indexService := services.NewIndexService(index, collections, extractors, pipeline,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithMetrics(m),
	)

	retrieval := services.NewRetrievalService(index, settings.Retrieval)
	retrieval.SetMetrics(m)

	svcs.Retrieval = retrieval
	svcs.Index = indexService
	svcs.Metrics = m.Handler()

	return func() {
		if err := index.Close(); err != nil {
			logger.Warn("Closing index: %v", err)
		}
	}, nil
}

func openStore(settings domain.StorageSettings) (driven.ChunkStore, error) {
	switch settings.Backend {
	case domain.StorageMemory:
		logger.Debug("Using in-memory chunk store")
		return memory.NewChunkStore(), nil
	default:
		store, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		return store, nil
	}
}

// openEmbedder never fails: a provider that cannot be built is replaced by
// a placeholder so listing documents keeps working and embedding reports
// the cause.
func openEmbedder(ctx context.Context, settings *domain.EmbeddingSettings) driven.EmbeddingService {
	svc, err := ai.CreateEmbeddingService(ctx, settings)
	if err != nil {
		return ai.NewUnavailable(err)
	}
	if svc == nil {
		return ai.NewUnavailable(fmt.Errorf("provider %q needs an API key; run 'peritoai settings set-key'",
			settings.Provider))
	}
	return svc
}
