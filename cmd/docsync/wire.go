package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/docsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsync/internal/adapters/driven/embedding"
	"github.com/custodia-labs/docsync/internal/adapters/driven/notion"
	"github.com/custodia-labs/docsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsync/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/docsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/core/services"
	"github.com/custodia-labs/docsync/internal/logger"
	"github.com/custodia-labs/docsync/internal/normalisers"
	notionnorm "github.com/custodia-labs/docsync/internal/normalisers/notion"
	"github.com/custodia-labs/docsync/internal/postprocessors/chunker"
)

// notionTokenEnv names the variable holding the Notion integration token.
const notionTokenEnv = "NOTION_TOKEN"

// build wires stores, adapters and services for the CLI.
func build(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	logger.SetVerbose(opts.Verbose)
	logger.Section("Startup")

	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settings := services.NewSettingsService(configStore)
	cfg := settings.PipelineConfig()
	logger.Debug("config: %s", configStore.Path())

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("store: %s", store.Path())

	embedSettings := settings.EmbeddingSettings()
	embedder, err := embedding.NewValidated(ctx, &embedSettings)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	logger.Debug("embedder: %s (%d dims)", embedder.ModelName(), embedder.Dimensions())

	vectors, err := hnsw.New(ctx, embedder, hnsw.WithRecordStore(store.RecordStore()))
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("loading vector index: %w", err)
	}

	gateway := services.NewVectorStoreGateway(vectors, store.IndexingStateStore(), services.WithTopK(cfg.TopK))
	registry := normalisers.NewRegistry(notionnorm.All(notionnorm.FromConfig(cfg)...)...)
	chunks := chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.ChunkOverlap))
	indexer := services.NewIndexingService(registry, chunks, gateway)
	dispatcher := services.NewJobDispatcher(indexer, cfg)
	repairer := services.NewRepairService(gateway, cfg.CoreWorkers)

	app := &cli.Services{
		Indexer:     indexer,
		Dispatcher:  dispatcher,
		Search:      gateway,
		Repairer:    repairer,
		WebhookAddr: settings.WebhookAddr(),
		SpoolDir:    settings.SpoolDir(),
		Close: func() error {
			return errors.Join(vectors.Close(), embedder.Close(), store.Close())
		},
	}

	var loader driving.WorkspaceLoader
	if token := os.Getenv(notionTokenEnv); token != "" {
		client, err := notion.NewClient(notion.Config{
			Token:             token,
			RequestsPerSecond: settings.NotionRequestsPerSecond(),
		})
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("creating notion client: %w", err)
		}
		teamID := settings.NotionTeamID()
		workspaces := notion.Workspaces{teamID: client}

		enumerator := notion.NewEnumerator(workspaces, notion.WithMaxDepth(cfg.MaxDepth))
		workspaceLoader := services.NewLoaderService(enumerator, dispatcher, []int64{teamID})
		loader = workspaceLoader
		app.Loader = workspaceLoader
		app.Refresher = notion.NewFetcher(workspaces, dispatcher, cfg.MaxDepth)
		logger.Debug("notion: team %d", teamID)
	} else {
		logger.Debug("notion: %s not set, workspace loading disabled", notionTokenEnv)
	}

	if schedCfg := settings.SchedulerConfig(); schedCfg.Enabled {
		app.Scheduler = services.NewScheduler(schedCfg, store.SchedulerStore(), repairer, loader)
	}

	return app, nil
}
