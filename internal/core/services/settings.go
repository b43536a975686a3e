package services

import (
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Config keys.
const (
	keyPipelineEnabled        = "pipeline.enabled"
	keyMaxNormalizedLength    = "pipeline.max_normalized_length"
	keyChunkSize              = "pipeline.chunk_size"
	keyChunkOverlap           = "pipeline.chunk_overlap"
	keyMaxDepth               = "pipeline.max_depth"
	keyCoreWorkers            = "dispatcher.core_workers"
	keyMaxWorkers             = "dispatcher.max_workers"
	keyQueueCapacity          = "dispatcher.queue_capacity"
	keyBurstIdleTimeout       = "dispatcher.burst_idle_timeout"
	keySearchTopK             = "search.top_k"
	keyEmbedProvider          = "embedding.provider"
	keyEmbedModel             = "embedding.model"
	keyEmbedBaseURL           = "embedding.base_url"
	keyEmbedAPIKey            = "embedding.api_key"
	keyEmbedDimensions        = "embedding.dimensions"
	keyNotionRPS              = "notion.requests_per_second"
	keyNotionTeamID           = "notion.team_id"
	keySchedulerEnabled       = "scheduler.enabled"
	keyWebhookAddr            = "webhook.addr"
	keySpoolDir               = "spool.dir"
	defaultNotionRPS          = 3.0
	defaultNotionTeamID       = 1
	defaultWebhookAddr        = "127.0.0.1:8787"
	repairConfigPrefix        = "repair."
	workspaceLoadConfigPrefix = "load."
)

// SettingsService reads typed settings from a ConfigStore, falling back to defaults
// for anything unset.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// PipelineConfig returns the normalised pipeline configuration.
func (s *SettingsService) PipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if _, exists := s.configStore.Get(keyPipelineEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keyPipelineEnabled)
	}
	s.overrideInt(keyMaxNormalizedLength, &cfg.MaxNormalizedLength)
	s.overrideInt(keyChunkSize, &cfg.ChunkSize)
	s.overrideInt(keyMaxDepth, &cfg.MaxDepth)
	s.overrideInt(keyCoreWorkers, &cfg.CoreWorkers)
	s.overrideInt(keyMaxWorkers, &cfg.MaxWorkers)
	s.overrideInt(keyQueueCapacity, &cfg.QueueCapacity)
	s.overrideInt(keySearchTopK, &cfg.TopK)

	// Zero overlap is a valid setting.
	if _, exists := s.configStore.Get(keyChunkOverlap); exists {
		cfg.ChunkOverlap = s.configStore.GetInt(keyChunkOverlap)
	}
	if d := s.configStore.GetDuration(keyBurstIdleTimeout); d > 0 {
		cfg.BurstIdleTimeout = d
	}

	return cfg.Normalize()
}

// SchedulerConfig returns the scheduler configuration.
//
// Tasks are configured under their own tables:
//
//	[repair]
//	enabled = true
//	interval = "1h"
//
//	[load]
//	enabled = false
//	interval = "24h"
func (s *SettingsService) SchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	taskKeys := map[string]string{
		domain.TaskIDIndexRepair:   repairConfigPrefix,
		domain.TaskIDWorkspaceLoad: workspaceLoadConfigPrefix,
	}
	for taskID, prefix := range taskKeys {
		taskCfg := cfg.TaskConfigs[taskID]
		if _, exists := s.configStore.Get(prefix + "enabled"); exists {
			taskCfg.Enabled = s.configStore.GetBool(prefix + "enabled")
		}
		if d := s.configStore.GetDuration(prefix + "interval"); d > 0 {
			taskCfg.Interval = d
		}
		cfg.TaskConfigs[taskID] = taskCfg
	}

	return cfg
}

// EmbeddingSettings returns the embedding backend selection.
// An unset provider selects the static embedder.
func (s *SettingsService) EmbeddingSettings() domain.EmbeddingSettings {
	provider := domain.EmbeddingProvider(s.configStore.GetString(keyEmbedProvider))
	if provider == "" {
		provider = domain.EmbeddingProviderStatic
	}
	return domain.EmbeddingSettings{
		Provider:   provider,
		Model:      s.configStore.GetString(keyEmbedModel),
		BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
		APIKey:     s.configStore.GetString(keyEmbedAPIKey),
		Dimensions: s.configStore.GetInt(keyEmbedDimensions),
	}
}

// NotionRequestsPerSecond returns the Notion API request budget.
func (s *SettingsService) NotionRequestsPerSecond() float64 {
	if rps := s.configStore.GetFloat(keyNotionRPS); rps > 0 {
		return rps
	}
	return defaultNotionRPS
}

// NotionTeamID returns the team that owns the workspace behind NOTION_TOKEN.
func (s *SettingsService) NotionTeamID() int64 {
	if id := s.configStore.GetInt(keyNotionTeamID); id > 0 {
		return int64(id)
	}
	return defaultNotionTeamID
}

// WebhookAddr returns the listen address of the webhook server.
func (s *SettingsService) WebhookAddr() string {
	if addr := s.configStore.GetString(keyWebhookAddr); addr != "" {
		return addr
	}
	return defaultWebhookAddr
}

// SpoolDir returns the watched drop directory, or "" when the spool is disabled.
func (s *SettingsService) SpoolDir() string {
	return s.configStore.GetString(keySpoolDir)
}

func (s *SettingsService) overrideInt(key string, target *int) {
	if _, exists := s.configStore.Get(key); exists {
		*target = s.configStore.GetInt(key)
	}
}
