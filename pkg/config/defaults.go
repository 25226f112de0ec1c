package config

const (
	defaultSourceProvider = "s3"
	defaultSourceKey      = "stories.txt"
	defaultSourceRegion   = "us-east-1"

	defaultDatabaseProvider = "pgvector"
	defaultDatabaseHost     = "localhost"
	defaultDatabasePort     = 5432
	defaultDatabaseName     = "dynamic_rag_db"
	defaultDatabaseSSLMode  = "prefer"
	defaultDatabaseTable    = "stories"
	defaultDatabaseSecret   = "dynamic-rag/db_creds"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingModel      = "text-embedding-ada-002"
	defaultEmbeddingDimensions = 1536
	defaultAPIKeySecret        = "dynamic-rag/openai_api_key"
	defaultEmbedBatchSize      = 10
	defaultEmbedRetries        = 2

	defaultLLMProvider = "openai"
	defaultLLMModel    = "gpt-3.5-turbo"

	defaultChunkSize    = 1024
	defaultChunkOverlap = 20

	defaultTopK              = 2
	defaultM                 = 16
	defaultEfConstruction    = 64
	defaultEfSearch          = 40
	defaultMaxQuestionLength = 256

	defaultSecretsProvider = "env"
	defaultSecretsTTL      = 86400

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "dynrag.ingestion"

	defaultAPIListen    = ":8081"
	defaultAPIWorkers   = 3
	defaultAPIQueueSize = 256

	defaultStageSeconds = 30
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Source: SourceConfig{
			Provider: defaultSourceProvider,
			Key:      defaultSourceKey,
			Region:   defaultSourceRegion,
		},
		Database: DatabaseConfig{
			Provider:          defaultDatabaseProvider,
			Host:              defaultDatabaseHost,
			Port:              defaultDatabasePort,
			Name:              defaultDatabaseName,
			SSLMode:           defaultDatabaseSSLMode,
			Table:             defaultDatabaseTable,
			CredentialsSecret: defaultDatabaseSecret,
		},
		Embedding: EmbeddingConfig{
			Provider:     defaultEmbeddingProvider,
			Model:        defaultEmbeddingModel,
			Dimensions:   defaultEmbeddingDimensions,
			APIKeySecret: defaultAPIKeySecret,
			BatchSize:    defaultEmbedBatchSize,
			Retries:      defaultEmbedRetries,
		},
		LLM: LLMConfig{
			Provider:     defaultLLMProvider,
			Model:        defaultLLMModel,
			APIKeySecret: defaultAPIKeySecret,
		},
		Chunk: ChunkConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		Index: IndexConfig{
			TopK:              defaultTopK,
			M:                 defaultM,
			EfConstruction:    defaultEfConstruction,
			EfSearch:          defaultEfSearch,
			MaxQuestionLength: defaultMaxQuestionLength,
		},
		Secrets: SecretsConfig{
			Provider:   defaultSecretsProvider,
			TTLSeconds: defaultSecretsTTL,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		API: APIConfig{
			Listen:    defaultAPIListen,
			Workers:   defaultAPIWorkers,
			QueueSize: defaultAPIQueueSize,
		},
		Timeouts: TimeoutsConfig{
			StageSeconds: defaultStageSeconds,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	for _, key := range orderedKeys {
		info := configKeys[key]
		if info.get(cfg) != "" {
			continue
		}
		if def := info.get(defaults); def != "" {
			_ = info.set(cfg, def)
		}
	}
}
