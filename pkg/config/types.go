package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent dynrag configuration stored as config.toml
// in the .dynrag/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version" mapstructure:"version"`
	Source      SourceConfig      `toml:"source" mapstructure:"source"`
	Database    DatabaseConfig    `toml:"database" mapstructure:"database"`
	Embedding   EmbeddingConfig   `toml:"embedding" mapstructure:"embedding"`
	LLM         LLMConfig         `toml:"llm" mapstructure:"llm"`
	Chunk       ChunkConfig       `toml:"chunk" mapstructure:"chunk"`
	Index       IndexConfig       `toml:"index" mapstructure:"index"`
	Secrets     SecretsConfig     `toml:"secrets" mapstructure:"secrets"`
	EventStream EventStreamConfig `toml:"event_stream" mapstructure:"event_stream"`
	API         APIConfig         `toml:"api" mapstructure:"api"`
	Timeouts    TimeoutsConfig    `toml:"timeouts" mapstructure:"timeouts"`
}

// SourceConfig locates the documents to ingest.
type SourceConfig struct {
	// Provider is "s3" or "file".
	Provider string `toml:"provider,omitempty" mapstructure:"provider"`
	Bucket   string `toml:"bucket,omitempty" mapstructure:"bucket"`
	Key      string `toml:"key,omitempty" mapstructure:"key"`
	Region   string `toml:"region,omitempty" mapstructure:"region"`

	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack.
	Endpoint string `toml:"endpoint,omitempty" mapstructure:"endpoint"`

	// Root is the directory holding buckets for the file provider.
	Root string `toml:"root,omitempty" mapstructure:"root"`
}

// DatabaseConfig holds vector store settings.
type DatabaseConfig struct {
	// Provider is "pgvector", "qdrant", "sqlite" or "memory".
	Provider string `toml:"provider,omitempty" mapstructure:"provider"`
	Host     string `toml:"host,omitempty" mapstructure:"host"`
	Port     uint   `toml:"port,omitempty" mapstructure:"port"`
	Name     string `toml:"name,omitempty" mapstructure:"name"`
	SSLMode  string `toml:"sslmode,omitempty" mapstructure:"sslmode"`
	Table    string `toml:"table,omitempty" mapstructure:"table"`
	MaxConns int    `toml:"max_conns,omitempty" mapstructure:"max_conns"`

	// CredentialsSecret names a secret holding "username" and "password".
	CredentialsSecret string `toml:"credentials_secret,omitempty" mapstructure:"credentials_secret"`

	// Target is the Qdrant address or the SQLite database path.
	Target string `toml:"target,omitempty" mapstructure:"target"`
}

// DSN renders a PostgreSQL connection URL.
func (d DatabaseConfig) DSN(user, password string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.FormatUint(uint64(d.Port), 10)),
		Path:   "/" + d.Name,
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty" mapstructure:"provider"`
	Target     string `toml:"target,omitempty" mapstructure:"target"`
	Model      string `toml:"model,omitempty" mapstructure:"model"`
	Dimensions uint   `toml:"dimensions,omitempty" mapstructure:"dimensions"`

	// APIKeySecret names the secret holding the provider API key.
	APIKeySecret string `toml:"api_key_secret,omitempty" mapstructure:"api_key_secret"`

	BatchSize int     `toml:"batch_size,omitempty" mapstructure:"batch_size"`
	Retries   int     `toml:"retries,omitempty" mapstructure:"retries"`
	RateLimit float64 `toml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// LLMConfig holds answer synthesis settings.
type LLMConfig struct {
	Provider     string `toml:"provider,omitempty" mapstructure:"provider"`
	Target       string `toml:"target,omitempty" mapstructure:"target"`
	Model        string `toml:"model,omitempty" mapstructure:"model"`
	APIKeySecret string `toml:"api_key_secret,omitempty" mapstructure:"api_key_secret"`
}

// ChunkConfig holds document splitting settings.
type ChunkConfig struct {
	Size    int `toml:"size,omitempty" mapstructure:"size"`
	Overlap int `toml:"overlap,omitempty" mapstructure:"overlap"`
}

// IndexConfig holds ANN index and retrieval settings.
type IndexConfig struct {
	TopK              int `toml:"top_k,omitempty" mapstructure:"top_k"`
	M                 int `toml:"m,omitempty" mapstructure:"m"`
	EfConstruction    int `toml:"ef_construction,omitempty" mapstructure:"ef_construction"`
	EfSearch          int `toml:"ef_search,omitempty" mapstructure:"ef_search"`
	MaxQuestionLength int `toml:"max_question_length,omitempty" mapstructure:"max_question_length"`
}

// SecretsConfig selects where credentials are read from.
type SecretsConfig struct {
	// Provider is "env" or "aws".
	Provider   string `toml:"provider,omitempty" mapstructure:"provider"`
	Region     string `toml:"region,omitempty" mapstructure:"region"`
	TTLSeconds int    `toml:"ttl_seconds,omitempty" mapstructure:"ttl_seconds"`
}

// TTL returns the cache lifetime.
func (s SecretsConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// EventStreamConfig holds ingestion event publishing settings.
type EventStreamConfig struct {
	// Provider is "none", "kafka" or "nats".
	Provider string `toml:"provider,omitempty" mapstructure:"provider"`

	// Brokers is a comma separated list of Kafka brokers.
	Brokers string `toml:"brokers,omitempty" mapstructure:"brokers"`
	URL     string `toml:"url,omitempty" mapstructure:"url"`
	Topic   string `toml:"topic,omitempty" mapstructure:"topic"`
}

// BrokerList splits Brokers on commas.
func (e EventStreamConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen    string `toml:"listen,omitempty" mapstructure:"listen"`
	Workers   uint   `toml:"workers,omitempty" mapstructure:"workers"`
	QueueSize uint   `toml:"queue_size,omitempty" mapstructure:"queue_size"`
}

// TimeoutsConfig holds per-call timeouts in seconds.
type TimeoutsConfig struct {
	StageSeconds int `toml:"stage_seconds,omitempty" mapstructure:"stage_seconds"`
}

// Stage returns the per-call timeout.
func (t TimeoutsConfig) Stage() time.Duration {
	return time.Duration(t.StageSeconds) * time.Second
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// orderedKeys lists every supported key in TOML section order.
var orderedKeys = []string{
	"source.provider",
	"source.bucket",
	"source.key",
	"source.region",
	"source.endpoint",
	"source.root",
	"database.provider",
	"database.host",
	"database.port",
	"database.name",
	"database.sslmode",
	"database.table",
	"database.max_conns",
	"database.credentials_secret",
	"database.target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key_secret",
	"embedding.batch_size",
	"embedding.retries",
	"embedding.rate_limit",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.api_key_secret",
	"chunk.size",
	"chunk.overlap",
	"index.top_k",
	"index.m",
	"index.ef_construction",
	"index.ef_search",
	"index.max_question_length",
	"secrets.provider",
	"secrets.region",
	"secrets.ttl_seconds",
	"event_stream.provider",
	"event_stream.brokers",
	"event_stream.url",
	"event_stream.topic",
	"api.listen",
	"api.workers",
	"api.queue_size",
	"timeouts.stage_seconds",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"source.provider": stringKey(func(c *Config) *string { return &c.Source.Provider }),
	"source.bucket":   stringKey(func(c *Config) *string { return &c.Source.Bucket }),
	"source.key":      stringKey(func(c *Config) *string { return &c.Source.Key }),
	"source.region":   stringKey(func(c *Config) *string { return &c.Source.Region }),
	"source.endpoint": stringKey(func(c *Config) *string { return &c.Source.Endpoint }),
	"source.root":     stringKey(func(c *Config) *string { return &c.Source.Root }),

	"database.provider":           stringKey(func(c *Config) *string { return &c.Database.Provider }),
	"database.host":               stringKey(func(c *Config) *string { return &c.Database.Host }),
	"database.port":               uintKey("database.port", func(c *Config) *uint { return &c.Database.Port }),
	"database.name":               stringKey(func(c *Config) *string { return &c.Database.Name }),
	"database.sslmode":            stringKey(func(c *Config) *string { return &c.Database.SSLMode }),
	"database.table":              stringKey(func(c *Config) *string { return &c.Database.Table }),
	"database.max_conns":          intKey("database.max_conns", func(c *Config) *int { return &c.Database.MaxConns }),
	"database.credentials_secret": stringKey(func(c *Config) *string { return &c.Database.CredentialsSecret }),
	"database.target":             stringKey(func(c *Config) *string { return &c.Database.Target }),

	"embedding.provider":       stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":         stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":          stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions":     uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key_secret": stringKey(func(c *Config) *string { return &c.Embedding.APIKeySecret }),
	"embedding.batch_size":     intKey("embedding.batch_size", func(c *Config) *int { return &c.Embedding.BatchSize }),
	"embedding.retries":        intKey("embedding.retries", func(c *Config) *int { return &c.Embedding.Retries }),
	"embedding.rate_limit":     floatKey("embedding.rate_limit", func(c *Config) *float64 { return &c.Embedding.RateLimit }),

	"llm.provider":       stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":         stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":          stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key_secret": stringKey(func(c *Config) *string { return &c.LLM.APIKeySecret }),

	"chunk.size":    intKey("chunk.size", func(c *Config) *int { return &c.Chunk.Size }),
	"chunk.overlap": intKey("chunk.overlap", func(c *Config) *int { return &c.Chunk.Overlap }),

	"index.top_k":               intKey("index.top_k", func(c *Config) *int { return &c.Index.TopK }),
	"index.m":                   intKey("index.m", func(c *Config) *int { return &c.Index.M }),
	"index.ef_construction":     intKey("index.ef_construction", func(c *Config) *int { return &c.Index.EfConstruction }),
	"index.ef_search":           intKey("index.ef_search", func(c *Config) *int { return &c.Index.EfSearch }),
	"index.max_question_length": intKey("index.max_question_length", func(c *Config) *int { return &c.Index.MaxQuestionLength }),

	"secrets.provider":    stringKey(func(c *Config) *string { return &c.Secrets.Provider }),
	"secrets.region":      stringKey(func(c *Config) *string { return &c.Secrets.Region }),
	"secrets.ttl_seconds": intKey("secrets.ttl_seconds", func(c *Config) *int { return &c.Secrets.TTLSeconds }),

	"event_stream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"event_stream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"event_stream.url":      stringKey(func(c *Config) *string { return &c.EventStream.URL }),
	"event_stream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"api.listen":     stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.workers":    uintKey("api.workers", func(c *Config) *uint { return &c.API.Workers }),
	"api.queue_size": uintKey("api.queue_size", func(c *Config) *uint { return &c.API.QueueSize }),

	"timeouts.stage_seconds": intKey("timeouts.stage_seconds", func(c *Config) *int { return &c.Timeouts.StageSeconds }),
}
