// Package components assembles the ingestion and retrieval pipelines from a
// resolved config.Config. Every entry point (CLI, HTTP API, Lambda) builds
// its dependencies here.
package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/danielpid/dynamic-rag/pkg/chunk"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/embeddings"
	embeddingutils "github.com/danielpid/dynamic-rag/pkg/embeddings/utils"
	"github.com/danielpid/dynamic-rag/pkg/eventstream"
	eventstreamutils "github.com/danielpid/dynamic-rag/pkg/eventstream/utils"
	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/loader"
	loaderutils "github.com/danielpid/dynamic-rag/pkg/loader/utils"
	"github.com/danielpid/dynamic-rag/pkg/retrieve"
	"github.com/danielpid/dynamic-rag/pkg/secrets"
	"github.com/danielpid/dynamic-rag/pkg/secrets/awssm"
	"github.com/danielpid/dynamic-rag/pkg/secrets/env"
	"github.com/danielpid/dynamic-rag/pkg/synth"
	synthutils "github.com/danielpid/dynamic-rag/pkg/synth/utils"
	"github.com/danielpid/dynamic-rag/pkg/vector"
	vectorutils "github.com/danielpid/dynamic-rag/pkg/vector/utils"
)

// Keys looked up in the API key secret, in order.
var apiKeyFields = []string{"OPENAI_API_KEY", "api_key", secrets.ValueKey}

// Options selects which pipelines to build.
type Options struct {
	// Ingest builds the loader, splitter, publisher and ingestion pipeline.
	Ingest bool

	// Query builds the synthesizer and retrieval pipeline.
	Query bool

	// Secrets overrides the cache built from Config.Secrets.
	Secrets *secrets.Cache

	Logger *slog.Logger
}

// Components holds everything a process needs. Close releases it all.
type Components struct {
	Config *config.Config

	Secrets     *secrets.Cache
	Embedder    embeddings.Embedder
	Store       vector.Store
	Loader      loader.Loader
	Publisher   eventstream.Publisher
	Synthesizer synth.Synthesizer

	Ingest   *ingest.Pipeline
	Retrieve *retrieve.Pipeline

	logger  *slog.Logger
	closers []func() error
}

// New builds the components cfg describes. On error, anything already built
// is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Components, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Components{Config: cfg, logger: logger}
	if err := c.build(ctx, opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) build(ctx context.Context, opts Options) error {
	c.Secrets = opts.Secrets
	if c.Secrets == nil {
		var err error
		if c.Secrets, err = NewSecrets(ctx, c.Config.Secrets); err != nil {
			return err
		}
	}

	if err := c.buildEmbedder(ctx); err != nil {
		return err
	}
	if err := c.buildStore(ctx); err != nil {
		return err
	}

	index := IndexParams(c.Config)

	if opts.Ingest {
		if err := c.buildIngest(ctx, index); err != nil {
			return err
		}
	}
	if opts.Query {
		if err := c.buildRetrieve(ctx, index); err != nil {
			return err
		}
	}
	return nil
}

// NewSecrets builds the credential cache for the configured provider.
func NewSecrets(ctx context.Context, cfg config.SecretsConfig) (*secrets.Cache, error) {
	var provider secrets.Provider
	switch cfg.Provider {
	case "", "env":
		provider = &env.Provider{}
	case "aws", "secretsmanager":
		p, err := awssm.NewProvider(ctx, cfg.Region)
		if err != nil {
			return nil, fault.New(fault.Configuration, "components.secrets", err)
		}
		provider = p
	default:
		return nil, fault.New(fault.Configuration, "components.secrets",
			fmt.Errorf("unsupported secrets provider: %s", cfg.Provider))
	}
	return secrets.NewCache(provider, cfg.TTL()), nil
}

// IndexParams converts the configured index settings.
func IndexParams(cfg *config.Config) vector.IndexParams {
	return vector.IndexParams{
		Dimensions:     cfg.Embedding.Dimensions,
		Metric:         vector.MetricCosine,
		M:              cfg.Index.M,
		EfConstruction: cfg.Index.EfConstruction,
		EfSearch:       cfg.Index.EfSearch,
	}.WithDefaults()
}

// SourceRef returns the configured document source.
func SourceRef(cfg *config.Config) loader.Ref {
	return loader.Ref{Bucket: cfg.Source.Bucket, Key: cfg.Source.Key}
}

// apiKey is read once when the clients are built. The openai client holds
// the key for the life of the process, so a rotated key takes effect on the
// next cold start.
func (c *Components) apiKey(ctx context.Context, secretName string) (string, error) {
	if secretName == "" {
		return "", nil
	}
	values, err := c.Secrets.Get(ctx, secretName)
	if err != nil {
		return "", fault.New(fault.Configuration, "components.api_key", err)
	}
	for _, k := range apiKeyFields {
		if v := values[k]; v != "" {
			return v, nil
		}
	}
	return "", fault.New(fault.Configuration, "components.api_key",
		fmt.Errorf("%w: none of %v in %s", secrets.ErrKeyNotFound, apiKeyFields, secretName))
}

func (c *Components) buildEmbedder(ctx context.Context) error {
	cfg := c.Config.Embedding

	var key string
	if cfg.Provider == "openai" {
		var err error
		if key, err = c.apiKey(ctx, cfg.APIKeySecret); err != nil {
			return err
		}
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Provider,
		TargetURL:    cfg.Target,
		Model:        cfg.Model,
		APIKey:       key,
		Dimensions:   cfg.Dimensions,
	})
	if err != nil {
		return fault.New(fault.Configuration, "components.embedder", err)
	}

	c.Embedder = embedder
	c.closers = append(c.closers, embedder.Close)
	return nil
}

func (c *Components) buildStore(ctx context.Context) error {
	cfg := c.Config.Database

	var (
		dsn         string
		credentials func(context.Context) (string, string, error)
	)
	if cfg.Provider == "pgvector" || cfg.Provider == "postgres" {
		if cfg.CredentialsSecret != "" {
			// resolved once up front so a missing secret fails here, then
			// again per connection so rotation follows the cache ttl
			credentials = func(ctx context.Context) (string, string, error) {
				creds, err := c.Secrets.Get(ctx, cfg.CredentialsSecret)
				if err != nil {
					return "", "", err
				}
				return creds["username"], creds["password"], nil
			}
			if _, _, err := credentials(ctx); err != nil {
				return fault.New(fault.Configuration, "components.store", err)
			}
		}
		dsn = cfg.DSN("", "")
	}

	maxConns := cfg.MaxConns
	if maxConns > math.MaxInt32 {
		maxConns = math.MaxInt32
	}

	store, err := vectorutils.NewVectorStore(ctx, &vectorutils.NewVectorStoreOpts{
		ProviderType: cfg.Provider,
		DSN:          dsn,
		TargetURL:    cfg.Target,
		Table:        cfg.Table,
		MaxConns:     int32(maxConns), //nolint:gosec // clamped above
		Credentials:  credentials,
		Logger:       c.logger,
	})
	if err != nil {
		return fault.Wrap(fault.Configuration, "components.store", err)
	}

	c.Store = store
	c.closers = append(c.closers, store.Close)
	return nil
}

func (c *Components) buildIngest(ctx context.Context, index vector.IndexParams) error {
	cfg := c.Config

	l, err := loaderutils.NewLoader(ctx, &loaderutils.NewLoaderOpts{
		ProviderType: cfg.Source.Provider,
		Region:       cfg.Source.Region,
		Endpoint:     cfg.Source.Endpoint,
		Root:         cfg.Source.Root,
		Logger:       c.logger,
	})
	if err != nil {
		return fault.New(fault.Configuration, "components.loader", err)
	}
	c.Loader = l

	splitter, err := chunk.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return fault.New(fault.Configuration, "components.splitter", err)
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.EventStream.BrokerList(),
		URL:          cfg.EventStream.URL,
		Topic:        cfg.EventStream.Topic,
	})
	if err != nil {
		return fault.New(fault.Configuration, "components.publisher", err)
	}
	c.Publisher = publisher
	c.closers = append(c.closers, publisher.Close)

	c.Ingest, err = ingest.NewPipeline(&ingest.Config{
		Loader:         c.Loader,
		Splitter:       splitter,
		Embedder:       c.Embedder,
		Store:          c.Store,
		Index:          index,
		Publisher:      publisher,
		EmbedBatchSize: cfg.Embedding.BatchSize,
		EmbedRetries:   cfg.Embedding.Retries,
		EmbedRateLimit: cfg.Embedding.RateLimit,
		StageTimeout:   cfg.Timeouts.Stage(),
		Logger:         c.logger,
	})
	return err
}

func (c *Components) buildRetrieve(ctx context.Context, index vector.IndexParams) error {
	cfg := c.Config

	var key string
	if cfg.LLM.Provider == "openai" {
		var err error
		if key, err = c.apiKey(ctx, cfg.LLM.APIKeySecret); err != nil {
			return err
		}
	}

	synthesizer, err := synthutils.NewSynthesizer(&synthutils.NewSynthesizerOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
		APIKey:       key,
	})
	if err != nil {
		return fault.New(fault.Configuration, "components.synthesizer", err)
	}
	c.Synthesizer = synthesizer
	c.closers = append(c.closers, synthesizer.Close)

	c.Retrieve, err = retrieve.New(&retrieve.Config{
		Embedder:          c.Embedder,
		Store:             c.Store,
		Synthesizer:       synthesizer,
		Index:             index,
		TopK:              cfg.Index.TopK,
		EfSearch:          cfg.Index.EfSearch,
		MaxQuestionLength: cfg.Index.MaxQuestionLength,
		Timeout:           cfg.Timeouts.Stage(),
		Logger:            c.logger,
	})
	return err
}

// Close releases every component in reverse construction order.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
