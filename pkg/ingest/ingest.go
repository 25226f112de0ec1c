// Package ingest runs the batch ingestion pipeline: load documents, split
// them into chunks, embed the chunks and append them to the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielpid/dynamic-rag/pkg/chunk"
	"github.com/danielpid/dynamic-rag/pkg/embeddings"
	"github.com/danielpid/dynamic-rag/pkg/eventstream"
	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/loader"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

const (
	defaultEmbedBatchSize  = 10
	defaultEmbedRetries    = 2
	defaultRetryBackoff    = 500 * time.Millisecond
	defaultInsertBatchSize = 64
	defaultStageTimeout    = 30 * time.Second
)

// Config is the configuration for an ingestion Pipeline.
type Config struct {
	Loader   loader.Loader
	Splitter chunk.Splitter
	Embedder embeddings.Embedder
	Store    vector.Store

	// Index is passed to Store.Initialize before the first insert. Its
	// Dimensions is also the expected embedding length.
	Index vector.IndexParams

	// Publisher receives one event per run. Defaults to none.
	Publisher eventstream.Publisher

	// EmbedBatchSize is the number of chunks per embedding call (defaults to 10).
	EmbedBatchSize int

	// EmbedRetries is how many times a batch is retried after a transient
	// failure (defaults to 2). Negative disables retries.
	EmbedRetries int

	// RetryBackoff is the first retry delay; it doubles on each attempt.
	RetryBackoff time.Duration

	// EmbedRateLimit caps embedding calls per second. Zero means unlimited.
	EmbedRateLimit float64

	// InsertBatchSize is the number of records per store insert (defaults to 64).
	InsertBatchSize int

	// StageTimeout bounds each external call (defaults to 30s).
	StageTimeout time.Duration

	// OnTransition is called synchronously on every state change.
	OnTransition func(Transition)

	Logger *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	Status          State
	Source          loader.Ref
	Documents       int
	Chunks          int
	RecordsIngested int

	// Err and Kind are set when Status is StateFailed.
	Err  error
	Kind fault.Kind

	Started     time.Time
	Finished    time.Time
	Transitions []Transition
}

// Pipeline runs ingestions. It is safe for concurrent use; runs share only
// the vector store.
type Pipeline struct {
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger

	initMu      sync.Mutex
	initialized bool
}

// NewPipeline validates c and applies defaults.
func NewPipeline(c *Config) (*Pipeline, error) {
	if c.Loader == nil || c.Embedder == nil || c.Store == nil {
		return nil, errors.New("ingest pipeline requires a loader, an embedder and a store")
	}

	cfg := *c
	if cfg.Splitter.Size == 0 {
		cfg.Splitter = chunk.Splitter{Size: chunk.DefaultSize, Overlap: chunk.DefaultOverlap}
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = defaultEmbedBatchSize
	}
	if cfg.EmbedRetries == 0 {
		cfg.EmbedRetries = defaultEmbedRetries
	}
	if cfg.EmbedRetries < 0 {
		cfg.EmbedRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = defaultInsertBatchSize
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	cfg.Index = cfg.Index.WithDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var limiter *rate.Limiter
	if cfg.EmbedRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRateLimit), 1)
	}

	return &Pipeline{
		config:  cfg,
		limiter: limiter,
		logger:  logger,
	}, nil
}

type observerKey struct{}

// WithObserver returns a context that makes Run report each of its state
// changes to fn, after the pipeline's own OnTransition hook.
func WithObserver(ctx context.Context, fn func(Transition)) context.Context {
	return context.WithValue(ctx, observerKey{}, fn)
}

func observerFrom(ctx context.Context) func(Transition) {
	fn, _ := ctx.Value(observerKey{}).(func(Transition))
	return fn
}

// run tracks the mutable state of a single Run call.
type run struct {
	p       *Pipeline
	result  Result
	state   State
	observe func(Transition)
}

func (r *run) transition(to State) {
	t := Transition{From: r.state, To: to, At: time.Now()}
	r.state = to
	r.result.Status = to
	r.result.Transitions = append(r.result.Transitions, t)

	r.p.logger.Debug("ingestion state changed",
		"source", r.result.Source.String(),
		"from", string(t.From),
		"to", string(t.To),
	)
	if r.p.config.OnTransition != nil {
		r.p.config.OnTransition(t)
	}
	if r.observe != nil {
		r.observe(t)
	}
}

func (r *run) fail(op string, kind fault.Kind, err error) Result {
	err = fault.Wrap(kind, op, err)
	r.result.Err = err
	r.result.Kind = fault.KindOf(err)
	r.transition(StateFailed)
	return r.result
}

// Run ingests everything under ref. It never panics on pipeline errors; the
// outcome is reported in the Result.
func (p *Pipeline) Run(ctx context.Context, ref loader.Ref) Result {
	r := &run{
		p:       p,
		state:   StateIdle,
		observe: observerFrom(ctx),
		result: Result{
			Status:  StateIdle,
			Source:  ref,
			Started: time.Now(),
		},
	}

	result := p.execute(ctx, r)
	result.Finished = time.Now()

	p.logOutcome(result)
	p.publish(ctx, result)

	return result
}

func (p *Pipeline) execute(ctx context.Context, r *run) Result {
	ref := r.result.Source

	r.transition(StateLoading)
	docs, err := p.load(ctx, ref)
	if err != nil {
		return r.fail("ingest.load", fault.SourceUnavailable, err)
	}
	r.result.Documents = len(docs)
	if len(docs) == 0 {
		r.transition(StateDone)
		return r.result
	}

	r.transition(StateChunking)
	records := p.chunk(docs)
	r.result.Chunks = len(records)
	if len(records) == 0 {
		r.transition(StateDone)
		return r.result
	}

	r.transition(StateEmbedding)
	if err := p.embed(ctx, records); err != nil {
		return r.fail("ingest.embed", fault.Internal, err)
	}

	r.transition(StateStoring)
	if err := p.store(ctx, records, &r.result.RecordsIngested); err != nil {
		return r.fail("ingest.store", fault.Internal, err)
	}

	r.transition(StateDone)
	return r.result
}

func (p *Pipeline) load(ctx context.Context, ref loader.Ref) ([]loader.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
	defer cancel()

	var docs []loader.Document
	for doc, err := range p.config.Loader.Load(ctx, ref) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *Pipeline) chunk(docs []loader.Document) []vector.Record {
	var records []vector.Record
	for _, doc := range docs {
		source := doc.Ref.String()
		for _, c := range p.config.Splitter.Chunks(source, doc.Text) {
			meta := maps.Clone(doc.Metadata)
			if meta == nil {
				meta = map[string]any{}
			}
			meta["source"] = c.Source
			meta["ordinal"] = c.Ordinal

			records = append(records, vector.Record{
				NodeID:   fmt.Sprintf("%s#%d", c.Source, c.Ordinal),
				Text:     c.Text,
				Metadata: meta,
			})
		}
	}
	return records
}

// embed fills in every record's embedding. Nothing is stored if any batch
// ultimately fails.
func (p *Pipeline) embed(ctx context.Context, records []vector.Record) error {
	size := p.config.EmbedBatchSize
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = records[start+i].Text
		}

		vecs, err := p.embedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(vecs))
		}

		for i, v := range vecs {
			if len(v) != int(p.config.Index.Dimensions) {
				return vector.DimensionMismatch("ingest.embed", p.config.Index.Dimensions, len(v))
			}
			records[start+i].Embedding = v
		}
	}
	return nil
}

func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := p.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
		vecs, err := p.config.Embedder.EmbedBatch(callCtx, texts)
		cancel()
		if err == nil {
			return vecs, nil
		}

		if !errors.Is(err, embeddings.ErrUnavailable) || attempt >= p.config.EmbedRetries {
			return nil, err
		}

		p.logger.Warn("embedding batch failed, retrying",
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// store appends records in order. Batches inserted before a failure stay
// committed; ingested counts them.
func (p *Pipeline) store(ctx context.Context, records []vector.Record, ingested *int) error {
	if err := p.ensureIndex(ctx); err != nil {
		return err
	}

	size := p.config.InsertBatchSize
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))

		callCtx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
		err := p.config.Store.Insert(callCtx, records[start:end])
		cancel()
		if err != nil {
			return fmt.Errorf("inserting records %d-%d: %w", start, end-1, err)
		}
		*ingested += end - start
	}
	return nil
}

func (p *Pipeline) ensureIndex(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.initialized {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
	defer cancel()

	if err := p.config.Store.Initialize(ctx, p.config.Index); err != nil {
		return fmt.Errorf("initializing index: %w", err)
	}
	p.initialized = true
	return nil
}

func (p *Pipeline) logOutcome(res Result) {
	attrs := []any{
		"source", res.Source.String(),
		"status", string(res.Status),
		"documents", res.Documents,
		"chunks", res.Chunks,
		"records_ingested", res.RecordsIngested,
		"duration", res.Finished.Sub(res.Started),
	}

	if res.Status == StateFailed {
		attrs = append(attrs,
			"kind", res.Kind.String(),
			"retryable", fault.Retryable(res.Err),
			"error", res.Err,
		)
		p.logger.Error("ingestion failed", attrs...)
		return
	}
	p.logger.Info("ingestion completed", attrs...)
}

// publish emits the run's event. Failures are logged and never change the
// result.
func (p *Pipeline) publish(ctx context.Context, res Result) {
	if p.config.Publisher == nil {
		return
	}

	run := eventstream.IngestionRun{
		Status:          string(res.Status),
		Documents:       res.Documents,
		Chunks:          res.Chunks,
		RecordsIngested: res.RecordsIngested,
		StartedAt:       res.Started,
		CompletedAt:     res.Finished,
		DurationMs:      res.Finished.Sub(res.Started).Milliseconds(),
	}
	if res.Err != nil {
		run.ErrorKind = res.Kind.String()
		run.Error = res.Err.Error()
	}

	event := eventstream.NewIngestionEvent(
		eventstream.EventSource{Bucket: res.Source.Bucket, Key: res.Source.Key},
		run,
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.StageTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishIngestion(ctx, event); err != nil {
		p.logger.Warn("failed to publish ingestion event",
			"event_id", event.EventID,
			"error", err,
		)
	}
}
