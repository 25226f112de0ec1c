// Package retrieve answers questions from the indexed corpus: it embeds the
// question, finds the nearest chunks and asks the synthesizer for an answer
// grounded in them.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/danielpid/dynamic-rag/pkg/embeddings"
	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/synth"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

const (
	// DefaultMaxQuestionLength is the default question bound in characters.
	DefaultMaxQuestionLength = 256

	// ErrorMessage is returned to callers in place of internal failures.
	ErrorMessage = "An error occurred while processing your question"

	// NoQuestionMessage is returned for an empty or blank question.
	NoQuestionMessage = "No question provided in the request"

	defaultTimeout = 30 * time.Second
)

// QuestionTooLongMessage is returned for a question over limit characters.
func QuestionTooLongMessage(limit int) string {
	return fmt.Sprintf("The question cannot exceed the %d characters", limit)
}

// Config is the configuration for a Pipeline.
type Config struct {
	Embedder    embeddings.Embedder
	Store       vector.Store
	Synthesizer synth.Synthesizer

	// Index must match the index used for ingestion.
	Index vector.IndexParams

	// TopK and EfSearch tune the search (defaults 2 and 40).
	TopK     int
	EfSearch int

	// MaxQuestionLength bounds questions in characters (defaults to 256).
	MaxQuestionLength int

	// Timeout bounds each external call (defaults to 30s).
	Timeout time.Duration

	Logger *slog.Logger
}

// Source is a passage the answer was grounded on.
type Source struct {
	NodeID   string         `json:"node_id"`
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Answer is the result of a query.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// Pipeline answers questions. It is safe for concurrent use.
type Pipeline struct {
	config Config
	search vector.SearchParams
	logger *slog.Logger

	initMu      sync.Mutex
	initialized bool
}

// New validates c and applies defaults.
func New(c *Config) (*Pipeline, error) {
	if c.Embedder == nil || c.Store == nil || c.Synthesizer == nil {
		return nil, errors.New("retrieval pipeline requires an embedder, a store and a synthesizer")
	}

	cfg := *c
	cfg.Index = cfg.Index.WithDefaults()
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = DefaultMaxQuestionLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pipeline{
		config: cfg,
		search: vector.SearchParams{TopK: cfg.TopK, EfSearch: cfg.EfSearch}.WithDefaults(cfg.Index),
		logger: logger,
	}, nil
}

// MaxQuestionLength returns the configured question bound.
func (p *Pipeline) MaxQuestionLength() int {
	return p.config.MaxQuestionLength
}

// Validate checks a question without touching any backend.
func (p *Pipeline) Validate(question string) error {
	if strings.TrimSpace(question) == "" {
		return fault.Newf(fault.Validation, "retrieve.validate", NoQuestionMessage)
	}
	if utf8.RuneCountInString(question) > p.config.MaxQuestionLength {
		return fault.Newf(fault.Validation, "retrieve.validate", QuestionTooLongMessage(p.config.MaxQuestionLength))
	}
	return nil
}

// Answer answers question from the indexed corpus. Invalid questions return
// a Validation error; any downstream failure returns an Internal error whose
// Message is safe to show and whose cause is only logged.
func (p *Pipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	if err := p.Validate(question); err != nil {
		return nil, err
	}

	results, err := p.retrieve(ctx, question)
	if err != nil {
		return nil, p.internal("retrieve.search", question, err)
	}

	passages := Passages(results)

	synthCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	text, err := p.config.Synthesizer.Synthesize(synthCtx, question, passages)
	if err != nil {
		return nil, p.internal("retrieve.synthesize", question, err)
	}

	sources := Sources(results)

	p.logger.Debug("question answered",
		"question_length", utf8.RuneCountInString(question),
		"sources", len(sources),
	)

	return &Answer{
		Question: question,
		Answer:   text,
		Sources:  sources,
	}, nil
}

// Search returns the passages nearest to question without synthesizing.
func (p *Pipeline) Search(ctx context.Context, question string) ([]vector.Result, error) {
	if err := p.Validate(question); err != nil {
		return nil, err
	}
	results, err := p.retrieve(ctx, question)
	if err != nil {
		return nil, p.internal("retrieve.search", question, err)
	}
	return results, nil
}

func (p *Pipeline) retrieve(ctx context.Context, question string) ([]vector.Result, error) {
	if err := p.ensureIndex(ctx); err != nil {
		return nil, err
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	embedding, err := p.config.Embedder.Embed(embedCtx, question)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	results, err := p.config.Store.Search(searchCtx, embedding, p.search)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}

func (p *Pipeline) ensureIndex(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.initialized {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if err := p.config.Store.Initialize(ctx, p.config.Index); err != nil {
		return fmt.Errorf("initializing index: %w", err)
	}
	p.initialized = true
	return nil
}

// internal logs err with its classification and returns a generic error.
func (p *Pipeline) internal(op, question string, err error) error {
	p.logger.Error("query failed",
		"op", op,
		"kind", fault.KindOf(err).String(),
		"question_length", utf8.RuneCountInString(question),
		"error", err,
	)
	return &fault.Error{
		Kind:    fault.Internal,
		Op:      op,
		Message: ErrorMessage,
		Err:     err,
	}
}

// Sources converts search results into answer sources.
func Sources(results []vector.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			NodeID:   r.NodeID,
			Text:     r.Text,
			Score:    r.Score,
			Metadata: r.Metadata,
		}
	}
	return sources
}

// Passages renders results as numbered passages, most similar first. No
// results yields an empty string.
func Passages(results []vector.Result) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(strings.TrimSpace(r.Text))
	}
	return b.String()
}
