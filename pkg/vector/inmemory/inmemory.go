// Package inmemory provides an in-memory vector store with exact cosine search.
package inmemory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/danielpid/dynamic-rag/pkg/vector"
)

// Store implements vector.Store with a brute-force scan over a slice.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []vector.Record
	params  vector.IndexParams
	ready   bool
	nextID  int
	logger  *slog.Logger
}

// NewStore creates an empty in-memory store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

// Initialize records the index parameters. Re-initializing with a different
// dimension fails once records exist.
func (s *Store) Initialize(_ context.Context, params vector.IndexParams) error {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready && s.params.Dimensions != params.Dimensions && len(s.records) > 0 {
		return vector.DimensionMismatch("inmemory.initialize", s.params.Dimensions, int(params.Dimensions))
	}
	s.params = params
	s.ready = true

	s.logger.Debug("in-memory vector store initialized",
		"dimensions", params.Dimensions,
	)
	return nil
}

// Insert appends records.
func (s *Store) Insert(_ context.Context, records []vector.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return vector.ErrNotInitialized
	}
	if err := vector.CheckDimensions("inmemory.insert", s.params.Dimensions, records); err != nil {
		return err
	}

	for _, r := range records {
		s.nextID++
		r.ID = strconv.Itoa(s.nextID)
		r.Embedding = slices.Clone(r.Embedding)
		r.Metadata = maps.Clone(r.Metadata)
		s.records = append(s.records, r)
	}
	return nil
}

// Search scores every record and returns the TopK best.
func (s *Store) Search(_ context.Context, embedding []float32, params vector.SearchParams) ([]vector.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, vector.ErrNotInitialized
	}
	if len(embedding) != int(s.params.Dimensions) {
		return nil, vector.DimensionMismatch("inmemory.search", s.params.Dimensions, len(embedding))
	}
	params = params.WithDefaults(s.params)

	results := make([]vector.Result, 0, len(s.records))
	for _, r := range s.records {
		results = append(results, vector.Result{
			Record: r,
			Score:  vector.CosineSimilarity(embedding, r.Embedding),
		})
	}

	// Stable so equal scores keep insertion order.
	slices.SortStableFunc(results, func(a, b vector.Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(results) > params.TopK {
		results = results[:params.TopK]
	}
	return results, nil
}

// Count returns the number of stored records.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ vector.Store = (*Store)(nil)
