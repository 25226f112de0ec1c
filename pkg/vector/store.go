// Package vector provides interfaces and implementations for the ANN index
// that holds embedded chunks.
package vector

import "context"

// Metric is the similarity metric an index is built for.
type Metric string

// MetricCosine is the only metric supported by every backend.
const MetricCosine Metric = "cosine"

const (
	// DefaultDimensions matches text-embedding-ada-002.
	DefaultDimensions uint = 1536

	// DefaultM is the default HNSW graph degree.
	DefaultM = 16

	// DefaultEfConstruction is the default HNSW construction breadth.
	DefaultEfConstruction = 64

	// DefaultEfSearch is the default HNSW search breadth.
	DefaultEfSearch = 40

	// DefaultTopK is the number of passages retrieved per question.
	DefaultTopK = 2
)

// Record is one stored chunk with its embedding.
type Record struct {
	// ID is assigned by the store on insert. Callers leave it empty.
	ID string

	// NodeID identifies the chunk within its source, e.g. "stories.txt#3".
	NodeID string

	// Text is the chunk content returned as a retrieval passage.
	Text string

	// Metadata carries the source reference and ordinal.
	Metadata map[string]any

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// Result is a Record with its similarity to the query.
type Result struct {
	Record

	// Score is the cosine similarity (higher = more similar).
	Score float32
}

// IndexParams configures the index. Zero values mean the package defaults.
type IndexParams struct {
	Dimensions     uint
	Metric         Metric
	M              int
	EfConstruction int
	EfSearch       int
}

// SearchParams configures a single search. Zero values mean the defaults.
type SearchParams struct {
	TopK     int
	EfSearch int
}

// Store handles storage and nearest-neighbour search of embedded chunks.
type Store interface {
	// Initialize ensures the index exists. It is idempotent. An existing index
	// with a different dimension is a configuration error.
	Initialize(ctx context.Context, params IndexParams) error

	// Insert appends records. Inserting the same content twice stores it twice.
	Insert(ctx context.Context, records []Record) error

	// Search returns up to TopK records ordered by descending similarity.
	// An empty index yields an empty slice, not an error.
	Search(ctx context.Context, embedding []float32, params SearchParams) ([]Result, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
