package vector

import (
	"fmt"
	"math"

	"github.com/danielpid/dynamic-rag/pkg/fault"
)

// WithDefaults fills zero fields with the package defaults.
func (p IndexParams) WithDefaults() IndexParams {
	if p.Dimensions == 0 {
		p.Dimensions = DefaultDimensions
	}
	if p.Metric == "" {
		p.Metric = MetricCosine
	}
	if p.M <= 0 {
		p.M = DefaultM
	}
	if p.EfConstruction <= 0 {
		p.EfConstruction = DefaultEfConstruction
	}
	if p.EfSearch <= 0 {
		p.EfSearch = DefaultEfSearch
	}
	return p
}

// Validate rejects parameters no backend can honour.
func (p IndexParams) Validate() error {
	if p.Metric != MetricCosine {
		return fault.New(fault.Configuration, "vector.initialize",
			fmt.Errorf("%w: %q", ErrUnsupportedMetric, p.Metric))
	}
	return nil
}

// WithDefaults fills zero fields, taking EfSearch from the index when unset.
func (p SearchParams) WithDefaults(index IndexParams) SearchParams {
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.EfSearch <= 0 {
		p.EfSearch = index.EfSearch
	}
	if p.EfSearch <= 0 {
		p.EfSearch = DefaultEfSearch
	}
	// HNSW cannot return more candidates than ef_search.
	if p.EfSearch < p.TopK {
		p.EfSearch = p.TopK
	}
	return p
}

// CheckDimensions verifies every record fits an index of dims dimensions.
func CheckDimensions(op string, dims uint, records []Record) error {
	for _, r := range records {
		if len(r.Embedding) != int(dims) {
			return DimensionMismatch(op, dims, len(r.Embedding))
		}
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or they differ in length.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
