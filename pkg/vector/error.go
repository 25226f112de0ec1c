package vector

import (
	"errors"
	"fmt"

	"github.com/danielpid/dynamic-rag/pkg/fault"
)

var (
	// ErrNotInitialized is returned when Insert or Search run before Initialize.
	ErrNotInitialized = errors.New("vector store not initialized")

	// ErrDimensionMismatch is returned when a vector does not fit the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedMetric is returned for any metric other than cosine.
	ErrUnsupportedMetric = errors.New("unsupported similarity metric")
)

// Unavailable classifies err as a retryable storage failure.
func Unavailable(op string, err error) error {
	return fault.Wrap(fault.StorageUnavailable, op, err)
}

// DimensionMismatch returns a configuration error for a vector of length got
// against an index of want dimensions.
func DimensionMismatch(op string, want uint, got int) error {
	return fault.New(fault.Configuration, op,
		fmt.Errorf("%w: index has %d dimensions, got %d", ErrDimensionMismatch, want, got))
}
