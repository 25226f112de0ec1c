// Package fault is the error taxonomy shared by the ingestion and retrieval
// pipelines. Every stage boundary classifies the errors it understands into a
// Kind so callers can tell retryable infrastructure failures from fatal
// configuration problems and bad caller input.
package fault

import (
	"errors"
	"net/http"
)

// Kind classifies an error.
type Kind int

const (
	// Internal is an unexpected failure in a downstream call. Its details are
	// logged and never returned to end users.
	Internal Kind = iota

	// Validation is bad caller input. Never retried.
	Validation

	// SourceNotFound means a document reference did not resolve.
	SourceNotFound

	// SourceUnavailable is a transient failure reading the document source.
	SourceUnavailable

	// StorageUnavailable is a transient failure talking to the vector store.
	StorageUnavailable

	// Configuration is a dimension or model mismatch that needs an operator.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case SourceNotFound:
		return "source_not_found"
	case SourceUnavailable:
		return "source_unavailable"
	case StorageUnavailable:
		return "storage_unavailable"
	case Configuration:
		return "configuration"
	default:
		return "internal"
	}
}

// Error is a classified error.
type Error struct {
	// Kind is the classification.
	Kind Kind

	// Op names the operation that failed, e.g. "vector.search".
	Op string

	// Message is safe to show to callers. Only Validation messages are
	// returned verbatim by the entry points.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone: errors.Is(err, &fault.Error{Kind: fault.Validation}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// New returns a classified error wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf returns a classified error with a caller-safe message.
func Newf(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err as kind unless it is already classified, in which case
// it is returned unchanged. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return New(kind, op, err)
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or Internal when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the whole pipeline run may be retried safely.
func Retryable(err error) bool {
	switch KindOf(err) {
	case SourceUnavailable, StorageUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a Kind onto the status code the entry points return.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
