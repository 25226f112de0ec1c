// Package loader reads documents from a document source.
package loader

import (
	"context"
	"iter"
	"strings"
)

// Ref is the storage key of a document: a bucket and a key within it.
// An empty Key or one ending in "/" addresses every object under that prefix.
type Ref struct {
	Bucket string
	Key    string
}

// String renders the ref as "bucket/key".
func (r Ref) String() string {
	if r.Key == "" {
		return r.Bucket
	}
	return r.Bucket + "/" + r.Key
}

// IsPrefix reports whether the ref names a set of objects rather than one.
func (r Ref) IsPrefix() bool {
	return r.Key == "" || strings.HasSuffix(r.Key, "/")
}

// Document is a unit of source text. It is never mutated after loading.
type Document struct {
	// Ref is where the document was read from.
	Ref Ref

	// Name is the object's base name, e.g. "stories.txt".
	Name string

	// Text is the decoded document content.
	Text string

	// Metadata is copied onto every chunk of the document.
	Metadata map[string]any
}

// Loader produces documents for a Ref.
type Loader interface {
	// Load yields the documents under ref lazily. The sequence is finite and
	// cannot be restarted. A missing ref yields a SourceNotFound error and a
	// transient failure a SourceUnavailable error; iteration stops after the
	// first error.
	Load(ctx context.Context, ref Ref) iter.Seq2[Document, error]
}
