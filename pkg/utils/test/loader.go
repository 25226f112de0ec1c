package testutils

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/loader"
)

// MockLoader serves documents from memory, keyed by "bucket/key".
type MockLoader struct {
	Documents map[string]string

	// Err, when set, is yielded instead of any document.
	Err error

	mu    sync.Mutex
	calls int
}

// NewMockLoader creates a loader holding docs.
func NewMockLoader(docs map[string]string) *MockLoader {
	return &MockLoader{Documents: docs}
}

func (m *MockLoader) Load(ctx context.Context, ref loader.Ref) iter.Seq2[loader.Document, error] {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	return func(yield func(loader.Document, error) bool) {
		if m.Err != nil {
			yield(loader.Document{}, m.Err)
			return
		}

		prefix := ref.String()
		found := false
		for _, key := range sortedKeys(m.Documents) {
			match := key == prefix
			if ref.IsPrefix() {
				match = strings.HasPrefix(key, strings.TrimSuffix(prefix, "/")+"/")
			}
			if !match {
				continue
			}
			found = true

			docRef := loader.Ref{Bucket: ref.Bucket, Key: strings.TrimPrefix(key, ref.Bucket+"/")}
			doc := loader.Document{
				Ref:  docRef,
				Name: docRef.Key[strings.LastIndex(docRef.Key, "/")+1:],
				Text: m.Documents[key],
				Metadata: map[string]any{
					"bucket": docRef.Bucket,
					"key":    docRef.Key,
				},
			}
			if !yield(doc, nil) {
				return
			}
		}

		if !found && !ref.IsPrefix() {
			yield(loader.Document{}, fault.Newf(fault.SourceNotFound, "loader.mock", "no such document: "+prefix))
		}
	}
}

// Calls returns the number of Load invocations.
func (m *MockLoader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
