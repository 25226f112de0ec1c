package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// MockEmbedderDimensions is the vector size produced by MockEmbedder.
const MockEmbedderDimensions = 64

// MockEmbedder is a test embedder that returns predictable embeddings.
// Unless overridden, a text is embedded as a bag of hashed lower-case words,
// so texts sharing words have a positive cosine similarity.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Err, when set, is returned by every call.
	Err error

	// FailTimes makes the first n calls return Err and later calls succeed.
	FailTimes int

	mu    sync.Mutex
	calls int
	texts int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.texts += len(texts)
	call := m.calls
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil && (m.FailTimes == 0 || call <= m.FailTimes) {
		return nil, m.Err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailOn != "" && text == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", text)
		}
		if emb, ok := m.Embeddings[text]; ok {
			out[i] = emb
			continue
		}
		out[i] = BagOfWords(text)
	}
	return out, nil
}

// Calls returns the number of Embed/EmbedBatch invocations.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns the total number of texts embedded.
func (m *MockEmbedder) Texts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts
}

func (m *MockEmbedder) Close() error {
	return nil
}

// BagOfWords hashes each lower-cased word of text into one of
// MockEmbedderDimensions buckets.
func BagOfWords(text string) []float32 {
	vec := make([]float32, MockEmbedderDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%MockEmbedderDimensions]++
	}
	if len(words) == 0 {
		vec[0] = 1
	}
	return vec
}
