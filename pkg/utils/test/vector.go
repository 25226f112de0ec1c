package testutils

import (
	"context"
	"sync"

	"github.com/danielpid/dynamic-rag/pkg/logger"
	"github.com/danielpid/dynamic-rag/pkg/vector"
	"github.com/danielpid/dynamic-rag/pkg/vector/inmemory"
)

// MockVectorStore is an in-memory vector store that records calls and can be
// told to fail.
type MockVectorStore struct {
	*inmemory.Store

	// SearchErr is returned by Search when set.
	SearchErr error

	// InsertErr is returned by Insert when set, after FailInsertAfter
	// successful calls.
	InsertErr       error
	FailInsertAfter int

	// InitializeErr is returned by Initialize when set.
	InitializeErr error

	mu          sync.Mutex
	searchCalls int
	insertCalls int
	inserted    [][]vector.Record
}

// NewMockVectorStore creates a mock store.
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{Store: inmemory.NewStore(logger.Nop())}
}

func (m *MockVectorStore) Initialize(ctx context.Context, params vector.IndexParams) error {
	if m.InitializeErr != nil {
		return m.InitializeErr
	}
	return m.Store.Initialize(ctx, params)
}

func (m *MockVectorStore) Insert(ctx context.Context, records []vector.Record) error {
	m.mu.Lock()
	m.insertCalls++
	call := m.insertCalls
	m.mu.Unlock()

	if m.InsertErr != nil && call > m.FailInsertAfter {
		return m.InsertErr
	}
	if err := m.Store.Insert(ctx, records); err != nil {
		return err
	}

	m.mu.Lock()
	m.inserted = append(m.inserted, records)
	m.mu.Unlock()
	return nil
}

func (m *MockVectorStore) Search(ctx context.Context, embedding []float32, params vector.SearchParams) ([]vector.Result, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Store.Search(ctx, embedding, params)
}

// SearchCalls returns the number of Search invocations.
func (m *MockVectorStore) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

// InsertCalls returns the number of Insert invocations.
func (m *MockVectorStore) InsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalls
}

// InsertedBatches returns every batch that was committed.
func (m *MockVectorStore) InsertedBatches() [][]vector.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserted
}
