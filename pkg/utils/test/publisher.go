package testutils

import (
	"context"
	"sync"

	"github.com/danielpid/dynamic-rag/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	// Err, when set, is returned by every publish.
	Err error

	mu     sync.Mutex
	events []*eventstream.IngestionEvent
}

func (m *MockPublisher) PublishIngestion(_ context.Context, event *eventstream.IngestionEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestionEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Events returns every event passed to PublishIngestion.
func (m *MockPublisher) Events() []*eventstream.IngestionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.IngestionEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}
