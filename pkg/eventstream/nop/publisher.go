// Package nop provides an eventstream publisher that drops every event.
package nop

import (
	"context"

	"github.com/danielpid/dynamic-rag/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishIngestion validates input and otherwise does nothing.
func (p *Publisher) PublishIngestion(_ context.Context, event *eventstream.IngestionEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestionEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
