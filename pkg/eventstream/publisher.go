package eventstream

import "context"

// Publisher publishes ingestion events to an event stream backend.
type Publisher interface {
	PublishIngestion(ctx context.Context, event *IngestionEvent) error
	Close() error
}
