// Package eventstream defines the events emitted when an ingestion run ends
// and the publishers that deliver them.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeIngestionCompleted is emitted after an ingestion run finishes,
	// successfully or not.
	EventTypeIngestionCompleted = "dynrag.ingestion.completed"
)

// IngestionEvent is a transport-neutral event payload for a finished run.
type IngestionEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Run           IngestionRun `json:"run"`
}

// EventSource identifies what was ingested.
type EventSource struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key,omitempty"`
}

// IngestionRun captures the outcome of the run.
type IngestionRun struct {
	Status          string    `json:"status"`
	Documents       int       `json:"documents"`
	Chunks          int       `json:"chunks"`
	RecordsIngested int       `json:"records_ingested"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationMs      int64     `json:"duration_ms"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// NewIngestionEvent stamps a run with a fresh event ID and emission time.
func NewIngestionEvent(source EventSource, run IngestionRun) *IngestionEvent {
	return &IngestionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeIngestionCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Run:           run,
	}
}
