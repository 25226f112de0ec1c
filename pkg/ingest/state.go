package ingest

import "time"

// State is a stage of an ingestion run.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateChunking  State = "chunking"
	StateEmbedding State = "embedding"
	StateStoring   State = "storing"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition records a move between two states.
type Transition struct {
	From State
	To   State
	At   time.Time
}
