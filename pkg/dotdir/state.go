package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastIngestFile = "last_ingest.json"
)

// LastIngest records the outcome of the most recent CLI ingestion.
type LastIngest struct {
	Source          string    `json:"source"`
	Status          string    `json:"status"`
	Documents       int       `json:"documents"`
	Chunks          int       `json:"chunks"`
	RecordsIngested int       `json:"records_ingested"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Error           string    `json:"error,omitempty"`
}

// LoadLastIngest loads .dynrag/last_ingest.json.
// Returns nil, nil if nothing has been ingested yet or no directory exists.
func (m *Manager) LoadLastIngest(overrideDir string) (*LastIngest, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, lastIngestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last ingest: %w", err)
	}

	state := &LastIngest{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing last ingest: %w", err)
	}

	return state, nil
}

// SaveLastIngest persists state to .dynrag/last_ingest.json. Without a
// resolvable directory it does nothing.
func (m *Manager) SaveLastIngest(state *LastIngest, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil ingest state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last ingest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastIngestFile), data, 0o600); err != nil {
		return fmt.Errorf("writing last ingest: %w", err)
	}

	return nil
}

// ClearLastIngest removes the last ingest record. Returns nil if the file
// doesn't exist.
func (m *Manager) ClearLastIngest(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(dir, lastIngestFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last ingest: %w", err)
	}

	return nil
}
