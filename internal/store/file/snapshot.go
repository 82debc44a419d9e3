package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"turnos/ticket-service/internal/store"
)

// Snapshotter persists the system state as one JSON document on disk, the
// same layout earlier deployments kept in browser storage.
type Snapshotter struct {
	path string
}

func New(path string) *Snapshotter {
	return &Snapshotter{path: path}
}

func (s *Snapshotter) Load(ctx context.Context) (store.SystemState, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.SystemState{}, false, nil
		}
		return store.SystemState{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var state store.SystemState
	if err := json.Unmarshal(data, &state); err != nil {
		return store.SystemState{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return state, true, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target so a crash mid-write never leaves a truncated snapshot.
func (s *Snapshotter) Save(ctx context.Context, state store.SystemState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "state-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
