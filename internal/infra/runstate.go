package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"playtimed/internal/domain"
)

// FileRunState implements domain.RunStateStore as a JSON file next to
// the ledger store. The status command reads it to report daemon
// liveness without talking to the daemon.
type FileRunState struct {
	path string
}

// NewFileRunState creates a run-state store at path.
func NewFileRunState(path string) *FileRunState {
	return &FileRunState{path: path}
}

// Register writes the daemon's run state.
func (r *FileRunState) Register(state domain.RunState) error {
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(&state)
}

// Heartbeat refreshes the liveness timestamp.
func (r *FileRunState) Heartbeat() error {
	state, err := r.Get()
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("run state not registered")
	}
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(state)
}

// Get returns the recorded state, or nil if none exists.
func (r *FileRunState) Get() (*domain.RunState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state: %w", err)
	}
	return &state, nil
}

// Clear removes the run state file.
func (r *FileRunState) Clear() error {
	err := os.Remove(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// atomicWrite writes state to file atomically (write + rename).
func (r *FileRunState) atomicWrite(state *domain.RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileRunState implements domain.RunStateStore.
var _ domain.RunStateStore = (*FileRunState)(nil)
