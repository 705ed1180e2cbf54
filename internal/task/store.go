// Package task manages the externally-provided task list and its
// persistence. The list is authored by the operator (or a provisioning
// step) before the engine starts; the engine mutates only status and
// attempt counts, in list order, one task at a time.
package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aasc77/prism/internal/errors"
)

const stateFileName = "tasks.json"

// persistedState is the serializable representation of the task list.
type persistedState struct {
	Tasks []*Task `json:"tasks"`
}

// Store holds the task list in memory and persists it to a JSON file.
// All access is serialized through an internal mutex; cross-process
// safety during save/load comes from a file lock.
type Store struct {
	mu    sync.Mutex
	dir   string
	tasks []*Task
}

// Load reads the task list from {dir}/tasks.json. Tasks without a
// max_attempts get DefaultMaxAttempts. A task list that cannot be read
// or parsed is a configuration error, fatal at startup.
func Load(dir string) (*Store, error) {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return nil, fmt.Errorf("read task list: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse task list: %w", err)
	}

	seen := make(map[string]bool, len(state.Tasks))
	for _, t := range state.Tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: task with empty id", errors.ErrInvalidInput)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate task id %q", errors.ErrInvalidInput, t.ID)
		}
		seen[t.ID] = true
		if t.Status == "" {
			t.Status = StatusPending
		}
		if t.MaxAttempts <= 0 {
			t.MaxAttempts = DefaultMaxAttempts
		}
	}

	return &Store{dir: dir, tasks: state.Tasks}, nil
}

// NewStore creates a store from an in-memory task list, persisting to
// dir. Used by provisioning and tests.
func NewStore(dir string, tasks []*Task) *Store {
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = StatusPending
		}
		if t.MaxAttempts <= 0 {
			t.MaxAttempts = DefaultMaxAttempts
		}
	}
	return &Store{dir: dir, tasks: tasks}
}

// Save writes the task list to {dir}/tasks.json. The write is atomic:
// data goes to a temporary file first, then is renamed into place. A
// file lock is held for cross-process safety.
func (s *Store) Save() error {
	fl := NewFileLock(s.dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	s.mu.Lock()
	data, err := json.MarshalIndent(persistedState{Tasks: s.tasks}, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal task list: %w", err)
	}

	target := filepath.Join(s.dir, stateFileName)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Get returns a copy of the task with the given ID.
func (s *Store) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return Task{}, fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	return *t, nil
}

// All returns a snapshot of every task in list order.
func (s *Store) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = *t
	}
	return out
}

// NextPending returns the earliest pending task in list order, or false
// when none remain. Stuck and completed tasks are skipped.
func (s *Store) NextPending() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.Status == StatusPending {
			return *t, true
		}
	}
	return Task{}, false
}

// InProgress returns the task currently in progress, if any.
func (s *Store) InProgress() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.Status == StatusInProgress {
			return *t, true
		}
	}
	return Task{}, false
}

// SetStatus updates a task's status. Setting a second task in_progress
// while another already is violates the single-active-task invariant
// and returns an error.
func (s *Store) SetStatus(id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	if status == StatusInProgress {
		for _, other := range s.tasks {
			if other.ID != id && other.Status == StatusInProgress {
				return fmt.Errorf("%w: task %s already in progress", errors.ErrInvalidInput, other.ID)
			}
		}
	}
	t.Status = status
	return nil
}

// IncrementAttempts bumps a task's attempt counter and returns the new
// value. The caller decides whether the budget is exhausted.
func (s *Store) IncrementAttempts(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return 0, fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	t.Attempts++
	return t.Attempts, nil
}

// Counts returns the number of tasks per status.
func (s *Store) Counts() (pending, inProgress, completed, stuck int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		switch t.Status {
		case StatusPending:
			pending++
		case StatusInProgress:
			inProgress++
		case StatusCompleted:
			completed++
		case StatusStuck:
			stuck++
		}
	}
	return
}

// AllDone reports whether every task is terminal.
func (s *Store) AllDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// find returns the task with the given ID. Caller must hold s.mu.
func (s *Store) find(id string) *Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
