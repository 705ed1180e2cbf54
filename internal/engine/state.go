package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aasc77/prism/internal/phase"
)

// Mode is the engine's current operating mode. Exactly one mode is
// active at a time.
type Mode string

const (
	// ModeIdle means no task is active; the next pending task is
	// selected on the following tick.
	ModeIdle Mode = "IDLE"

	// ModeWaitingRed through ModeWaitingBlue mean an instruction is out
	// and the engine is waiting for that phase's worker to report.
	ModeWaitingRed   Mode = "WAITING_RED"
	ModeWaitingGreen Mode = "WAITING_GREEN"
	ModeWaitingBlue  Mode = "WAITING_BLUE"

	// ModeBlocked means a merge conflict stopped automatic progress.
	// Only an operator resume exits this mode.
	ModeBlocked Mode = "BLOCKED"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Waiting reports whether the mode is one of the WAITING_* modes.
func (m Mode) Waiting() bool {
	_, ok := m.Phase()
	return ok
}

// Phase returns the pipeline phase a WAITING_* mode is waiting on.
func (m Mode) Phase() (phase.Phase, bool) {
	switch m {
	case ModeWaitingRed:
		return phase.Red, true
	case ModeWaitingGreen:
		return phase.Green, true
	case ModeWaitingBlue:
		return phase.Blue, true
	default:
		return "", false
	}
}

// ModeForPhase returns the WAITING_* mode for a pipeline phase.
func ModeForPhase(ph phase.Phase) Mode {
	switch ph {
	case phase.Red:
		return ModeWaitingRed
	case phase.Green:
		return ModeWaitingGreen
	case phase.Blue:
		return ModeWaitingBlue
	default:
		return ModeIdle
	}
}

// stateFileName is the engine state file inside the state directory.
const stateFileName = "engine.json"

// State is the engine's persisted state. It survives restarts so the
// engine resumes exactly where it stopped, without re-sending
// instructions that are already out.
type State struct {
	Mode       Mode   `json:"mode"`
	ActiveTask string `json:"active_task,omitempty"`

	// BlockedReason and BlockedMode are set only in BLOCKED.
	// BlockedMode is the WAITING_* mode to return to on resume.
	BlockedReason string `json:"blocked_reason,omitempty"`
	BlockedMode   Mode   `json:"blocked_mode,omitempty"`

	// InstructionSent records when the current task's instruction for
	// each phase was delivered. Cleared when a new task starts.
	InstructionSent map[string]time.Time `json:"instruction_sent,omitempty"`

	// LastReport is when the engine last consumed a report while in the
	// current WAITING_* mode. Drives the liveness supervisor.
	LastReport time.Time `json:"last_report,omitempty"`

	// Paused suspends the polling tick. State is otherwise preserved.
	Paused bool `json:"paused,omitempty"`

	// Drained is set once all tasks are terminal and the completion
	// broadcast has gone out, so it is sent only once.
	Drained bool `json:"drained,omitempty"`
}

// newState returns a fresh idle state.
func newState() *State {
	return &State{
		Mode:            ModeIdle,
		InstructionSent: make(map[string]time.Time),
	}
}

// loadState reads persisted engine state from dir, returning a fresh
// idle state when none exists yet.
func loadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), nil
		}
		return nil, fmt.Errorf("read engine state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse engine state: %w", err)
	}
	if state.Mode == "" {
		state.Mode = ModeIdle
	}
	if state.InstructionSent == nil {
		state.InstructionSent = make(map[string]time.Time)
	}
	return &state, nil
}

// saveState writes engine state to dir atomically.
func saveState(dir string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal engine state: %w", err)
	}

	target := filepath.Join(dir, stateFileName)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}
