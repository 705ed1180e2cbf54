// Package phase defines the ordered red/green/blue pipeline stages and
// the worker roles attached to them. The order is fixed: tests are
// written before the implementation, and cleanup runs last.
package phase

import "fmt"

// Phase identifies one stage of the pipeline.
type Phase string

const (
	// Red is the test-writing stage.
	Red Phase = "red"

	// Green is the implementation stage.
	Green Phase = "green"

	// Blue is the cleanup/refactor stage.
	Blue Phase = "blue"
)

// Order is the fixed execution order of the pipeline.
var Order = []Phase{Red, Green, Blue}

// Roles maps each phase to the worker role that executes it.
var Roles = map[Phase]string{
	Red:   "tester",
	Green: "implementer",
	Blue:  "cleaner",
}

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// Valid reports whether p is a known pipeline phase.
func (p Phase) Valid() bool {
	_, ok := Roles[p]
	return ok
}

// Role returns the worker role for this phase ("tester", "implementer",
// "cleaner").
func (p Phase) Role() string {
	return Roles[p]
}

// Next returns the phase that follows p, or false when p is the last
// phase (Blue merges into the integration branch, not a next worktree).
func (p Phase) Next() (Phase, bool) {
	for i, ph := range Order {
		if ph == p && i+1 < len(Order) {
			return Order[i+1], true
		}
	}
	return "", false
}

// FromRole returns the phase a worker role belongs to.
func FromRole(role string) (Phase, bool) {
	for p, r := range Roles {
		if r == role {
			return p, true
		}
	}
	return "", false
}

// BranchName returns the branch a phase's worktree is checked out on
// for the given task, e.g. "prism/task-1/red".
func (p Phase) BranchName(taskID string) string {
	return fmt.Sprintf("prism/%s/%s", taskID, p)
}

// WorktreeName returns the directory name for a phase's worktree,
// e.g. "task-1-red".
func (p Phase) WorktreeName(taskID string) string {
	return fmt.Sprintf("%s-%s", taskID, p)
}
