package task

// Status represents the lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task is waiting to enter the pipeline.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task is actively moving through the
	// pipeline. At most one task is in progress at a time.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates all three phases merged cleanly.
	StatusCompleted Status = "completed"

	// StatusStuck indicates the task exhausted its attempt budget or was
	// skipped, and needs a human. Stuck tasks are never re-selected.
	StatusStuck Status = "stuck"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
// Tasks are never deleted, only marked terminal.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusStuck
}

// DefaultMaxAttempts is the attempt budget applied to tasks that do not
// specify one.
const DefaultMaxAttempts = 5

// Task is one unit of work moving through the pipeline. Title,
// description and acceptance criteria are operator-authored and passed
// verbatim into worker instructions; the engine owns only Status and
// Attempts.
type Task struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Status             Status   `json:"status"`
	Attempts           int      `json:"attempts"`
	MaxAttempts        int      `json:"max_attempts"`
}

// AttemptsExhausted reports whether the task has used its full budget.
func (t Task) AttemptsExhausted() bool {
	return t.Attempts >= t.MaxAttempts
}
