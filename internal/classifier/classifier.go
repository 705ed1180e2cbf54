// Package classifier turns free-form worker reports into one of three
// verdicts the engine can act on. The classification boundary is the
// only place natural language is interpreted; the state machine itself
// consumes verdicts only.
package classifier

import "context"

// Verdict is the engine-facing outcome of classifying a worker report.
type Verdict string

const (
	// VerdictAdvance means the phase succeeded and the pipeline moves on.
	VerdictAdvance Verdict = "advance"

	// VerdictFail means the phase failed and is retried (or the task goes
	// stuck when the attempt budget runs out).
	VerdictFail Verdict = "fail"

	// VerdictInformational means the message carries no actionable
	// outcome. The engine keeps waiting.
	VerdictInformational Verdict = "informational"
)

// String returns the verdict name.
func (v Verdict) String() string {
	return string(v)
}

// Request carries a worker report plus the pipeline context needed to
// judge it.
type Request struct {
	// Role is the worker that sent the report.
	Role string
	// Phase is the pipeline phase the engine is waiting on.
	Phase string
	// TaskID and TaskTitle identify the active task.
	TaskID    string
	TaskTitle string
	// Content is the report body as sent by the worker.
	Content map[string]any
	// History holds recent message summaries for context. May be empty.
	History []string
}

// Classification is a verdict plus the reasoning behind it.
type Classification struct {
	Verdict   Verdict
	Rationale string
}

// Classifier judges worker reports. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Classification, error)
}
