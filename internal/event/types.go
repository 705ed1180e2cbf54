// Package event defines event types for decoupling the Prism engine
// from the surfaces that display its progress. The engine publishes
// events; the run command (and tests) subscribe without the engine
// knowing about either.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.assigned", "engine.blocked")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// TaskAssignedEvent is emitted when a task's instruction is delivered
// to the first (red) worker and the task enters the pipeline.
type TaskAssignedEvent struct {
	baseEvent
	TaskID string
	Title  string
	Role   string
}

// NewTaskAssignedEvent creates a TaskAssignedEvent.
func NewTaskAssignedEvent(taskID, title, role string) TaskAssignedEvent {
	return TaskAssignedEvent{
		baseEvent: newBaseEvent("task.assigned"),
		TaskID:    taskID,
		Title:     title,
		Role:      role,
	}
}

// VerdictEvent is emitted after a worker report has been classified.
type VerdictEvent struct {
	baseEvent
	TaskID    string
	Role      string
	Verdict   string
	Rationale string
}

// NewVerdictEvent creates a VerdictEvent.
func NewVerdictEvent(taskID, role, verdict, rationale string) VerdictEvent {
	return VerdictEvent{
		baseEvent: newBaseEvent("task.verdict"),
		TaskID:    taskID,
		Role:      role,
		Verdict:   verdict,
		Rationale: rationale,
	}
}

// PhaseAdvancedEvent is emitted when a phase's work has been merged
// into the next phase's worktree and the instruction handed over.
type PhaseAdvancedEvent struct {
	baseEvent
	TaskID string
	From   string
	To     string
}

// NewPhaseAdvancedEvent creates a PhaseAdvancedEvent.
func NewPhaseAdvancedEvent(taskID, from, to string) PhaseAdvancedEvent {
	return PhaseAdvancedEvent{
		baseEvent: newBaseEvent("task.phase_advanced"),
		TaskID:    taskID,
		From:      from,
		To:        to,
	}
}

// TaskCompletedEvent is emitted when the blue phase merges cleanly into
// the integration branch and the task is marked completed.
type TaskCompletedEvent struct {
	baseEvent
	TaskID   string
	Attempts int
}

// NewTaskCompletedEvent creates a TaskCompletedEvent.
func NewTaskCompletedEvent(taskID string, attempts int) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent: newBaseEvent("task.completed"),
		TaskID:    taskID,
		Attempts:  attempts,
	}
}

// TaskStuckEvent is emitted when a task exhausts its attempt budget or
// is skipped by the operator. It is the human-review signal.
type TaskStuckEvent struct {
	baseEvent
	TaskID   string
	Attempts int
	Reason   string
}

// NewTaskStuckEvent creates a TaskStuckEvent.
func NewTaskStuckEvent(taskID string, attempts int, reason string) TaskStuckEvent {
	return TaskStuckEvent{
		baseEvent: newBaseEvent("task.stuck"),
		TaskID:    taskID,
		Attempts:  attempts,
		Reason:    reason,
	}
}

// EngineBlockedEvent is emitted when a merge conflict halts automatic
// progress. Only an operator resume clears it.
type EngineBlockedEvent struct {
	baseEvent
	TaskID string
	Reason string
}

// NewEngineBlockedEvent creates an EngineBlockedEvent.
func NewEngineBlockedEvent(taskID, reason string) EngineBlockedEvent {
	return EngineBlockedEvent{
		baseEvent: newBaseEvent("engine.blocked"),
		TaskID:    taskID,
		Reason:    reason,
	}
}

// EngineResumedEvent is emitted when the operator resumes a blocked engine.
type EngineResumedEvent struct {
	baseEvent
	TaskID string
	Mode   string
}

// NewEngineResumedEvent creates an EngineResumedEvent.
func NewEngineResumedEvent(taskID, mode string) EngineResumedEvent {
	return EngineResumedEvent{
		baseEvent: newBaseEvent("engine.resumed"),
		TaskID:    taskID,
		Mode:      mode,
	}
}

// NudgeSentEvent is emitted when the liveness supervisor delivers a
// reminder to an idle worker.
type NudgeSentEvent struct {
	baseEvent
	Role string
}

// NewNudgeSentEvent creates a NudgeSentEvent.
func NewNudgeSentEvent(role string) NudgeSentEvent {
	return NudgeSentEvent{
		baseEvent: newBaseEvent("nudge.sent"),
		Role:      role,
	}
}

// PipelineDrainedEvent is emitted when no pending tasks remain.
type PipelineDrainedEvent struct {
	baseEvent
	Completed int
	Stuck     int
}

// NewPipelineDrainedEvent creates a PipelineDrainedEvent.
func NewPipelineDrainedEvent(completed, stuck int) PipelineDrainedEvent {
	return PipelineDrainedEvent{
		baseEvent: newBaseEvent("pipeline.drained"),
		Completed: completed,
		Stuck:     stuck,
	}
}

// EngineErrorEvent is emitted for contained per-task failures
// (classifier timeout, merge timeout, malformed state) that the
// operator should see without the control loop stopping.
type EngineErrorEvent struct {
	baseEvent
	TaskID string
	Err    string
}

// NewEngineErrorEvent creates an EngineErrorEvent.
func NewEngineErrorEvent(taskID, errMsg string) EngineErrorEvent {
	return EngineErrorEvent{
		baseEvent: newBaseEvent("engine.error"),
		TaskID:    taskID,
		Err:       errMsg,
	}
}
