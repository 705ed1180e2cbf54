package mailbox

import "time"

// SenderOrchestrator is the reserved sender name for messages written
// by the engine itself. The engine's poll loop discards messages with
// this sender before classification so it never reacts to its own
// instruction writes.
const SenderOrchestrator = "orchestrator"

// MessageType identifies the kind of message.
type MessageType string

const (
	// MessageInstruction assigns work to a role's worker.
	MessageInstruction MessageType = "instruction"

	// MessageReport is a worker's account of the work it performed.
	MessageReport MessageType = "report"

	// MessageRetry re-issues an instruction after a fail verdict,
	// augmented with the failure detail.
	MessageRetry MessageType = "retry"

	// MessageOperator carries free text from the operator to a worker.
	MessageOperator MessageType = "operator"

	// MessagePipelineComplete announces that no pending tasks remain.
	MessagePipelineComplete MessageType = "pipeline_complete"
)

// Message is a single durable communication between the orchestrator
// and a worker role. The read flag is monotonic: it moves false→true
// when the message is consumed and is never reset.
type Message struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Type      MessageType    `json:"type"`
	Content   map[string]any `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// FromOrchestrator reports whether the engine wrote this message itself.
func (m Message) FromOrchestrator() bool {
	return m.From == SenderOrchestrator
}
