// Package engine drives the red/green/blue pipeline: it selects tasks,
// delivers instructions, consumes worker reports through the verdict
// classifier, merges finished phases forward and keeps workers honest
// with liveness nudges. All state transitions happen under a single
// mutex; the engine never evaluates two transitions concurrently.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aasc77/prism/internal/classifier"
	"github.com/aasc77/prism/internal/errors"
	"github.com/aasc77/prism/internal/event"
	"github.com/aasc77/prism/internal/logging"
	"github.com/aasc77/prism/internal/mailbox"
	"github.com/aasc77/prism/internal/merge"
	"github.com/aasc77/prism/internal/phase"
	"github.com/aasc77/prism/internal/task"
)

// Mailbox is the engine's view of the message store.
type Mailbox interface {
	Send(from, to string, msgType mailbox.MessageType, content map[string]any) (mailbox.Message, error)
	Receive(role string, unreadOnly bool) ([]mailbox.Message, error)
	History() ([]mailbox.Message, error)
}

// Merger integrates phase branches forward.
type Merger interface {
	CommitAll(dir, message string) error
	Merge(ctx context.Context, dir, sourceBranch, targetBranch string) (*merge.Result, error)
}

// Workspaces provisions and tears down per-phase worktrees.
type Workspaces interface {
	Provision(taskID string, ph phase.Phase) (path, branch string, err error)
	Teardown(taskID string, ph phase.Phase) error
	TeardownTask(taskID string)
}

// Nudger pokes quiet workers.
type Nudger interface {
	Nudge(role string) (bool, error)
	Reset(role string)
}

// Options configure an Engine.
type Options struct {
	// StateDir holds the persisted engine state.
	StateDir string
	// RepoDir is the integration checkout the final merge lands in.
	RepoDir string
	// MainBranch is the integration branch name.
	MainBranch string
	// MergeTimeout bounds a single merge; a timeout is an error, not a
	// retryable fail verdict.
	MergeTimeout time.Duration
	// ClassifierTimeout bounds a single classification call.
	ClassifierTimeout time.Duration
	// QuietWindow is how long a worker may sit on an instruction before
	// the liveness supervisor nudges it.
	QuietWindow time.Duration
	// NudgeEnabled turns the liveness supervisor on.
	NudgeEnabled bool
}

// Engine is the pipeline orchestrator.
type Engine struct {
	mu    sync.Mutex
	state *State

	opts       Options
	tasks      *task.Store
	mail       Mailbox
	merger     Merger
	workspaces Workspaces
	classify   classifier.Classifier
	nudger     Nudger
	bus        *event.Bus
	logger     *logging.Logger
	now        func() time.Time

	tickBusy sync.Mutex // held for the duration of one tick
}

// New creates an Engine, restoring persisted state when present.
func New(opts Options, tasks *task.Store, mail Mailbox, merger Merger,
	workspaces Workspaces, cls classifier.Classifier, nudger Nudger,
	bus *event.Bus, logger *logging.Logger) (*Engine, error) {

	if logger == nil {
		logger = logging.NopLogger()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	if opts.MainBranch == "" {
		opts.MainBranch = "main"
	}

	state, err := loadState(opts.StateDir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		state:      state,
		opts:       opts,
		tasks:      tasks,
		mail:       mail,
		merger:     merger,
		workspaces: workspaces,
		classify:   cls,
		nudger:     nudger,
		bus:        bus,
		logger:     logger,
		now:        time.Now,
	}
	return e, nil
}

// Tick runs one poll-classify-merge cycle followed by a liveness pass.
// Per-task failures are contained: a tick never returns an error for
// anything short of state persistence trouble.
func (e *Engine) Tick(ctx context.Context) {
	e.tickBusy.Lock()
	defer e.tickBusy.Unlock()

	e.mu.Lock()
	paused := e.state.Paused
	mode := e.state.Mode
	e.mu.Unlock()

	if paused {
		return
	}

	if mode == ModeIdle {
		e.selectNextTask()
		e.mu.Lock()
		mode = e.state.Mode
		e.mu.Unlock()
	}

	if mode.Waiting() {
		e.consumeReports(ctx)
		e.livenessPass()
	}
}

// selectNextTask picks the earliest pending task, provisions its
// workspaces and sends the first instruction. With no pending tasks
// left it announces pipeline completion exactly once.
func (e *Engine) selectNextTask() {
	next, ok := e.tasks.NextPending()
	if !ok {
		e.announceDrainedIfDone()
		return
	}

	log := e.logger.WithTask(next.ID)

	for _, ph := range phase.Order {
		if _, _, err := e.workspaces.Provision(next.ID, ph); err != nil {
			log.Error("workspace provisioning failed", "phase", ph.String(), "error", err)
			e.containTaskFailure(next.ID, fmt.Sprintf("workspace provisioning failed: %v", err))
			return
		}
	}

	if err := e.tasks.SetStatus(next.ID, task.StatusInProgress); err != nil {
		log.Error("task activation failed", "error", err)
		return
	}

	e.mu.Lock()
	e.state.ActiveTask = next.ID
	e.state.InstructionSent = make(map[string]time.Time)
	e.state.LastReport = e.now()
	e.mu.Unlock()

	if err := e.sendInstruction(next, phase.Red, ""); err != nil {
		log.Error("instruction delivery failed", "error", err)
		e.containTaskFailure(next.ID, fmt.Sprintf("instruction delivery failed: %v", err))
		return
	}

	e.setMode(ModeForPhase(phase.Red))
	e.persist()
	e.bus.Publish(event.NewTaskAssignedEvent(next.ID, next.Title, phase.Red.Role()))
	log.Info("task assigned", "title", next.Title, "phase", phase.Red.String())
}

// consumeReports reads the orchestrator inbox and feeds reports from
// the current phase's worker through the classifier.
func (e *Engine) consumeReports(ctx context.Context) {
	messages, err := e.mail.Receive(mailbox.SenderOrchestrator, true)
	if err != nil {
		e.logger.Error("inbox read failed", "error", err)
		return
	}

	for _, msg := range messages {
		// The engine's own broadcasts land in every inbox, including its
		// own. Consuming them would feed the engine its own output.
		if msg.FromOrchestrator() {
			continue
		}
		e.handleMessage(ctx, msg)
	}
}

// handleMessage classifies one worker message and applies the verdict.
func (e *Engine) handleMessage(ctx context.Context, msg mailbox.Message) {
	e.mu.Lock()
	mode := e.state.Mode
	activeID := e.state.ActiveTask
	e.mu.Unlock()

	ph, ok := mode.Phase()
	if !ok {
		return
	}

	if msg.From != ph.Role() {
		e.logger.Warn("report from out-of-phase role ignored",
			"from", msg.From, "phase", ph.String())
		return
	}

	active, err := e.tasks.Get(activeID)
	if err != nil {
		e.logger.Error("active task lookup failed", "task", activeID, "error", err)
		return
	}

	e.mu.Lock()
	e.state.LastReport = e.now()
	e.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, e.opts.ClassifierTimeout)
	classification, err := e.classify.Classify(cctx, classifier.Request{
		Role:      msg.From,
		Phase:     ph.String(),
		TaskID:    active.ID,
		TaskTitle: active.Title,
		Content:   msg.Content,
		History:   e.recentHistory(historyLimit),
	})
	cancel()
	if err != nil {
		// A classifier that times out or errors is an operator problem,
		// not a fail verdict. The task stays in its WAITING_* state.
		e.logger.Error("classification failed", "task", active.ID, "error", err)
		e.bus.Publish(event.NewEngineErrorEvent(active.ID, fmt.Sprintf("classification failed: %v", err)))
		return
	}

	e.bus.Publish(event.NewVerdictEvent(active.ID, msg.From, classification.Verdict.String(), classification.Rationale))

	switch classification.Verdict {
	case classifier.VerdictAdvance:
		e.advancePhase(ctx, active, ph)
	case classifier.VerdictFail:
		e.failPhase(active, ph, classification.Rationale)
	default:
		e.logger.Info("informational report", "task", active.ID, "role", msg.From,
			"rationale", classification.Rationale)
	}
}

// historyLimit caps how many trailing messages are summarized for
// classifier context.
const historyLimit = 6

// recentHistory summarizes the tail of the message log so the
// classifier can see the exchange that led up to the current report. A
// history read failure degrades to classifying the report alone.
func (e *Engine) recentHistory(limit int) []string {
	msgs, err := e.mail.History()
	if err != nil {
		e.logger.Warn("message history read failed", "error", err)
		return nil
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		line := fmt.Sprintf("%s -> %s (%s)", m.From, m.To, m.Type)
		if status, ok := m.Content["status"].(string); ok && status != "" {
			line += ": status=" + status
		} else if summary, ok := m.Content["summary"].(string); ok && summary != "" {
			line += ": " + summary
		}
		lines = append(lines, line)
	}
	return lines
}

// advancePhase merges the finished phase forward and either hands the
// task to the next phase's worker or completes it.
func (e *Engine) advancePhase(ctx context.Context, active task.Task, ph phase.Phase) {
	log := e.logger.WithTask(active.ID).WithPhase(ph.String())

	srcPath, srcBranch, err := e.workspaces.Provision(active.ID, ph)
	if err != nil {
		log.Error("source workspace lookup failed", "error", err)
		e.bus.Publish(event.NewEngineErrorEvent(active.ID, err.Error()))
		return
	}

	if err := e.merger.CommitAll(srcPath, fmt.Sprintf("%s phase snapshot for %s", ph, active.ID)); err != nil {
		log.Error("source snapshot commit failed", "error", err)
		e.bus.Publish(event.NewEngineErrorEvent(active.ID, err.Error()))
		return
	}

	targetDir, targetBranch, nextPh, final, err := e.mergeTarget(active.ID, ph)
	if err != nil {
		log.Error("merge target resolution failed", "error", err)
		e.bus.Publish(event.NewEngineErrorEvent(active.ID, err.Error()))
		return
	}

	mctx, cancel := context.WithTimeout(ctx, e.opts.MergeTimeout)
	_, err = e.merger.Merge(mctx, targetDir, srcBranch, targetBranch)
	cancel()

	if err != nil {
		if errors.Is(err, errors.ErrMergeConflict) {
			e.block(active.ID, ph, err)
			return
		}
		// Timeouts and other merge failures are surfaced but leave the
		// engine waiting in place for a future retry trigger.
		log.Error("merge failed", "error", err)
		e.bus.Publish(event.NewEngineErrorEvent(active.ID, err.Error()))
		return
	}

	if final {
		e.completeTask(active)
		return
	}

	if err := e.sendInstruction(active, nextPh, ""); err != nil {
		log.Error("instruction delivery failed", "phase", nextPh.String(), "error", err)
		e.bus.Publish(event.NewEngineErrorEvent(active.ID, err.Error()))
		return
	}

	e.setMode(ModeForPhase(nextPh))
	e.persist()
	e.bus.Publish(event.NewPhaseAdvancedEvent(active.ID, ph.String(), nextPh.String()))
	log.Info("phase advanced", "next", nextPh.String())
}

// mergeTarget resolves where a finished phase merges to: the next
// phase's workspace, or the integration checkout after blue.
func (e *Engine) mergeTarget(taskID string, ph phase.Phase) (dir, branch string, next phase.Phase, final bool, err error) {
	nextPh, ok := ph.Next()
	if !ok {
		return e.opts.RepoDir, e.opts.MainBranch, "", true, nil
	}
	dir, branch, err = e.workspaces.Provision(taskID, nextPh)
	return dir, branch, nextPh, false, err
}

// failPhase burns one attempt and either re-instructs the same worker
// or marks the task stuck when the budget is gone.
func (e *Engine) failPhase(active task.Task, ph phase.Phase, detail string) {
	attempts, err := e.tasks.IncrementAttempts(active.ID)
	if err != nil {
		e.logger.Error("attempt increment failed", "task", active.ID, "error", err)
		return
	}
	e.persistTasks()

	log := e.logger.WithTask(active.ID).WithPhase(ph.String())

	if attempts < active.MaxAttempts {
		if err := e.sendInstruction(active, ph, detail); err != nil {
			log.Error("retry instruction delivery failed", "error", err)
			e.bus.Publish(event.NewEngineErrorEvent(active.ID, err.Error()))
			return
		}
		e.persist()
		log.Info("phase retry", "attempts", attempts, "max_attempts", active.MaxAttempts)
		return
	}

	e.markStuck(active.ID, attempts, fmt.Sprintf("attempt budget exhausted in %s phase", ph))
}

// completeTask lands the final merge's result: task done, workspaces
// gone, back to idle and straight into the next pending task.
func (e *Engine) completeTask(active task.Task) {
	if err := e.tasks.SetStatus(active.ID, task.StatusCompleted); err != nil {
		e.logger.Error("completion status update failed", "task", active.ID, "error", err)
	}
	e.persistTasks()
	e.workspaces.TeardownTask(active.ID)

	e.mu.Lock()
	e.state.ActiveTask = ""
	e.state.Mode = ModeIdle
	e.state.InstructionSent = make(map[string]time.Time)
	e.mu.Unlock()
	e.persist()

	refreshed, _ := e.tasks.Get(active.ID)
	e.bus.Publish(event.NewTaskCompletedEvent(active.ID, refreshed.Attempts))
	e.logger.WithTask(active.ID).Info("task completed", "attempts", refreshed.Attempts)

	e.selectNextTask()
}

// markStuck parks a task for human review and moves on.
func (e *Engine) markStuck(taskID string, attempts int, reason string) {
	if err := e.tasks.SetStatus(taskID, task.StatusStuck); err != nil {
		e.logger.Error("stuck status update failed", "task", taskID, "error", err)
	}
	e.persistTasks()
	e.workspaces.TeardownTask(taskID)

	e.mu.Lock()
	e.state.ActiveTask = ""
	e.state.Mode = ModeIdle
	e.state.BlockedReason = ""
	e.state.BlockedMode = ""
	e.state.InstructionSent = make(map[string]time.Time)
	e.mu.Unlock()
	e.persist()

	e.bus.Publish(event.NewTaskStuckEvent(taskID, attempts, reason))
	e.logger.WithTask(taskID).Warn("task stuck, human review needed", "reason", reason)
}

// containTaskFailure handles an unrecoverable per-task setup error
// without letting it near the control loop.
func (e *Engine) containTaskFailure(taskID, reason string) {
	e.bus.Publish(event.NewEngineErrorEvent(taskID, reason))

	refreshed, err := e.tasks.Get(taskID)
	attempts := 0
	if err == nil {
		attempts = refreshed.Attempts
	}
	e.markStuck(taskID, attempts, reason)
}

// block halts automatic progress after a merge conflict. Only an
// operator resume exits this state.
func (e *Engine) block(taskID string, ph phase.Phase, cause error) {
	reason := blockedReason(ph)
	if cause != nil {
		reason = reason + ": " + cause.Error()
	}

	// Resume lands on the merge's receiving side. The operator resolves
	// the conflict by hand, so afterwards the pipeline waits on the next
	// phase's worker; a blue->main conflict resumes back in WAITING_BLUE.
	resumeMode := ModeForPhase(ph)
	if next, ok := ph.Next(); ok {
		resumeMode = ModeForPhase(next)
	}

	e.mu.Lock()
	e.state.BlockedMode = resumeMode
	e.state.Mode = ModeBlocked
	e.state.BlockedReason = reason
	e.mu.Unlock()
	e.persist()

	e.bus.Publish(event.NewEngineBlockedEvent(taskID, reason))
	e.logger.WithTask(taskID).Error("engine blocked on merge conflict", "reason", reason)
}

// blockedReason names the failed merge edge for the operator.
func blockedReason(ph phase.Phase) string {
	if next, ok := ph.Next(); ok {
		return fmt.Sprintf("merge %s->%s failed", ph, next)
	}
	return fmt.Sprintf("merge %s->main failed", ph)
}

// sendInstruction delivers a phase instruction to its worker. A
// non-empty failureDetail turns it into a retry instruction that
// carries what went wrong last time.
func (e *Engine) sendInstruction(active task.Task, ph phase.Phase, failureDetail string) error {
	path, branch, err := e.workspaces.Provision(active.ID, ph)
	if err != nil {
		return err
	}

	refreshed, err := e.tasks.Get(active.ID)
	if err != nil {
		refreshed = active
	}

	content := map[string]any{
		"task_id":      active.ID,
		"title":        active.Title,
		"description":  active.Description,
		"phase":        ph.String(),
		"worktree":     path,
		"branch":       branch,
		"attempts":     refreshed.Attempts,
		"max_attempts": refreshed.MaxAttempts,
	}
	if len(active.AcceptanceCriteria) > 0 {
		content["acceptance_criteria"] = active.AcceptanceCriteria
	}

	msgType := mailbox.MessageInstruction
	if failureDetail != "" {
		msgType = mailbox.MessageRetry
		content["failure_detail"] = failureDetail
		content["note"] = "previous attempt failed, address the failure detail and report again"
	}

	if _, err := e.mail.Send(mailbox.SenderOrchestrator, ph.Role(), msgType, content); err != nil {
		return err
	}

	e.mu.Lock()
	e.state.InstructionSent[ph.String()] = e.now()
	e.state.LastReport = e.now()
	e.mu.Unlock()

	e.nudger.Reset(ph.Role())
	return nil
}

// livenessPass nudges the current phase's worker when an instruction
// has been out too long with no report back.
func (e *Engine) livenessPass() {
	if !e.opts.NudgeEnabled {
		return
	}

	e.mu.Lock()
	mode := e.state.Mode
	lastReport := e.state.LastReport
	var sentAt time.Time
	if ph, ok := mode.Phase(); ok {
		sentAt = e.state.InstructionSent[ph.String()]
	}
	e.mu.Unlock()

	ph, ok := mode.Phase()
	if !ok || sentAt.IsZero() {
		return
	}

	quietSince := lastReport
	if sentAt.After(quietSince) {
		quietSince = sentAt
	}
	if e.now().Sub(quietSince) < e.opts.QuietWindow {
		return
	}

	sent, err := e.nudger.Nudge(ph.Role())
	if err != nil {
		e.logger.Warn("nudge failed", "role", ph.Role(), "error", err)
		return
	}
	if sent {
		e.bus.Publish(event.NewNudgeSentEvent(ph.Role()))
	}
}

// announceDrainedIfDone broadcasts pipeline completion once every task
// is terminal.
func (e *Engine) announceDrainedIfDone() {
	e.mu.Lock()
	announced := e.state.Drained
	e.mu.Unlock()

	if announced || !e.tasks.AllDone() {
		return
	}

	_, _, completedCount, stuckCount := e.tasks.Counts()

	for _, ph := range phase.Order {
		content := map[string]any{
			"completed": completedCount,
			"stuck":     stuckCount,
			"note":      "all tasks are terminal, the pipeline is drained",
		}
		if _, err := e.mail.Send(mailbox.SenderOrchestrator, ph.Role(), mailbox.MessagePipelineComplete, content); err != nil {
			e.logger.Warn("completion broadcast failed", "role", ph.Role(), "error", err)
		}
	}

	e.mu.Lock()
	e.state.Drained = true
	e.mu.Unlock()
	e.persist()

	e.bus.Publish(event.NewPipelineDrainedEvent(completedCount, stuckCount))
	e.logger.Info("pipeline drained", "completed", completedCount, "stuck", stuckCount)
}

// Skip marks the active task stuck and returns the engine to idle. No
// merge is attempted. Valid in any mode with an active task.
func (e *Engine) Skip() error {
	e.mu.Lock()
	activeID := e.state.ActiveTask
	e.mu.Unlock()

	if activeID == "" {
		return errors.ErrNoActiveTask
	}

	active, err := e.tasks.Get(activeID)
	if err != nil {
		return err
	}
	if active.Status.IsTerminal() {
		e.mu.Lock()
		e.state.ActiveTask = ""
		e.state.Mode = ModeIdle
		e.mu.Unlock()
		e.persist()
		return nil
	}

	e.markStuck(activeID, active.Attempts, "skipped by operator")
	return nil
}

// Resume exits BLOCKED into the WAITING_* mode of the failed merge's
// receiving phase. The merge is not re-attempted; the operator is
// expected to have resolved the conflict by hand. If that phase's
// worker was never instructed (the conflict pre-empted the handoff),
// the instruction goes out now.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.state.Mode != ModeBlocked {
		e.mu.Unlock()
		return errors.ErrNotBlocked
	}
	restored := e.state.BlockedMode
	if restored == "" {
		restored = ModeIdle
	}
	e.state.Mode = restored
	e.state.BlockedReason = ""
	e.state.BlockedMode = ""
	activeID := e.state.ActiveTask
	needInstruction := false
	var restoredPhase phase.Phase
	if ph, ok := restored.Phase(); ok && activeID != "" {
		restoredPhase = ph
		_, sent := e.state.InstructionSent[ph.String()]
		needInstruction = !sent
	}
	e.mu.Unlock()

	if needInstruction {
		if active, err := e.tasks.Get(activeID); err == nil {
			if err := e.sendInstruction(active, restoredPhase, ""); err != nil {
				e.logger.Error("instruction delivery failed", "phase", restoredPhase.String(), "error", err)
				e.bus.Publish(event.NewEngineErrorEvent(activeID, err.Error()))
			}
		}
	}
	e.persist()

	e.bus.Publish(event.NewEngineResumedEvent(activeID, restored.String()))
	e.logger.Info("engine resumed", "mode", restored.String())
	return nil
}

// Pause suspends the polling tick. In-flight work completes first
// because Tick holds tickBusy for its full duration.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.state.Paused = true
	e.mu.Unlock()
	e.persist()
	e.logger.Info("polling paused")
}

// ResumePolling re-enables the polling tick after a pause.
func (e *Engine) ResumePolling() {
	e.mu.Lock()
	e.state.Paused = false
	e.mu.Unlock()
	e.persist()
	e.logger.Info("polling resumed")
}

// NudgeRole sends an immediate operator-initiated nudge, bypassing the
// quiet window but not the cooldown.
func (e *Engine) NudgeRole(role string) error {
	if _, ok := phase.FromRole(role); !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownRole, role)
	}
	sent, err := e.nudger.Nudge(role)
	if err != nil {
		return err
	}
	if sent {
		e.bus.Publish(event.NewNudgeSentEvent(role))
	}
	return nil
}

// MessageRole sends free-form operator text to a worker's inbox.
func (e *Engine) MessageRole(role, text string) error {
	if _, ok := phase.FromRole(role); !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownRole, role)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty message", errors.ErrInvalidInput)
	}
	_, err := e.mail.Send(mailbox.SenderOrchestrator, role, mailbox.MessageOperator, map[string]any{
		"text": text,
	})
	return err
}

// Status is a point-in-time snapshot for the operator surface.
type Status struct {
	Mode          Mode
	ActiveTask    string
	BlockedReason string
	Paused        bool
	Pending       int
	InProgress    int
	Completed     int
	Stuck         int
}

// Snapshot returns the engine's current status.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	s := Status{
		Mode:          e.state.Mode,
		ActiveTask:    e.state.ActiveTask,
		BlockedReason: e.state.BlockedReason,
		Paused:        e.state.Paused,
	}
	e.mu.Unlock()

	s.Pending, s.InProgress, s.Completed, s.Stuck = e.tasks.Counts()
	return s
}

// Tasks returns a snapshot of the task list.
func (e *Engine) Tasks() []task.Task {
	return e.tasks.All()
}

// Bus exposes the event bus for operator surfaces.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// setMode changes the engine mode under the state mutex.
func (e *Engine) setMode(m Mode) {
	e.mu.Lock()
	e.state.Mode = m
	e.mu.Unlock()
}

// persist writes engine state. A persistence failure is logged, not
// raised: the in-memory state remains authoritative for this process.
func (e *Engine) persist() {
	e.mu.Lock()
	snapshot := *e.state
	snapshot.InstructionSent = make(map[string]time.Time, len(e.state.InstructionSent))
	for k, v := range e.state.InstructionSent {
		snapshot.InstructionSent[k] = v
	}
	e.mu.Unlock()

	if err := saveState(e.opts.StateDir, &snapshot); err != nil {
		e.logger.Error("state persistence failed", "error", err)
	}
}

// persistTasks writes the task list.
func (e *Engine) persistTasks() {
	if err := e.tasks.Save(); err != nil {
		e.logger.Error("task persistence failed", "error", err)
	}
}
