package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aasc77/prism/internal/classifier"
	"github.com/aasc77/prism/internal/errors"
	"github.com/aasc77/prism/internal/event"
	"github.com/aasc77/prism/internal/mailbox"
	"github.com/aasc77/prism/internal/merge"
	"github.com/aasc77/prism/internal/phase"
	"github.com/aasc77/prism/internal/task"
)

type fakeWorkspaces struct {
	mu         sync.Mutex
	tornDown   []string
	provisions []string
	failOn     string
}

func (f *fakeWorkspaces) Provision(taskID string, ph phase.Phase) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := taskID + "/" + ph.String()
	f.provisions = append(f.provisions, key)
	if f.failOn == key {
		return "", "", fmt.Errorf("disk full")
	}
	return "/wt/" + ph.WorktreeName(taskID), ph.BranchName(taskID), nil
}

func (f *fakeWorkspaces) Teardown(taskID string, ph phase.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tornDown = append(f.tornDown, taskID+"/"+ph.String())
	return nil
}

func (f *fakeWorkspaces) TeardownTask(taskID string) {
	for _, ph := range phase.Order {
		_ = f.Teardown(taskID, ph)
	}
}

type mergeCall struct {
	dir, source, target string
}

type fakeMerger struct {
	mu         sync.Mutex
	calls      []mergeCall
	conflictOn string // target branch that conflicts
	err        error
}

func (f *fakeMerger) CommitAll(dir, message string) error { return nil }

func (f *fakeMerger) Merge(ctx context.Context, dir, source, target string) (*merge.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mergeCall{dir: dir, source: source, target: target})
	if f.err != nil {
		return nil, f.err
	}
	if f.conflictOn != "" && target == f.conflictOn {
		return &merge.Result{SourceBranch: source, TargetBranch: target, Conflicted: true},
			errors.NewGitError("merge conflict", errors.ErrMergeConflict).
				WithSourceBranch(source).
				WithBranch(target)
	}
	return &merge.Result{SourceBranch: source, TargetBranch: target}, nil
}

func (f *fakeMerger) mergeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNudger struct {
	mu     sync.Mutex
	nudged []string
	resets []string
}

func (f *fakeNudger) Nudge(role string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nudged = append(f.nudged, role)
	return true, nil
}

func (f *fakeNudger) Reset(role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, role)
}

type testRig struct {
	engine *Engine
	mail   *mailbox.Store
	tasks  *task.Store
	merger *fakeMerger
	spaces *fakeWorkspaces
	nudger *fakeNudger
	bus    *event.Bus
}

func newTestRig(t *testing.T, taskList []*task.Task) *testRig {
	t.Helper()

	stateDir := t.TempDir()
	rig := &testRig{
		mail:   mailbox.NewStore(t.TempDir()),
		tasks:  task.NewStore(stateDir, taskList),
		merger: &fakeMerger{},
		spaces: &fakeWorkspaces{},
		nudger: &fakeNudger{},
		bus:    event.NewBus(),
	}

	opts := Options{
		StateDir:          stateDir,
		RepoDir:           "/repo",
		MainBranch:        "main",
		MergeTimeout:      5 * time.Second,
		ClassifierTimeout: 5 * time.Second,
		QuietWindow:       time.Minute,
		NudgeEnabled:      true,
	}

	eng, err := New(opts, rig.tasks, rig.mail, rig.merger, rig.spaces,
		classifier.NewRuleClassifier(), rig.nudger, rig.bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rig.engine = eng
	return rig
}

// report delivers a worker report into the orchestrator inbox.
func (r *testRig) report(t *testing.T, role, status string) {
	t.Helper()
	if _, err := r.mail.Send(role, mailbox.SenderOrchestrator, mailbox.MessageReport,
		map[string]any{"status": status}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func (r *testRig) tick() {
	r.engine.Tick(context.Background())
}

func TestEngine_AssignsFirstPendingTask(t *testing.T) {
	rig := newTestRig(t, []*task.Task{
		{ID: "task-1", Title: "first"},
		{ID: "task-2", Title: "second"},
	})

	rig.tick()

	s := rig.engine.Snapshot()
	if s.Mode != ModeWaitingRed {
		t.Errorf("mode = %v, want WAITING_RED", s.Mode)
	}
	if s.ActiveTask != "task-1" {
		t.Errorf("active task = %q, want task-1", s.ActiveTask)
	}
	if s.InProgress != 1 {
		t.Errorf("in progress = %d, want 1", s.InProgress)
	}

	// The tester got the instruction with the task text forwarded.
	inbox, err := rig.mail.Receive("tester", true)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("tester inbox has %d messages, want 1", len(inbox))
	}
	if inbox[0].Type != mailbox.MessageInstruction {
		t.Errorf("message type = %q, want instruction", inbox[0].Type)
	}
	if inbox[0].Content["title"] != "first" {
		t.Errorf("instruction title = %v", inbox[0].Content["title"])
	}
	if inbox[0].Content["branch"] != "prism/task-1/red" {
		t.Errorf("instruction branch = %v", inbox[0].Content["branch"])
	}
}

func TestEngine_FullPipeline(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})

	rig.tick() // assign, WAITING_RED

	rig.report(t, "tester", "pass")
	rig.tick() // red -> green

	s := rig.engine.Snapshot()
	if s.Mode != ModeWaitingGreen {
		t.Fatalf("mode after red advance = %v, want WAITING_GREEN", s.Mode)
	}

	rig.report(t, "implementer", "pass")
	rig.tick() // green -> blue
	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingBlue {
		t.Fatalf("mode after green advance = %v, want WAITING_BLUE", s.Mode)
	}

	rig.report(t, "cleaner", "pass")
	rig.tick() // blue -> main, completed

	s = rig.engine.Snapshot()
	if s.Mode != ModeIdle {
		t.Errorf("final mode = %v, want IDLE", s.Mode)
	}
	if s.Completed != 1 {
		t.Errorf("completed = %d, want 1", s.Completed)
	}

	// The merge chain is red->green worktree, green->blue worktree,
	// blue->main in the integration checkout.
	if rig.merger.mergeCount() != 3 {
		t.Fatalf("merge count = %d, want 3", rig.merger.mergeCount())
	}
	final := rig.merger.calls[2]
	if final.dir != "/repo" || final.target != "main" || final.source != "prism/task-1/blue" {
		t.Errorf("final merge = %+v", final)
	}
	mid := rig.merger.calls[0]
	if mid.dir != "/wt/task-1-green" || mid.target != "prism/task-1/green" {
		t.Errorf("red->green merge = %+v", mid)
	}
}

func TestEngine_FailBurnsAttemptAndRetries(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first", MaxAttempts: 3}})

	rig.tick()
	// Drain the initial instruction.
	_, _ = rig.mail.Receive("tester", true)

	rig.report(t, "tester", "fail")
	rig.tick()

	s := rig.engine.Snapshot()
	if s.Mode != ModeWaitingRed {
		t.Errorf("mode after fail = %v, want WAITING_RED", s.Mode)
	}
	got, _ := rig.tasks.Get("task-1")
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}

	// A retry instruction carries the failure detail.
	inbox, _ := rig.mail.Receive("tester", true)
	if len(inbox) != 1 {
		t.Fatalf("tester inbox has %d messages, want 1 retry", len(inbox))
	}
	if inbox[0].Type != mailbox.MessageRetry {
		t.Errorf("retry message type = %q", inbox[0].Type)
	}
	if inbox[0].Content["failure_detail"] == "" {
		t.Error("retry instruction missing failure detail")
	}
}

func TestEngine_AttemptsCarryAcrossPhases(t *testing.T) {
	// Two fails then an advance: attempts reaches 2 and stays 2 going
	// into the green phase, never reset.
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first", MaxAttempts: 3}})

	rig.tick()
	rig.report(t, "tester", "fail")
	rig.tick()
	rig.report(t, "tester", "fail")
	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()

	s := rig.engine.Snapshot()
	if s.Mode != ModeWaitingGreen {
		t.Errorf("mode = %v, want WAITING_GREEN", s.Mode)
	}
	got, _ := rig.tasks.Get("task-1")
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (not reset)", got.Attempts)
	}
	if got.Status != task.StatusInProgress {
		t.Errorf("status = %v, want in_progress", got.Status)
	}
}

func TestEngine_ExhaustedAttemptsMarksStuck(t *testing.T) {
	rig := newTestRig(t, []*task.Task{
		{ID: "task-1", Title: "first", MaxAttempts: 2},
		{ID: "task-2", Title: "second"},
	})

	rig.tick()
	rig.report(t, "tester", "fail")
	rig.tick()
	rig.report(t, "tester", "fail")
	rig.tick()

	got, _ := rig.tasks.Get("task-1")
	if got.Status != task.StatusStuck {
		t.Errorf("task-1 status = %v, want stuck", got.Status)
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", got.Attempts)
	}

	// The stuck task is skipped; the next pending task is selected.
	rig.tick()
	s := rig.engine.Snapshot()
	if s.ActiveTask != "task-2" {
		t.Errorf("active task = %q, want task-2", s.ActiveTask)
	}
	if s.Mode != ModeWaitingRed {
		t.Errorf("mode = %v, want WAITING_RED", s.Mode)
	}
}

func TestEngine_MergeConflictBlocks(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.merger.conflictOn = "prism/task-1/blue"

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()
	rig.report(t, "implementer", "pass")
	rig.tick() // green -> blue conflicts

	s := rig.engine.Snapshot()
	if s.Mode != ModeBlocked {
		t.Fatalf("mode = %v, want BLOCKED", s.Mode)
	}
	if !strings.Contains(s.BlockedReason, "green") || !strings.Contains(s.BlockedReason, "blue") {
		t.Errorf("blocked reason = %q, want both phase names", s.BlockedReason)
	}

	// Polling alone never exits BLOCKED.
	rig.report(t, "implementer", "pass")
	rig.tick()
	if s := rig.engine.Snapshot(); s.Mode != ModeBlocked {
		t.Errorf("mode after tick while blocked = %v, want BLOCKED", s.Mode)
	}
}

func TestEngine_ResumeRestoresWaitingModeWithoutRemerging(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.merger.conflictOn = "prism/task-1/blue"

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()
	rig.report(t, "implementer", "pass")
	rig.tick() // blocked on green->blue

	mergesBefore := rig.merger.mergeCount()
	if err := rig.engine.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	s := rig.engine.Snapshot()
	if s.Mode != ModeWaitingBlue {
		t.Errorf("mode after resume = %v, want WAITING_BLUE", s.Mode)
	}
	if s.BlockedReason != "" {
		t.Errorf("blocked reason not cleared: %q", s.BlockedReason)
	}
	if rig.merger.mergeCount() != mergesBefore {
		t.Error("resume re-invoked the merge")
	}

	// The conflict pre-empted the handoff to the cleaner, so resume
	// delivers the blue instruction now.
	inbox, _ := rig.mail.Receive("cleaner", true)
	if len(inbox) != 1 || inbox[0].Type != mailbox.MessageInstruction {
		t.Fatalf("cleaner inbox after resume = %+v, want 1 instruction", inbox)
	}
	if inbox[0].Content["phase"] != "blue" {
		t.Errorf("instruction phase = %v, want blue", inbox[0].Content["phase"])
	}
}

func TestEngine_ResumeAfterRedGreenConflictWaitsOnGreen(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.merger.conflictOn = "prism/task-1/green"

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick() // blocked on red->green

	if s := rig.engine.Snapshot(); s.Mode != ModeBlocked {
		t.Fatalf("mode = %v, want BLOCKED", s.Mode)
	}
	if err := rig.engine.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	// The operator resolved the merge by hand, so the pipeline now
	// waits on the receiving phase's worker, not the one that reported.
	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingGreen {
		t.Errorf("mode after resume = %v, want WAITING_GREEN", s.Mode)
	}
	inbox, _ := rig.mail.Receive("implementer", true)
	if len(inbox) != 1 || inbox[0].Type != mailbox.MessageInstruction {
		t.Fatalf("implementer inbox after resume = %+v, want 1 instruction", inbox)
	}
}

func TestEngine_ResumeAfterFinalMergeConflictDoesNotReinstruct(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.merger.conflictOn = "main"

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()
	rig.report(t, "implementer", "pass")
	rig.tick()
	// Drain the blue instruction delivered on the green advance.
	if msgs, _ := rig.mail.Receive("cleaner", true); len(msgs) != 1 {
		t.Fatalf("cleaner inbox has %d messages before conflict, want 1", len(msgs))
	}
	rig.report(t, "cleaner", "pass")
	rig.tick() // blocked on blue->main

	if err := rig.engine.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingBlue {
		t.Errorf("mode after resume = %v, want WAITING_BLUE", s.Mode)
	}
	// The cleaner already has its instruction; resume must not repeat it.
	if msgs, _ := rig.mail.Receive("cleaner", true); len(msgs) != 0 {
		t.Errorf("resume re-sent %d instructions, want 0", len(msgs))
	}
}

func TestEngine_ResumeWhenNotBlocked(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick()

	if err := rig.engine.Resume(); !errors.Is(err, errors.ErrNotBlocked) {
		t.Errorf("Resume() error = %v, want ErrNotBlocked", err)
	}
}

func TestEngine_SkipMarksStuckWithoutMerge(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick() // WAITING_GREEN
	mergesBefore := rig.merger.mergeCount()

	if err := rig.engine.Skip(); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}

	s := rig.engine.Snapshot()
	if s.Mode != ModeIdle {
		t.Errorf("mode after skip = %v, want IDLE", s.Mode)
	}
	got, _ := rig.tasks.Get("task-1")
	if got.Status != task.StatusStuck {
		t.Errorf("status = %v, want stuck", got.Status)
	}
	if rig.merger.mergeCount() != mergesBefore {
		t.Error("skip attempted a merge")
	}
}

func TestEngine_SkipWithoutActiveTask(t *testing.T) {
	rig := newTestRig(t, nil)

	if err := rig.engine.Skip(); !errors.Is(err, errors.ErrNoActiveTask) {
		t.Errorf("Skip() error = %v, want ErrNoActiveTask", err)
	}
}

func TestEngine_IgnoresOwnMessages(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick()

	// An orchestrator-authored message in its own inbox must never be
	// consumed as a report.
	if _, err := rig.mail.Send(mailbox.SenderOrchestrator, mailbox.SenderOrchestrator,
		mailbox.MessageReport, map[string]any{"status": "pass"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	rig.tick()

	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingRed {
		t.Errorf("mode = %v, want WAITING_RED (self-message consumed)", s.Mode)
	}
}

func TestEngine_IgnoresOutOfPhaseReports(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick() // WAITING_RED

	rig.report(t, "cleaner", "pass")
	rig.tick()

	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingRed {
		t.Errorf("mode = %v, want WAITING_RED (out-of-phase report applied)", s.Mode)
	}
	if rig.merger.mergeCount() != 0 {
		t.Error("out-of-phase report triggered a merge")
	}
}

func TestEngine_InformationalReportKeepsWaiting(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick()

	rig.report(t, "tester", "working on it")
	rig.tick()

	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingRed {
		t.Errorf("mode = %v, want WAITING_RED", s.Mode)
	}
	got, _ := rig.tasks.Get("task-1")
	if got.Attempts != 0 {
		t.Errorf("informational report burned an attempt: %d", got.Attempts)
	}
}

type recordingClassifier struct {
	inner classifier.Classifier
	mu    sync.Mutex
	last  classifier.Request
}

func (r *recordingClassifier) Classify(ctx context.Context, req classifier.Request) (classifier.Classification, error) {
	r.mu.Lock()
	r.last = req
	r.mu.Unlock()
	return r.inner.Classify(ctx, req)
}

func TestEngine_ClassifierSeesRecentHistory(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rec := &recordingClassifier{inner: classifier.NewRuleClassifier()}
	rig.engine.classify = rec

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()

	rec.mu.Lock()
	history := rec.last.History
	rec.mu.Unlock()

	if len(history) == 0 {
		t.Fatal("classifier request carried no message history")
	}
	joined := strings.Join(history, "\n")
	if !strings.Contains(joined, "orchestrator -> tester") {
		t.Errorf("history missing the instruction handoff: %q", joined)
	}
	if !strings.Contains(joined, "tester -> orchestrator") || !strings.Contains(joined, "status=pass") {
		t.Errorf("history missing the worker report: %q", joined)
	}
}

func TestEngine_RestartDoesNotResendInstruction(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick()

	// Drain the instruction delivered before "restart".
	if msgs, _ := rig.mail.Receive("tester", true); len(msgs) != 1 {
		t.Fatalf("expected 1 instruction before restart, got %d", len(msgs))
	}

	// A second engine over the same state dir resumes WAITING_RED.
	restarted, err := New(rig.engine.opts, rig.tasks, rig.mail, rig.merger,
		rig.spaces, classifier.NewRuleClassifier(), rig.nudger, event.NewBus(), nil)
	if err != nil {
		t.Fatalf("New() after restart error = %v", err)
	}

	restarted.Tick(context.Background())

	if s := restarted.Snapshot(); s.Mode != ModeWaitingRed {
		t.Errorf("mode after restart = %v, want WAITING_RED", s.Mode)
	}
	if msgs, _ := rig.mail.Receive("tester", true); len(msgs) != 0 {
		t.Errorf("restart re-sent %d instructions, want 0", len(msgs))
	}
}

func TestEngine_CompletionTearsDownWorkspaces(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()
	rig.report(t, "implementer", "pass")
	rig.tick()
	rig.report(t, "cleaner", "pass")
	rig.tick()

	if len(rig.spaces.tornDown) != 3 {
		t.Errorf("torn down = %v, want all three phases", rig.spaces.tornDown)
	}
}

func TestEngine_DrainedBroadcastOnce(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()
	rig.report(t, "implementer", "pass")
	rig.tick()
	rig.report(t, "cleaner", "pass")
	rig.tick() // completes and announces
	rig.tick() // must not announce again

	for _, role := range []string{"tester", "implementer", "cleaner"} {
		msgs, _ := rig.mail.Receive(role, false)
		count := 0
		for _, m := range msgs {
			if m.Type == mailbox.MessagePipelineComplete {
				count++
			}
		}
		if count != 1 {
			t.Errorf("%s got %d completion broadcasts, want 1", role, count)
		}
	}
}

func TestEngine_PauseSuspendsProcessing(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})

	rig.engine.Pause()
	rig.tick()

	if s := rig.engine.Snapshot(); s.Mode != ModeIdle {
		t.Errorf("mode while paused = %v, want IDLE", s.Mode)
	}

	rig.engine.ResumePolling()
	rig.tick()
	if s := rig.engine.Snapshot(); s.Mode != ModeWaitingRed {
		t.Errorf("mode after resume-polling = %v, want WAITING_RED", s.Mode)
	}
}

func TestEngine_LivenessNudgesQuietWorker(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick()

	// Move the clock past the quiet window.
	rig.engine.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	rig.tick()

	found := false
	for _, role := range rig.nudger.nudged {
		if role == "tester" {
			found = true
		}
	}
	if !found {
		t.Errorf("quiet tester not nudged, nudges = %v", rig.nudger.nudged)
	}
}

func TestEngine_NoNudgeInsideQuietWindow(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.tick()
	rig.tick()

	if len(rig.nudger.nudged) != 0 {
		t.Errorf("nudged inside quiet window: %v", rig.nudger.nudged)
	}
}

func TestEngine_ProvisioningFailureContained(t *testing.T) {
	rig := newTestRig(t, []*task.Task{
		{ID: "task-1", Title: "first"},
		{ID: "task-2", Title: "second"},
	})
	rig.spaces.failOn = "task-1/red"

	rig.tick() // task-1 fails to provision, contained
	rig.tick() // task-2 selected

	got, _ := rig.tasks.Get("task-1")
	if got.Status != task.StatusStuck {
		t.Errorf("task-1 status = %v, want stuck", got.Status)
	}
	if s := rig.engine.Snapshot(); s.ActiveTask != "task-2" {
		t.Errorf("active task = %q, want task-2", s.ActiveTask)
	}
}

func TestEngine_MergeTimeoutLeavesWaiting(t *testing.T) {
	rig := newTestRig(t, []*task.Task{{ID: "task-1", Title: "first"}})
	rig.merger.err = context.DeadlineExceeded

	rig.tick()
	rig.report(t, "tester", "pass")
	rig.tick()

	s := rig.engine.Snapshot()
	if s.Mode != ModeWaitingRed {
		t.Errorf("mode after merge timeout = %v, want WAITING_RED", s.Mode)
	}
	got, _ := rig.tasks.Get("task-1")
	if got.Attempts != 0 {
		t.Errorf("merge timeout burned an attempt: %d", got.Attempts)
	}
}

func TestEngine_MessageRole(t *testing.T) {
	rig := newTestRig(t, nil)

	if err := rig.engine.MessageRole("tester", "please check the fixtures"); err != nil {
		t.Fatalf("MessageRole() error = %v", err)
	}
	msgs, _ := rig.mail.Receive("tester", true)
	if len(msgs) != 1 || msgs[0].Type != mailbox.MessageOperator {
		t.Fatalf("tester inbox = %+v", msgs)
	}
	if msgs[0].Content["text"] != "please check the fixtures" {
		t.Errorf("operator text = %v", msgs[0].Content["text"])
	}

	if err := rig.engine.MessageRole("nobody", "hi"); !errors.Is(err, errors.ErrUnknownRole) {
		t.Errorf("MessageRole(nobody) error = %v, want ErrUnknownRole", err)
	}
}
