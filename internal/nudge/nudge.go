// Package nudge keeps workers moving. When an instruction has been
// delivered but no report has come back, the supervisor types a reminder
// into the worker's tmux pane. Nudges are rate limited per role so a
// slow worker is not flooded.
package nudge

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/aasc77/prism/internal/logging"
)

// DefaultCooldown is the minimum interval between nudges to one role.
const DefaultCooldown = 30 * time.Second

// DefaultPrompt is typed into a worker's pane when it goes quiet.
const DefaultPrompt = "Check your inbox for pending instructions and reply when done."

// Runner executes tmux commands. It exists so tests can fake tmux.
type Runner interface {
	Run(args ...string) ([]byte, error)
}

// CLIRunner runs tmux via os/exec.
type CLIRunner struct{}

// Run executes tmux with the given arguments and returns combined output.
func (CLIRunner) Run(args ...string) ([]byte, error) {
	return exec.Command("tmux", args...).CombinedOutput()
}

// Supervisor sends cooldown-gated nudges to worker panes inside a
// single tmux session. Each role maps to a pane target.
type Supervisor struct {
	session  string
	panes    map[string]string
	prompt   string
	cooldown time.Duration
	runner   Runner
	logger   *logging.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRunner replaces the tmux runner, for tests.
func WithRunner(r Runner) Option {
	return func(s *Supervisor) { s.runner = r }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// WithCooldown overrides the per-role nudge cooldown.
func WithCooldown(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithPrompt overrides the nudge text.
func WithPrompt(prompt string) Option {
	return func(s *Supervisor) {
		if prompt != "" {
			s.prompt = prompt
		}
	}
}

// NewSupervisor creates a Supervisor for the given tmux session. The
// panes map assigns each worker role a pane index or target within the
// session.
func NewSupervisor(session string, panes map[string]string, logger *logging.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Supervisor{
		session:  session,
		panes:    panes,
		prompt:   DefaultPrompt,
		cooldown: DefaultCooldown,
		runner:   CLIRunner{},
		logger:   logger,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasSession reports whether the supervised tmux session exists. A
// missing session means workers are not attached; nudging degrades to
// a no-op with a warning rather than failing the pipeline.
func (s *Supervisor) HasSession() bool {
	_, err := s.runner.Run("has-session", "-t", s.session)
	return err == nil
}

// Nudge sends the reminder prompt to a role's pane if the cooldown has
// elapsed. It returns true when a nudge was actually sent. An unknown
// role is an error; a missing tmux session is not.
func (s *Supervisor) Nudge(role string) (bool, error) {
	pane, ok := s.panes[role]
	if !ok {
		return false, fmt.Errorf("no pane configured for role %q", role)
	}

	now := s.now()

	s.mu.Lock()
	if last, ok := s.lastSent[role]; ok && now.Sub(last) < s.cooldown {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	if !s.HasSession() {
		s.logger.Warn("tmux session missing, nudge skipped", "session", s.session, "role", role)
		return false, nil
	}

	target := s.session + ":" + pane

	// Text and Enter go as separate send-keys calls. Some terminal UIs
	// swallow the trailing newline when it arrives in the same batch as
	// the text.
	if output, err := s.runner.Run("send-keys", "-t", target, s.prompt); err != nil {
		return false, fmt.Errorf("send nudge text to %s: %w: %s", target, err, output)
	}
	if output, err := s.runner.Run("send-keys", "-t", target, "Enter"); err != nil {
		return false, fmt.Errorf("send nudge enter to %s: %w: %s", target, err, output)
	}

	// The cooldown starts only once delivery succeeded; a skipped or
	// failed send leaves the role eligible for the next pass.
	s.mu.Lock()
	s.lastSent[role] = now
	s.mu.Unlock()

	s.logger.Info("nudged worker", "role", role, "target", target)
	return true, nil
}

// LastNudge returns the time of the most recent nudge to a role.
func (s *Supervisor) LastNudge(role string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastSent[role]
	return t, ok
}

// Reset clears the cooldown state for a role. Called when a fresh
// instruction is delivered, so the first follow-up nudge is not
// suppressed by an old timestamp.
func (s *Supervisor) Reset(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastSent, role)
}
