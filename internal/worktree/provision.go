package worktree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aasc77/prism/internal/logging"
	"github.com/aasc77/prism/internal/phase"
)

// Provisioner creates and tears down per-phase worktrees. Every phase
// of a task gets a fresh branch off the integration branch, checked out
// in its own directory under the worktrees root.
type Provisioner struct {
	manager      *Manager
	worktreesDir string
	logger       *logging.Logger
}

// NewProvisioner creates a Provisioner rooted at worktreesDir.
func NewProvisioner(manager *Manager, worktreesDir string, logger *logging.Logger) *Provisioner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Provisioner{
		manager:      manager,
		worktreesDir: worktreesDir,
		logger:       logger,
	}
}

// Provision ensures a worktree exists for the given task and phase and
// returns its path and branch. The branch is created off the
// integration branch. Provision is idempotent: if the worktree already
// exists (a retry, or an engine restart mid-phase) it is reused so the
// worker's in-progress state survives.
func (p *Provisioner) Provision(taskID string, ph phase.Phase) (path, branch string, err error) {
	branch = ph.BranchName(taskID)
	path = filepath.Join(p.worktreesDir, ph.WorktreeName(taskID))

	if _, statErr := os.Stat(path); statErr == nil {
		p.logger.Debug("reusing existing worktree", "path", path, "branch", branch)
		return path, branch, nil
	}

	if err := os.MkdirAll(p.worktreesDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create worktrees dir: %w", err)
	}

	base := p.manager.FindMainBranch()
	if err := p.manager.CreateFromBranch(path, branch, base); err != nil {
		return "", "", err
	}

	p.logger.Info("provisioned worktree",
		"task", taskID,
		"phase", ph.String(),
		"path", path,
		"branch", branch,
		"base", base)
	return path, branch, nil
}

// Teardown removes the worktree for a task phase and deletes its
// branch. Called after a phase merges cleanly or a task goes stuck.
// Missing worktrees are not an error.
func (p *Provisioner) Teardown(taskID string, ph phase.Phase) error {
	path := filepath.Join(p.worktreesDir, ph.WorktreeName(taskID))
	branch := ph.BranchName(taskID)

	if _, err := os.Stat(path); err == nil {
		if err := p.manager.Remove(path); err != nil {
			p.logger.Warn("worktree removal failed", "path", path, "error", err)
		}
	}

	if p.manager.BranchExists(branch) {
		if err := p.manager.DeleteBranch(branch); err != nil {
			p.logger.Warn("branch deletion failed", "branch", branch, "error", err)
		}
	}
	return nil
}

// TeardownTask removes all phase worktrees for a task.
func (p *Provisioner) TeardownTask(taskID string) {
	for _, ph := range phase.Order {
		_ = p.Teardown(taskID, ph)
	}
}
