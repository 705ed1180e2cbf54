// Package worktree provides git worktree operations for phase
// provisioning. Each phase of a task runs in its own worktree on its
// own branch, so workers never touch the integration checkout.
//
// Git commands run through a CommandExecutor so tests can fake them
// without real repositories.
package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aasc77/prism/internal/errors"
)

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)

	// RunQuiet executes a command and returns only the error.
	RunQuiet(dir string, name string, args ...string) error
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RunQuiet executes a command and returns only the error.
func (e *CLICommandExecutor) RunQuiet(dir string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.Run()
}

// FindGitRoot returns the repository root for the given directory.
func FindGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", errors.NewGitError("failed to locate repository root", errors.ErrNotGitRepository).
			WithRepository(dir)
	}
	return strings.TrimSpace(string(output)), nil
}

// Manager manages worktrees and branches for a single repository.
type Manager struct {
	repoDir  string
	executor CommandExecutor
}

// NewManager creates a Manager that shells out to git.
func NewManager(repoDir string) *Manager {
	return &Manager{repoDir: repoDir, executor: NewCLICommandExecutor()}
}

// NewManagerWithExecutor creates a Manager with a custom executor.
// This is primarily useful for testing.
func NewManagerWithExecutor(repoDir string, executor CommandExecutor) *Manager {
	return &Manager{repoDir: repoDir, executor: executor}
}

// RepoDir returns the repository's root directory.
func (m *Manager) RepoDir() string {
	return m.repoDir
}

// FindMainBranch returns the name of the main branch (main or master).
func (m *Manager) FindMainBranch() string {
	if err := m.executor.RunQuiet(m.repoDir, "git", "rev-parse", "--verify", "main"); err == nil {
		return "main"
	}
	return "master"
}

// CreateFromBranch creates a worktree at path with a new branch based
// on baseBranch.
func (m *Manager) CreateFromBranch(path, newBranch, baseBranch string) error {
	output, err := m.executor.Run(m.repoDir, "git", "worktree", "add", "-b", newBranch, path, baseBranch)
	if err != nil {
		outputStr := string(output)
		if strings.Contains(outputStr, "already exists") {
			if strings.Contains(outputStr, "branch") {
				return errors.NewGitError("branch already exists", errors.ErrBranchExists).
					WithRepository(m.repoDir).
					WithBranch(newBranch).
					WithGitOutput(outputStr)
			}
			return errors.NewGitError("worktree already exists", errors.ErrWorktreeExists).
				WithRepository(m.repoDir).
				WithBranch(newBranch).
				WithGitOutput(outputStr)
		}
		return errors.NewGitError("failed to create worktree from "+baseBranch, err).
			WithRepository(m.repoDir).
			WithSourceBranch(baseBranch).
			WithBranch(newBranch).
			WithGitOutput(outputStr)
	}
	return nil
}

// Remove removes a worktree at the given path. On failure the directory
// is removed manually and stale worktree references are pruned.
func (m *Manager) Remove(path string) error {
	output, err := m.executor.Run(m.repoDir, "git", "worktree", "remove", "--force", path)
	if err != nil {
		_ = os.RemoveAll(path)
		_, _ = m.executor.Run(m.repoDir, "git", "worktree", "prune")

		return errors.NewGitError("failed to remove worktree cleanly", err).
			WithRepository(m.repoDir).
			WithGitOutput(string(output))
	}
	return nil
}

// List returns paths of all worktrees in the repository.
func (m *Manager) List() ([]string, error) {
	output, err := m.executor.Run(m.repoDir, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.NewGitError("failed to list worktrees", err).
			WithRepository(m.repoDir).
			WithGitOutput(string(output))
	}

	var worktrees []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "worktree ") {
			worktrees = append(worktrees, strings.TrimPrefix(line, "worktree "))
		}
	}
	return worktrees, nil
}

// GetBranch returns the current branch name for a given worktree path.
func (m *Manager) GetBranch(path string) (string, error) {
	output, err := m.executor.Run(path, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to get branch", err).
			WithRepository(path).
			WithGitOutput(string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// BranchExists reports whether a local branch exists.
func (m *Manager) BranchExists(branch string) bool {
	return m.executor.RunQuiet(m.repoDir, "git", "rev-parse", "--verify", "refs/heads/"+branch) == nil
}

// DeleteBranch force-deletes a branch by name.
func (m *Manager) DeleteBranch(branch string) error {
	output, err := m.executor.Run(m.repoDir, "git", "branch", "-D", branch)
	if err != nil {
		return errors.NewGitError("failed to delete branch", err).
			WithRepository(m.repoDir).
			WithBranch(branch).
			WithGitOutput(string(output))
	}
	return nil
}

// HasUncommittedChanges reports whether a worktree has uncommitted
// changes, including untracked files.
func (m *Manager) HasUncommittedChanges(path string) (bool, error) {
	output, err := m.executor.Run(path, "git", "status", "--porcelain")
	if err != nil {
		return false, errors.NewGitError("failed to check git status", err).
			WithRepository(path).
			WithGitOutput(string(output))
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// Prune removes stale worktree administrative files.
func (m *Manager) Prune() error {
	output, err := m.executor.Run(m.repoDir, "git", "worktree", "prune")
	if err != nil {
		return errors.NewGitError("failed to prune worktrees", err).
			WithRepository(m.repoDir).
			WithGitOutput(string(output))
	}
	return nil
}

// WorktreePath returns the absolute path for a named worktree under the
// worktrees directory.
func WorktreePath(worktreesDir, name string) string {
	return filepath.Join(worktreesDir, name)
}
