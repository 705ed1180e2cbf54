// Package merge integrates one phase's branch into the next phase's
// workspace. Merges run inside the target's own checkout (a phase
// worktree, or the integration checkout for the final merge), so no
// branch switching ever happens in a directory a worker or the
// operator is using. Uncommitted changes in the target are stashed
// aside first and restored afterwards no matter how the merge ends.
package merge

import (
	"context"
	"strings"

	"github.com/aasc77/prism/internal/errors"
	"github.com/aasc77/prism/internal/logging"
	"github.com/aasc77/prism/internal/worktree"
)

// Result describes a completed merge attempt.
type Result struct {
	// SourceBranch is the phase branch that was merged.
	SourceBranch string
	// TargetBranch is the branch merged into.
	TargetBranch string
	// Conflicted is true when the merge hit conflicts and was aborted.
	Conflicted bool
	// ConflictFiles lists the files that conflicted, when known.
	ConflictFiles []string
}

// Coordinator merges phase branches forward through the pipeline.
type Coordinator struct {
	executor worktree.CommandExecutor
	logger   *logging.Logger
}

// NewCoordinator creates a Coordinator that shells out to git.
func NewCoordinator(logger *logging.Logger) *Coordinator {
	return NewCoordinatorWithExecutor(worktree.NewCLICommandExecutor(), logger)
}

// NewCoordinatorWithExecutor creates a Coordinator with a custom
// executor. This is primarily useful for testing.
func NewCoordinatorWithExecutor(executor worktree.CommandExecutor, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{executor: executor, logger: logger}
}

// CommitAll stages and commits everything in a worktree. Workers are
// expected to commit their own work, but a snapshot commit before the
// merge guarantees nothing on the source branch is left behind.
// A worktree with nothing to commit is not an error.
func (c *Coordinator) CommitAll(dir, message string) error {
	output, err := c.executor.Run(dir, "git", "add", "-A")
	if err != nil {
		return errors.NewGitError("failed to stage changes", err).
			WithRepository(dir).
			WithGitOutput(string(output))
	}

	output, err = c.executor.Run(dir, "git", "commit", "-m", message)
	if err != nil {
		if strings.Contains(string(output), "nothing to commit") {
			return nil
		}
		return errors.NewGitError("failed to commit changes", err).
			WithRepository(dir).
			WithGitOutput(string(output))
	}
	return nil
}

// Merge merges sourceBranch into the branch checked out at dir.
// Uncommitted changes in dir are stashed before the merge and restored
// after it, whichever way the merge ends.
//
// On conflict the merge is aborted, the stash restored, and the
// returned error wraps errors.ErrMergeConflict with both branch names;
// the checkout is left exactly as it was found.
func (c *Coordinator) Merge(ctx context.Context, dir, sourceBranch, targetBranch string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{SourceBranch: sourceBranch, TargetBranch: targetBranch}
	log := c.logger.With("source", sourceBranch, "target", targetBranch, "dir", dir)

	stashed, err := c.stashChanges(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if stashed {
			c.restoreStash(dir, log)
		}
	}()

	output, err := c.executor.Run(dir, "git", "merge", "--no-ff", sourceBranch,
		"-m", "Merge "+sourceBranch+" into "+targetBranch)
	if err != nil {
		outputStr := string(output)
		if isConflict(outputStr) {
			result.Conflicted = true
			result.ConflictFiles = c.conflictingFiles(dir)

			if abortOut, abortErr := c.executor.Run(dir, "git", "merge", "--abort"); abortErr != nil {
				log.Error("merge abort failed", "error", abortErr, "output", strings.TrimSpace(string(abortOut)))
			}

			log.Warn("merge conflict", "files", result.ConflictFiles)
			return result, errors.NewGitError("merge conflict between phase branches", errors.ErrMergeConflict).
				WithRepository(dir).
				WithSourceBranch(sourceBranch).
				WithBranch(targetBranch).
				WithGitOutput(outputStr)
		}
		return nil, errors.NewGitError("failed to merge phase branch", err).
			WithRepository(dir).
			WithSourceBranch(sourceBranch).
			WithBranch(targetBranch).
			WithGitOutput(outputStr)
	}

	log.Info("phase branch merged")
	return result, nil
}

// stashChanges stashes uncommitted changes, including untracked files.
// Returns true if anything was stashed.
func (c *Coordinator) stashChanges(dir string) (bool, error) {
	statusOut, err := c.executor.Run(dir, "git", "status", "--porcelain")
	if err != nil {
		return false, errors.NewGitError("failed to check git status", err).
			WithRepository(dir).
			WithGitOutput(string(statusOut))
	}
	if len(strings.TrimSpace(string(statusOut))) == 0 {
		return false, nil
	}

	output, err := c.executor.Run(dir, "git", "stash", "push", "-u", "-m", "prism-merge-stash")
	if err != nil {
		return false, errors.NewGitError("failed to stash local changes", err).
			WithRepository(dir).
			WithGitOutput(string(output))
	}
	return true, nil
}

// restoreStash pops the stash created by stashChanges. A pop failure is
// logged, not returned: the stash entry survives for manual recovery.
func (c *Coordinator) restoreStash(dir string, log *logging.Logger) {
	if output, err := c.executor.Run(dir, "git", "stash", "pop"); err != nil {
		log.Error("failed to restore stashed changes, entry kept in stash",
			"error", err, "output", strings.TrimSpace(string(output)))
	}
}

// conflictingFiles returns the unmerged paths of an in-progress merge.
func (c *Coordinator) conflictingFiles(dir string) []string {
	output, err := c.executor.Run(dir, "git", "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil
	}
	lines := strings.TrimSpace(string(output))
	if lines == "" {
		return nil
	}
	return strings.Split(lines, "\n")
}

// isConflict reports whether git merge output indicates a conflict.
func isConflict(output string) bool {
	return strings.Contains(output, "CONFLICT") ||
		strings.Contains(output, "Automatic merge failed") ||
		strings.Contains(output, "could not apply")
}
