// Package errors provides centralized error definitions for the Prism
// engine. It defines domain-specific error types (git, engine), common
// sentinel errors, and constructors that attach structured context so
// that failures surface to the operator with enough detail to act on.
//
// Creating errors:
//
//	err := errors.NewGitError("merge failed", errors.ErrMergeConflict).
//		WithRepository(path).
//		WithBranch("prism/task-1/green").
//		WithGitOutput(output)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrMergeConflict) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Git-related sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrWorktreeExists indicates that a worktree already exists.
	ErrWorktreeExists = New("worktree already exists")
	// ErrBranchExists indicates that a branch already exists.
	ErrBranchExists = New("branch already exists")
	// ErrMergeConflict indicates that a merge conflict occurred.
	ErrMergeConflict = New("merge conflict")
)

// Engine-related sentinel errors
var (
	// ErrNoActiveTask indicates an operation that requires an active task
	// was invoked while the engine is idle.
	ErrNoActiveTask = New("no active task")
	// ErrNotBlocked indicates a resume was requested while the engine is
	// not in the blocked state.
	ErrNotBlocked = New("engine is not blocked")
	// ErrBlocked indicates automatic progress is halted by an unresolved
	// merge conflict.
	ErrBlocked = New("engine is blocked")
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrUnknownRole indicates a role that is not part of the pipeline.
	ErrUnknownRole = New("unknown role")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// GitError represents errors from git operations (worktrees, branches,
// merges). It carries the repository path, branch names and raw git
// output as context.
type GitError struct {
	message      string
	cause        error
	Repository   string
	Branch       string
	SourceBranch string
	GitOutput    string
}

// NewGitError creates a new GitError wrapping cause.
func NewGitError(message string, cause error) *GitError {
	return &GitError{message: message, cause: cause}
}

// WithRepository adds the repository or worktree path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithBranch adds the target branch to the error context.
func (e *GitError) WithBranch(branch string) *GitError {
	e.Branch = branch
	return e
}

// WithSourceBranch adds the source branch to the error context.
func (e *GitError) WithSourceBranch(branch string) *GitError {
	e.SourceBranch = branch
	return e
}

// WithGitOutput attaches the raw git command output.
func (e *GitError) WithGitOutput(output string) *GitError {
	e.GitOutput = strings.TrimSpace(output)
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Repository != "" {
		parts = append(parts, "repo="+e.Repository)
	}
	if e.SourceBranch != "" {
		parts = append(parts, "source="+e.SourceBranch)
	}
	if e.Branch != "" {
		parts = append(parts, "branch="+e.Branch)
	}

	prefix := "git error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("git error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *GitError) Unwrap() error {
	return e.cause
}

// Is reports whether this error matches the target error.
func (e *GitError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// EngineError represents errors raised by the orchestration engine's
// state machine (invalid transitions, missing tasks, timeouts).
type EngineError struct {
	message string
	cause   error
	TaskID  string
	Mode    string
}

// NewEngineError creates a new EngineError wrapping cause.
func NewEngineError(message string, cause error) *EngineError {
	return &EngineError{message: message, cause: cause}
}

// WithTask adds the active task ID to the error context.
func (e *EngineError) WithTask(id string) *EngineError {
	e.TaskID = id
	return e
}

// WithMode adds the engine mode to the error context.
func (e *EngineError) WithMode(mode string) *EngineError {
	e.Mode = mode
	return e
}

// Error returns the formatted error message.
func (e *EngineError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, "task="+e.TaskID)
	}
	if e.Mode != "" {
		parts = append(parts, "mode="+e.Mode)
	}

	prefix := "engine error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("engine error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.cause
}

// Is reports whether this error matches the target error.
func (e *EngineError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}
