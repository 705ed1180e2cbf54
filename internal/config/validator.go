package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.poll_interval_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidClassifierBackends returns the list of valid classifier backends.
func ValidClassifierBackends() []string {
	return []string{"rule", "ollama"}
}

// pipelineRoles are the worker roles every configuration must cover.
var pipelineRoles = []string{"tester", "implementer", "cleaner"}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateTmux()...)
	errors = append(errors, c.validateNudge()...)
	errors = append(errors, c.validateClassifier()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if c.Engine.StateDir == "" {
		errors = append(errors, ValidationError{
			Field:   "engine.state_dir",
			Value:   c.Engine.StateDir,
			Message: "must not be empty",
		})
	}
	if c.Engine.PollIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.poll_interval_seconds",
			Value:   c.Engine.PollIntervalSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Engine.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_attempts",
			Value:   c.Engine.MaxAttempts,
			Message: "must be at least 1",
		})
	}
	if c.Engine.MergeTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.merge_timeout_seconds",
			Value:   c.Engine.MergeTimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateTmux() []ValidationError {
	var errors []ValidationError

	if c.Tmux.Session == "" {
		errors = append(errors, ValidationError{
			Field:   "tmux.session",
			Value:   c.Tmux.Session,
			Message: "must not be empty",
		})
	}
	for _, role := range pipelineRoles {
		if _, ok := c.Tmux.Panes[role]; !ok {
			errors = append(errors, ValidationError{
				Field:   "tmux.panes",
				Value:   role,
				Message: "missing pane for pipeline role",
			})
		}
	}

	return errors
}

func (c *Config) validateNudge() []ValidationError {
	var errors []ValidationError

	if c.Nudge.CooldownSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "nudge.cooldown_seconds",
			Value:   c.Nudge.CooldownSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Nudge.QuietSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "nudge.quiet_seconds",
			Value:   c.Nudge.QuietSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateClassifier() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidClassifierBackends(), c.Classifier.Backend) {
		errors = append(errors, ValidationError{
			Field:   "classifier.backend",
			Value:   c.Classifier.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidClassifierBackends(), ", ")),
		})
	}
	if c.Classifier.Backend == "ollama" {
		if c.Classifier.ServerURL == "" {
			errors = append(errors, ValidationError{
				Field:   "classifier.server_url",
				Value:   c.Classifier.ServerURL,
				Message: "must not be empty for the ollama backend",
			})
		}
		if c.Classifier.Model == "" {
			errors = append(errors, ValidationError{
				Field:   "classifier.model",
				Value:   c.Classifier.Model,
				Message: "must not be empty for the ollama backend",
			})
		}
	}
	if c.Classifier.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "classifier.timeout_seconds",
			Value:   c.Classifier.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
