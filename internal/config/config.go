// Package config defines Prism's configuration, loaded through viper
// from a config file, environment variables (PRISM_ prefix) and
// defaults. Configuration errors are fatal at startup; the engine never
// runs with a partially valid config.
package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Prism configuration.
type Config struct {
	Repo       RepoConfig       `mapstructure:"repo"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Mailbox    MailboxConfig    `mapstructure:"mailbox"`
	Tmux       TmuxConfig       `mapstructure:"tmux"`
	Nudge      NudgeConfig      `mapstructure:"nudge"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RepoConfig locates the repository the pipeline works on.
type RepoConfig struct {
	// Path is the integration checkout. Empty means the current directory.
	Path string `mapstructure:"path"`
	// WorktreesDir is where per-phase worktrees are created. Empty means
	// a "worktrees" directory next to the state dir.
	WorktreesDir string `mapstructure:"worktrees_dir"`
}

// EngineConfig controls the orchestration loop.
type EngineConfig struct {
	// StateDir holds engine state, the task list and logs (default: ".prism")
	StateDir string `mapstructure:"state_dir"`
	// PollIntervalSeconds is how often inboxes are polled (default: 5)
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	// MaxAttempts is the default per-task attempt budget (default: 5)
	MaxAttempts int `mapstructure:"max_attempts"`
	// MergeTimeoutSeconds bounds a single merge operation (default: 120)
	MergeTimeoutSeconds int `mapstructure:"merge_timeout_seconds"`
}

// MailboxConfig controls message exchange with workers.
type MailboxConfig struct {
	// Dir is the mailbox root. Empty means "{state_dir}/mailbox".
	Dir string `mapstructure:"dir"`
}

// TmuxConfig describes where workers live.
type TmuxConfig struct {
	// Session is the tmux session the workers run in (default: "prism")
	Session string `mapstructure:"session"`
	// Panes maps worker roles to pane targets within the session.
	Panes map[string]string `mapstructure:"panes"`
}

// NudgeConfig controls the liveness supervisor.
type NudgeConfig struct {
	// Enabled turns nudging on (default: true)
	Enabled bool `mapstructure:"enabled"`
	// CooldownSeconds is the minimum interval between nudges to one role (default: 30)
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
	// Prompt is the text typed into a quiet worker's pane.
	Prompt string `mapstructure:"prompt"`
	// QuietSeconds is how long a worker may sit on an instruction before
	// the first nudge (default: 60)
	QuietSeconds int `mapstructure:"quiet_seconds"`
}

// ClassifierConfig selects the verdict backend.
type ClassifierConfig struct {
	// Backend is "rule" or "ollama" (default: "rule")
	Backend string `mapstructure:"backend"`
	// ServerURL is the Ollama server address (default: "http://localhost:11434")
	ServerURL string `mapstructure:"server_url"`
	// Model is the Ollama model name (default: "llama3.2")
	Model string `mapstructure:"model"`
	// TimeoutSeconds bounds a single classification call (default: 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: "info")
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path:         "",
			WorktreesDir: "",
		},
		Engine: EngineConfig{
			StateDir:            ".prism",
			PollIntervalSeconds: 5,
			MaxAttempts:         5,
			MergeTimeoutSeconds: 120,
		},
		Mailbox: MailboxConfig{
			Dir: "",
		},
		Tmux: TmuxConfig{
			Session: "prism",
			Panes: map[string]string{
				"tester":      "0.0",
				"implementer": "0.1",
				"cleaner":     "0.2",
			},
		},
		Nudge: NudgeConfig{
			Enabled:         true,
			CooldownSeconds: 30,
			Prompt:          "",
			QuietSeconds:    60,
		},
		Classifier: ClassifierConfig{
			Backend:        "rule",
			ServerURL:      "http://localhost:11434",
			Model:          "llama3.2",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("repo.path", defaults.Repo.Path)
	viper.SetDefault("repo.worktrees_dir", defaults.Repo.WorktreesDir)

	viper.SetDefault("engine.state_dir", defaults.Engine.StateDir)
	viper.SetDefault("engine.poll_interval_seconds", defaults.Engine.PollIntervalSeconds)
	viper.SetDefault("engine.max_attempts", defaults.Engine.MaxAttempts)
	viper.SetDefault("engine.merge_timeout_seconds", defaults.Engine.MergeTimeoutSeconds)

	viper.SetDefault("mailbox.dir", defaults.Mailbox.Dir)

	viper.SetDefault("tmux.session", defaults.Tmux.Session)
	viper.SetDefault("tmux.panes", defaults.Tmux.Panes)

	viper.SetDefault("nudge.enabled", defaults.Nudge.Enabled)
	viper.SetDefault("nudge.cooldown_seconds", defaults.Nudge.CooldownSeconds)
	viper.SetDefault("nudge.prompt", defaults.Nudge.Prompt)
	viper.SetDefault("nudge.quiet_seconds", defaults.Nudge.QuietSeconds)

	viper.SetDefault("classifier.backend", defaults.Classifier.Backend)
	viper.SetDefault("classifier.server_url", defaults.Classifier.ServerURL)
	viper.SetDefault("classifier.model", defaults.Classifier.Model)
	viper.SetDefault("classifier.timeout_seconds", defaults.Classifier.TimeoutSeconds)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load unmarshals and validates the configuration from viper.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalSeconds) * time.Second
}

// MergeTimeout returns the merge timeout as a duration.
func (c *Config) MergeTimeout() time.Duration {
	return time.Duration(c.Engine.MergeTimeoutSeconds) * time.Second
}

// NudgeCooldown returns the nudge cooldown as a duration.
func (c *Config) NudgeCooldown() time.Duration {
	return time.Duration(c.Nudge.CooldownSeconds) * time.Second
}

// QuietWindow returns how long a worker may sit on an instruction
// before the first nudge.
func (c *Config) QuietWindow() time.Duration {
	return time.Duration(c.Nudge.QuietSeconds) * time.Second
}

// ClassifierTimeout returns the classification timeout as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// MailboxDir resolves the mailbox directory, defaulting to a mailbox
// directory inside the state dir.
func (c *Config) MailboxDir() string {
	if c.Mailbox.Dir != "" {
		return c.Mailbox.Dir
	}
	return filepath.Join(c.Engine.StateDir, "mailbox")
}

// WorktreesDir resolves the worktrees directory, defaulting to a
// worktrees directory inside the state dir.
func (c *Config) WorktreesDir() string {
	if c.Repo.WorktreesDir != "" {
		return c.Repo.WorktreesDir
	}
	return filepath.Join(c.Engine.StateDir, "worktrees")
}
