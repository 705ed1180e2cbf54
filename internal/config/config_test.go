package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config invalid: %v", ValidationErrors(errs))
	}
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.PollIntervalSeconds != 5 {
		t.Errorf("poll interval = %d, want 5", cfg.Engine.PollIntervalSeconds)
	}
	if cfg.Classifier.Backend != "rule" {
		t.Errorf("classifier backend = %q, want rule", cfg.Classifier.Backend)
	}
	if cfg.Tmux.Panes["implementer"] != "0.1" {
		t.Errorf("implementer pane = %q, want 0.1", cfg.Tmux.Panes["implementer"])
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()
	viper.Set("engine.poll_interval_seconds", 0)
	viper.Set("logging.level", "loud")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() with invalid values expected error")
	}
	if !strings.Contains(err.Error(), "engine.poll_interval_seconds") {
		t.Errorf("error missing poll interval field: %v", err)
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("error missing logging level field: %v", err)
	}
}

func TestValidate_MissingPane(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Tmux.Panes, "cleaner")

	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected 1 validation error, got %d: %v", len(errs), ValidationErrors(errs))
	}
	if errs[0].Field != "tmux.panes" {
		t.Errorf("error field = %q, want tmux.panes", errs[0].Field)
	}
}

func TestValidate_OllamaBackendNeedsServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Classifier.Backend = "ollama"
	cfg.Classifier.ServerURL = ""

	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for empty server URL")
	}
}

func TestConfig_ResolvedDirs(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.MailboxDir(); got != ".prism/mailbox" {
		t.Errorf("MailboxDir() = %q", got)
	}
	if got := cfg.WorktreesDir(); got != ".prism/worktrees" {
		t.Errorf("WorktreesDir() = %q", got)
	}

	cfg.Mailbox.Dir = "/tmp/mail"
	if got := cfg.MailboxDir(); got != "/tmp/mail" {
		t.Errorf("explicit MailboxDir() = %q", got)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("message = %q", msg)
	}
}
