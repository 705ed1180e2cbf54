package cmd

import (
	"strings"
	"testing"

	"github.com/aasc77/prism/internal/classifier"
	"github.com/aasc77/prism/internal/config"
	"github.com/aasc77/prism/internal/event"
)

func TestRenderEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
		want []string
	}{
		{"assigned", event.NewTaskAssignedEvent("task-1", "first", "tester"), []string{"assigned", "task-1", "first"}},
		{"verdict", event.NewVerdictEvent("task-1", "tester", "advance", "all green"), []string{"advance", "tester", "all green"}},
		{"advanced", event.NewPhaseAdvancedEvent("task-1", "red", "green"), []string{"advanced", "red", "green"}},
		{"completed", event.NewTaskCompletedEvent("task-1", 2), []string{"completed", "task-1", "2"}},
		{"stuck", event.NewTaskStuckEvent("task-1", 5, "budget exhausted"), []string{"stuck", "budget exhausted"}},
		{"blocked", event.NewEngineBlockedEvent("task-1", "merge green->blue failed"), []string{"blocked", "green->blue"}},
		{"drained", event.NewPipelineDrainedEvent(3, 1), []string{"drained", "3", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderEvent(tt.ev)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("renderEvent() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestBuildClassifier(t *testing.T) {
	cfg := config.DefaultConfig()

	cls, err := buildClassifier(cfg, nil)
	if err != nil {
		t.Fatalf("buildClassifier() error = %v", err)
	}
	if _, ok := cls.(*classifier.RuleClassifier); !ok {
		t.Errorf("default backend = %T, want *RuleClassifier", cls)
	}

	cfg.Classifier.Backend = "ollama"
	cls, err = buildClassifier(cfg, nil)
	if err != nil {
		t.Fatalf("buildClassifier(ollama) error = %v", err)
	}
	if _, ok := cls.(*classifier.OllamaClassifier); !ok {
		t.Errorf("ollama backend = %T, want *OllamaClassifier", cls)
	}
}
