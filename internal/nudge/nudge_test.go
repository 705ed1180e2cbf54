package nudge

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	commands   []string
	sessionErr error
	sendErr    error
}

func (f *fakeRunner) Run(args ...string) ([]byte, error) {
	cmd := strings.Join(args, " ")
	f.commands = append(f.commands, cmd)
	if args[0] == "has-session" {
		return nil, f.sessionErr
	}
	return nil, f.sendErr
}

func testSupervisor(runner *fakeRunner, now *time.Time) *Supervisor {
	return NewSupervisor("prism", map[string]string{"tester": "0.0", "implementer": "0.1"}, nil,
		WithRunner(runner),
		WithClock(func() time.Time { return *now }),
	)
}

func TestSupervisor_Nudge_SendsTextThenEnter(t *testing.T) {
	runner := &fakeRunner{}
	now := time.Now()
	s := testSupervisor(runner, &now)

	sent, err := s.Nudge("tester")
	if err != nil {
		t.Fatalf("Nudge() error = %v", err)
	}
	if !sent {
		t.Fatal("Nudge() = false, want true")
	}

	var sends []string
	for _, cmd := range runner.commands {
		if strings.HasPrefix(cmd, "send-keys") {
			sends = append(sends, cmd)
		}
	}
	if len(sends) != 2 {
		t.Fatalf("expected 2 send-keys calls, got %v", sends)
	}
	if !strings.Contains(sends[0], DefaultPrompt) {
		t.Errorf("first send = %q, want prompt text", sends[0])
	}
	if !strings.HasSuffix(sends[1], "Enter") {
		t.Errorf("second send = %q, want Enter", sends[1])
	}
	if !strings.Contains(sends[0], "prism:0.0") {
		t.Errorf("send target = %q, want prism:0.0", sends[0])
	}
}

func TestSupervisor_Nudge_Cooldown(t *testing.T) {
	runner := &fakeRunner{}
	now := time.Now()
	s := testSupervisor(runner, &now)

	if sent, _ := s.Nudge("tester"); !sent {
		t.Fatal("first nudge suppressed")
	}
	if sent, _ := s.Nudge("tester"); sent {
		t.Error("second nudge inside cooldown was sent")
	}

	now = now.Add(DefaultCooldown + time.Second)
	if sent, _ := s.Nudge("tester"); !sent {
		t.Error("nudge after cooldown suppressed")
	}
}

func TestSupervisor_Nudge_CooldownPerRole(t *testing.T) {
	runner := &fakeRunner{}
	now := time.Now()
	s := testSupervisor(runner, &now)

	if sent, _ := s.Nudge("tester"); !sent {
		t.Fatal("tester nudge suppressed")
	}
	if sent, _ := s.Nudge("implementer"); !sent {
		t.Error("implementer nudge suppressed by tester cooldown")
	}
}

func TestSupervisor_Nudge_UnknownRole(t *testing.T) {
	runner := &fakeRunner{}
	now := time.Now()
	s := testSupervisor(runner, &now)

	if _, err := s.Nudge("janitor"); err == nil {
		t.Error("Nudge() on unknown role expected error")
	}
}

func TestSupervisor_Nudge_MissingSession(t *testing.T) {
	runner := &fakeRunner{sessionErr: fmt.Errorf("no server running")}
	now := time.Now()
	s := testSupervisor(runner, &now)

	sent, err := s.Nudge("tester")
	if err != nil {
		t.Fatalf("Nudge() with missing session error = %v, want graceful skip", err)
	}
	if sent {
		t.Error("nudge sent without a session")
	}
	for _, cmd := range runner.commands {
		if strings.HasPrefix(cmd, "send-keys") {
			t.Errorf("send-keys run without session: %q", cmd)
		}
	}
}

func TestSupervisor_Nudge_MissingSessionDoesNotStartCooldown(t *testing.T) {
	runner := &fakeRunner{sessionErr: fmt.Errorf("no server running")}
	now := time.Now()
	s := testSupervisor(runner, &now)

	if sent, _ := s.Nudge("tester"); sent {
		t.Fatal("nudge sent without a session")
	}

	// The session comes back well inside the cooldown window; the
	// skipped attempt must not have burned it.
	runner.sessionErr = nil
	sent, err := s.Nudge("tester")
	if err != nil {
		t.Fatalf("Nudge() error = %v", err)
	}
	if !sent {
		t.Error("nudge suppressed by a cooldown no delivery started")
	}
}

func TestSupervisor_Nudge_SendFailureDoesNotStartCooldown(t *testing.T) {
	runner := &fakeRunner{sendErr: fmt.Errorf("pane gone")}
	now := time.Now()
	s := testSupervisor(runner, &now)

	if sent, err := s.Nudge("tester"); err == nil || sent {
		t.Fatalf("Nudge() with failing send = (%v, %v), want error", sent, err)
	}

	runner.sendErr = nil
	if sent, _ := s.Nudge("tester"); !sent {
		t.Error("nudge suppressed after a failed send")
	}
}

func TestSupervisor_Reset(t *testing.T) {
	runner := &fakeRunner{}
	now := time.Now()
	s := testSupervisor(runner, &now)

	if sent, _ := s.Nudge("tester"); !sent {
		t.Fatal("first nudge suppressed")
	}
	s.Reset("tester")
	if sent, _ := s.Nudge("tester"); !sent {
		t.Error("nudge after Reset() suppressed")
	}
}
