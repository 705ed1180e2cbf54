package phase

import "testing"

func TestOrder(t *testing.T) {
	if len(Order) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(Order))
	}
	if Order[0] != Red || Order[1] != Green || Order[2] != Blue {
		t.Errorf("unexpected phase order: %v", Order)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		phase  Phase
		want   Phase
		wantOK bool
	}{
		{"red to green", Red, Green, true},
		{"green to blue", Green, Blue, true},
		{"blue is last", Blue, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.phase.Next()
			if ok != tt.wantOK {
				t.Fatalf("Next() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoles(t *testing.T) {
	if Red.Role() != "tester" {
		t.Errorf("Red role = %q, want tester", Red.Role())
	}
	if Green.Role() != "implementer" {
		t.Errorf("Green role = %q, want implementer", Green.Role())
	}
	if Blue.Role() != "cleaner" {
		t.Errorf("Blue role = %q, want cleaner", Blue.Role())
	}
}

func TestFromRole(t *testing.T) {
	p, ok := FromRole("implementer")
	if !ok || p != Green {
		t.Errorf("FromRole(implementer) = %v, %v, want green, true", p, ok)
	}

	if _, ok := FromRole("orchestrator"); ok {
		t.Error("FromRole(orchestrator) should not resolve to a phase")
	}
}

func TestBranchName(t *testing.T) {
	got := Green.BranchName("task-7")
	want := "prism/task-7/green"
	if got != want {
		t.Errorf("BranchName() = %q, want %q", got, want)
	}
}

func TestValid(t *testing.T) {
	if !Red.Valid() {
		t.Error("Red should be valid")
	}
	if Phase("purple").Valid() {
		t.Error("purple should not be valid")
	}
}
