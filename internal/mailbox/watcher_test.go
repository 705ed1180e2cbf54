package mailbox

import (
	"testing"
	"time"
)

func TestWatcher_SignalsOnSend(t *testing.T) {
	store := NewStore(t.TempDir())

	w, err := NewWatcher(store, []string{"tester"})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	if _, err := store.Send(SenderOrchestrator, "tester", MessageInstruction, nil); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no watcher signal after send")
	}
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	store := NewStore(t.TempDir())

	w, err := NewWatcher(store, []string{"implementer"})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	for range 5 {
		if _, err := store.Send("tester", "implementer", MessageReport, nil); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	// Drain whatever signals arrived; the channel has capacity one, so
	// a burst must not block the watcher loop.
	deadline := time.After(2 * time.Second)
	select {
	case <-w.Events():
	case <-deadline:
		t.Fatal("no watcher signal after burst")
	}

	if _, err := store.Receive("implementer", true); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())

	w, err := NewWatcher(store, []string{"cleaner"})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
