package event

import (
	"sync"
	"testing"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe("task.assigned", func(e Event) {
		got = append(got, e)
	})

	bus.Publish(NewTaskAssignedEvent("task-1", "Add login", "tester"))
	bus.Publish(NewTaskStuckEvent("task-1", 5, "attempts exhausted"))

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	ev, ok := got[0].(TaskAssignedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", got[0])
	}
	if ev.TaskID != "task-1" || ev.Role != "tester" {
		t.Errorf("unexpected event fields: %+v", ev)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	count := 0
	bus.SubscribeAll(func(Event) { count++ })

	bus.Publish(NewEngineBlockedEvent("task-1", "merge red->green failed"))
	bus.Publish(NewNudgeSentEvent("implementer"))

	if count != 2 {
		t.Errorf("wildcard handler called %d times, want 2", count)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe("task.completed", func(Event) { count++ })

	bus.Publish(NewTaskCompletedEvent("task-1", 2))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	bus.Publish(NewTaskCompletedEvent("task-2", 0))

	if count != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", count)
	}

	if bus.Unsubscribe("missing") {
		t.Error("Unsubscribe(missing) = true, want false")
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe("engine.error", func(Event) { panic("boom") })
	bus.Subscribe("engine.error", func(Event) { called = true })

	bus.Publish(NewEngineErrorEvent("task-1", "classifier timeout"))

	if !called {
		t.Error("second handler not called after first panicked")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewNudgeSentEvent("tester"))
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Errorf("handler called %d times, want 10", count)
	}
}
