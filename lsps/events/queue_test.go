package events

import (
	"context"
	"testing"
	"time"
)

// Mock event
type testEvent struct {
	id string
}

func (e *testEvent) EventType() string {
	return "test_event"
}

func TestEventQueue_Enqueue(t *testing.T) {
	queue := NewEventQueue(10)
	defer queue.Close()

	event := &testEvent{id: "test1"}
	queue.Enqueue(event)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	received, err := queue.NextEvent(ctx)
	if err != nil {
		t.Fatalf("NextEvent failed: %v", err)
	}

	testEv, ok := received.(*testEvent)
	if !ok {
		t.Fatal("Event type mismatch")
	}

	if testEv.id != "test1" {
		t.Errorf("Expected event id test1, got %s", testEv.id)
	}
}

func TestEventQueue_Multiple(t *testing.T) {
	queue := NewEventQueue(10)
	defer queue.Close()

	for i := 0; i < 5; i++ {
		queue.Enqueue(&testEvent{id: string(rune('a' + i))})
	}

	events := queue.GetAndClearPendingEvents()

	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}

	for i, event := range events {
		testEv, ok := event.(*testEvent)
		if !ok {
			t.Fatal("Event type mismatch")
		}
		expectedID := string(rune('a' + i))
		if testEv.id != expectedID {
			t.Errorf("Expected event id %s, got %s", expectedID, testEv.id)
		}
	}
}

func TestEventQueue_ContextCancellation(t *testing.T) {
	queue := NewEventQueue(10)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := queue.NextEvent(ctx)
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
}

func TestEventQueue_BufferFull(t *testing.T) {
	queue := NewEventQueue(2)
	defer queue.Close()

	queue.Enqueue(&testEvent{id: "1"})
	queue.Enqueue(&testEvent{id: "2"})

	// Dropped, buffer full
	queue.Enqueue(&testEvent{id: "3"})

	events := queue.GetAndClearPendingEvents()

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
}

func TestEventQueue_EnqueueAfterClose(t *testing.T) {
	queue := NewEventQueue(2)
	queue.Close()

	// Must not panic
	queue.Enqueue(&testEvent{id: "late"})
}
