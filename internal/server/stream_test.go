package server

import (
	"testing"
	"time"
)

func TestEventBroadcaster_SubscribeGetsLatest(t *testing.T) {
	eb := NewEventBroadcaster()
	eb.Broadcast(ProgressEvent{JobID: "a", State: StateRunning, Iterations: 3})

	ch := eb.Subscribe("a")
	defer eb.Unsubscribe("a", ch)

	select {
	case event := <-ch:
		if event.Iterations != 3 {
			t.Errorf("Expected latest event, got %+v", event)
		}
	default:
		t.Fatal("Expected the latest event to be queued")
	}
}

func TestEventBroadcaster_FinishWithFullBuffer(t *testing.T) {
	eb := NewEventBroadcaster()
	ch := eb.Subscribe("a")

	for i := 1; i <= 3*subscriberBuffer; i++ {
		eb.Broadcast(ProgressEvent{JobID: "a", State: StateRunning, Iterations: i})
	}
	eb.Finish(ProgressEvent{JobID: "a", State: StateCompleted, Iterations: 99})

	var events []ProgressEvent
	for event := range ch {
		events = append(events, event)
	}
	if len(events) != subscriberBuffer {
		t.Fatalf("Expected %d events, got %d", subscriberBuffer, len(events))
	}
	if last := events[len(events)-1]; last.State != StateCompleted || last.Iterations != 99 {
		t.Errorf("Expected the final event last, got %+v", last)
	}
	// the oldest progress event made room
	if events[0].Iterations != 2 {
		t.Errorf("Expected first kept event to be the second one, got %+v", events[0])
	}

	eb.Unsubscribe("a", ch)
}

func TestEventBroadcaster_FinishForgetsJob(t *testing.T) {
	eb := NewEventBroadcaster()
	eb.Broadcast(ProgressEvent{JobID: "a", State: StateRunning})
	eb.Broadcast(ProgressEvent{JobID: "b", State: StateRunning})
	eb.Finish(ProgressEvent{JobID: "a", State: StateFailed})

	if _, ok := eb.latest["a"]; ok {
		t.Error("Finished job should not keep its latest event")
	}
	if _, ok := eb.latest["b"]; !ok {
		t.Error("Running job should keep its latest event")
	}

	// a late subscriber of a finished job gets nothing queued
	ch := eb.Subscribe("a")
	select {
	case event := <-ch:
		t.Errorf("Unexpected event %+v", event)
	case <-time.After(10 * time.Millisecond):
	}
	eb.Unsubscribe("a", ch)
	if _, ok := eb.subs["a"]; ok {
		t.Error("Unsubscribe should drop the empty subscriber set")
	}
}

func TestEventBroadcaster_UnsubscribeKeepsOthers(t *testing.T) {
	eb := NewEventBroadcaster()
	first := eb.Subscribe("a")
	second := eb.Subscribe("a")

	eb.Unsubscribe("a", first)
	if _, ok := <-first; ok {
		t.Error("Unsubscribed channel should be closed")
	}

	eb.Broadcast(ProgressEvent{JobID: "a", State: StateRunning, Iterations: 1})
	if event := <-second; event.Iterations != 1 {
		t.Errorf("Remaining subscriber should get events, got %+v", event)
	}
	eb.Unsubscribe("a", second)
}
