// Unit tests for the in-memory event bus.
package eventbus

import (
	"testing"
	"time"
)

func TestEventBus_PublishAndSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("completion.finished")

	bus.Publish("completion.finished", "hello")

	select {
	case evt := <-ch:
		if evt.Topic != "completion.finished" {
			t.Errorf("expected topic 'completion.finished', got %q", evt.Topic)
		}
		if evt.Payload != "hello" {
			t.Errorf("expected payload 'hello', got %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout: expected event to be received within 100ms")
	}
}

func TestEventBus_MultipleSubscribers_AllReceive(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe("multi.topic")
	ch2 := bus.Subscribe("multi.topic")

	bus.Publish("multi.topic", 42)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d: expected payload 42, got %v", i, evt.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestEventBus_DifferentTopics_NoInterference(t *testing.T) {
	bus := New()
	chA := bus.Subscribe("topic.a")
	chB := bus.Subscribe("topic.b")

	bus.Publish("topic.a", "for-a")

	select {
	case evt := <-chA:
		if evt.Payload != "for-a" {
			t.Errorf("topic.a: unexpected payload %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("topic.a: timeout waiting for event")
	}

	select {
	case evt := <-chB:
		t.Errorf("topic.b: received unexpected event: %v", evt)
	default:
	}
}

func TestEventBus_NonBlockingPublish_FullBuffer_CountsDrops(t *testing.T) {
	bus := New()
	// Subscribe but never consume: buffer will fill up
	_ = bus.Subscribe("overflow.topic")

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize+10; i++ {
			bus.Publish("overflow.topic", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked when buffer was full (should be non-blocking)")
	}
	if got := bus.Dropped(); got != 10 {
		t.Errorf("expected 10 dropped events, got %d", got)
	}
}

func TestEventBus_Close_EndsSubscriptions(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("completion.finished")

	bus.Close()
	bus.Close() // idempotent

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}

	// Publishing after Close must not panic.
	bus.Publish("completion.finished", "late")

	late := bus.Subscribe("completion.finished")
	if _, ok := <-late; ok {
		t.Error("expected subscription on closed bus to be closed")
	}
}
