package sse

import (
	"strings"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestPublishReloadPayload(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishReload("projects/plan.md")

	msg := recv(t, ch)
	if !strings.HasPrefix(msg, "event: reload\n") {
		t.Errorf("wrong event name: %q", msg)
	}
	if !strings.Contains(msg, `"type":"reload"`) || !strings.Contains(msg, `"path":"projects/plan.md"`) {
		t.Errorf("wrong payload: %q", msg)
	}
	if !strings.HasSuffix(msg, "\n\n") {
		t.Errorf("frame not terminated by blank line: %q", msg)
	}
}

func TestTreeUpdatedThrottle(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishReload("a.md")
	b.PublishReload("b.md")
	b.PublishReload("c.md")

	var reloads, treeUpdates int
	// 3 reloads are guaranteed; tree.updated fires once at most within
	// the throttle window.
	deadline := time.After(2 * time.Second)
	for reloads < 3 {
		select {
		case msg := <-ch:
			switch {
			case strings.HasPrefix(string(msg), "event: reload\n"):
				reloads++
			case strings.HasPrefix(string(msg), "event: tree.updated\n"):
				treeUpdates++
			}
		case <-deadline:
			t.Fatalf("saw %d reloads, want 3", reloads)
		}
	}
	// Drain anything still buffered.
	for {
		select {
		case msg := <-ch:
			if strings.HasPrefix(string(msg), "event: tree.updated\n") {
				treeUpdates++
			}
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	if treeUpdates != 1 {
		t.Errorf("tree.updated fired %d times within throttle window, want 1", treeUpdates)
	}
}

func TestPublishCustomEvent(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "ping", Data: map[string]int{"n": 1}})

	msg := recv(t, ch)
	if !strings.HasPrefix(msg, "event: ping\n") || !strings.Contains(msg, `"n":1`) {
		t.Errorf("custom event = %q", msg)
	}
}

func TestSubscriberCount(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	if n := b.SubscriberCount(); n != 0 {
		t.Fatalf("initial count = %d", n)
	}
	a := b.Subscribe()
	c := b.Subscribe()
	if n := b.SubscriberCount(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	b.Unsubscribe(a)
	if n := b.SubscriberCount(); n != 1 {
		t.Errorf("count after unsubscribe = %d, want 1", n)
	}
	b.Unsubscribe(c)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed after unsubscribe")
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := NewBroker(time.Hour)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed after broker Close")
	}
	// Publishing after close must not panic or block.
	b.PublishReload("late.md")
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("count after close = %d", n)
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	slow := b.Subscribe() // never read; its buffer will fill
	fast := b.Subscribe()
	defer b.Unsubscribe(slow)
	defer b.Unsubscribe(fast)

	// Overflow the slow subscriber's buffer.
	for i := 0; i < 200; i++ {
		b.Publish(Event{Type: "flood", Data: i})
	}

	// The fast subscriber still receives events and the loop stays
	// responsive despite the clogged peer.
	recv(t, fast)
	if n := b.SubscriberCount(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}
