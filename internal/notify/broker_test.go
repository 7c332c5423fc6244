package notify

import (
	"strings"
	"testing"
	"time"
)

func recvTimeout(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return ""
}

func TestBroker_SubscribePublish(t *testing.T) {
	b := NewBroker()
	t.Cleanup(b.Close)

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("client count = %d, want 1", n)
	}

	b.FileDeleted("index.md", []string{"guide.md"})

	msg := recvTimeout(t, ch)
	if !strings.HasPrefix(msg, "event: file_deleted\n") {
		t.Errorf("msg = %q, want file_deleted event", msg)
	}
	if !strings.Contains(msg, `"path":"index.md"`) || !strings.Contains(msg, `"guide.md"`) {
		t.Errorf("msg = %q, missing payload fields", msg)
	}
}

func TestBroker_ValidationComplete(t *testing.T) {
	b := NewBroker()
	t.Cleanup(b.Close)

	ch := b.Subscribe()
	b.ValidationComplete([]string{"a.md", "b.md"})

	msg := recvTimeout(t, ch)
	if !strings.HasPrefix(msg, "event: validation_complete\n") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"ids":["a.md","b.md"]`) {
		t.Errorf("msg = %q, missing ids", msg)
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	t.Cleanup(b.Close)

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client count never dropped to 0")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Unsubscribed channel is closed.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestBroker_CloseIdempotent(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed after broker close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("client count after close = %d", n)
	}

	// Publishing after close must not panic or block.
	b.Publish(Event{Type: TypeFileDeleted})
}

func TestBroker_SubscribeAfterClose(t *testing.T) {
	b := NewBroker()
	b.Close()

	ch := b.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
