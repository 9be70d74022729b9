package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewMessage("absence", map[string]string{"notification_id": "n-1"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case got := <-out:
		if got.Type != "absence" {
			t.Errorf("type = %q, want absence", got.Type)
		}
		var payload map[string]string
		if err := json.Unmarshal(got.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["notification_id"] != "n-1" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := q.Publish(ctx, Message{Type: "a"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	cancel()
	// Queue is full and the context is done; Publish must not block.
	if err := q.Publish(ctx, Message{Type: "b"}); err == nil {
		t.Error("expected context error on full queue")
	}
}

func TestNewMessageRejectsUnmarshalable(t *testing.T) {
	if _, err := NewMessage("bad", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}
