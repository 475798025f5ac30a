package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "tasks.updated", Data: map[string]string{"resource": "tasks"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: tasks.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"resource":"tasks"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_AggregateThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First change should trigger dashboard.updated.
	b.PublishChange("tasks")
	// Second change immediately should NOT trigger another dashboard.updated.
	b.PublishChange("settings")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	aggregateCount := 0
	resourceCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "dashboard.updated") {
				aggregateCount++
			} else {
				resourceCount++
			}
		default:
			break loop
		}
	}

	if resourceCount != 2 {
		t.Errorf("resource events = %d, want 2", resourceCount)
	}
	if aggregateCount != 1 {
		t.Errorf("dashboard.updated events = %d, want 1 (throttled)", aggregateCount)
	}
}

func TestCloseClosesClients(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}

	// Operations after close are safe no-ops.
	b.Publish(Event{Type: "x"})
	b.PublishChange("tasks")
	if b.ClientCount() != 0 {
		t.Error("count after close should be 0")
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	// Wait for the subscription to land before publishing.
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.PublishChange("tasks")

	buf := make([]byte, 1024)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "tasks.updated") {
		t.Errorf("stream = %q", buf[:n])
	}
}
