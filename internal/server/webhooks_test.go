package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"ventureos/internal/config"
	"ventureos/internal/domain"
)

func TestWebhookDispatcherDelivers(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	received := make(chan domain.AuditLog, 16)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	hook := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var entry domain.AuditLog
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			t.Errorf("decode delivery: %v", err)
		}
		received <- entry
		w.WriteHeader(http.StatusNoContent)
	})}
	go hook.Serve(ln)
	t.Cleanup(func() { hook.Close() })

	d := &webhookDispatcher{
		engine:   ts.Engine,
		webhooks: []config.WebhookConfig{{URL: "http://" + ln.Addr().String()}},
		client:   &http.Client{Timeout: time.Second},
		cursors:  make(map[int]int64),
	}

	// First pass pins the cursor at the latest row; nothing is replayed.
	d.dispatchAll(ctx)
	select {
	case entry := <-received:
		t.Fatalf("unexpected replay of %s", entry.Action)
	default:
	}

	if _, err := ts.Engine.CreateClient(ctx, "Acme", "", "", "tester"); err != nil {
		t.Fatal(err)
	}
	d.dispatchAll(ctx)

	select {
	case entry := <-received:
		if entry.Action != "client.created" {
			t.Fatalf("expected client.created, got %s", entry.Action)
		}
	default:
		t.Fatalf("expected a delivered audit entry")
	}
}

func TestWebhookDispatcherStopsOnCancel(t *testing.T) {
	ts := newTestServer(t)

	d := &webhookDispatcher{
		engine:  ts.Engine,
		client:  &http.Client{Timeout: time.Second},
		cursors: make(map[int]int64),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected dispatcher loop to stop after cancel")
	}
}
