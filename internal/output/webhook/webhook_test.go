package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

func testEvent(name string) model.TelemetryEvent {
	var p model.Properties
	p.Set(model.KeyType, "message")
	p.Set(model.KeyChannel, "webchat")
	return model.TelemetryEvent{ID: "e-" + name, Kind: model.KindCustom, Name: name, Properties: p}
}

func TestPostsOneEventPerWrite(t *testing.T) {
	var mu sync.Mutex
	var received []model.TelemetryEvent

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev model.TelemetryEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			w.WriteHeader(400)
			return
		}
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		w.WriteHeader(202)
	}))
	defer srv.Close()

	out, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for _, name := range []string{"AlarmSet", "AlarmDeleted"} {
		if err := out.Write(context.Background(), testEvent(name)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("got %d posts, want 2", len(received))
	}
	if received[1].Name != "AlarmDeleted" {
		t.Fatalf("unexpected event: %+v", received[1])
	}
	if ch, _ := received[0].Properties.Get(model.KeyChannel); ch != "webchat" {
		t.Fatalf("properties lost: %q", ch)
	}
}

func TestCustomHeaders(t *testing.T) {
	var gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	out, _ := New(srv.URL, WithHeaders(map[string]string{"Authorization": "Bearer xyz"}))
	if err := out.Write(context.Background(), testEvent("x")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if gotAuth != "Bearer xyz" || gotCT != "application/json" {
		t.Fatalf("headers: auth=%q ct=%q", gotAuth, gotCT)
	}
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(503)
	}))
	defer srv.Close()

	out, _ := New(srv.URL)
	if err := out.Write(context.Background(), testEvent("x")); err == nil {
		t.Fatal("expected error for 503")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls.Load())
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	out, _ := New(srv.URL, WithTimeout(20*time.Millisecond))
	if err := out.Write(context.Background(), testEvent("x")); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("/hooks/telemetry"); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestRegistered(t *testing.T) {
	scheme, target, _ := output.ParseKey("webhook:https://example.com/hook")
	if scheme != Scheme || target != "https://example.com/hook" {
		t.Fatalf("ParseKey = %q %q", scheme, target)
	}
}

func TestNilHTTPClientKeepsDefault(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(204)
	}))
	defer srv.Close()

	out, err := New(srv.URL, WithHTTPClient(nil), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := out.Write(context.Background(), testEvent("AlarmSet")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if posts.Load() != 1 {
		t.Fatalf("got %d posts, want 1", posts.Load())
	}
}
