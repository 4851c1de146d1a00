package otellog

import (
	"context"
	"sync"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/crimson-sun/botsight/internal/model"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.rec = rec
}

// memExporter collects records exported by an SDK processor.
type memExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memExporter) Shutdown(context.Context) error   { return nil }
func (e *memExporter) ForceFlush(context.Context) error { return nil }

func testEvent() model.TelemetryEvent {
	var p model.Properties
	p.Set(model.KeyTimestamp, "2026-02-19T12:00:00.5Z")
	p.Set(model.KeyType, "message")
	p.Set(model.KeyChannel, "emulator")
	return model.TelemetryEvent{
		ID:         "evt-1",
		Kind:       model.KindMessageReceived,
		Name:       "MBFEvent.UserMessage",
		Properties: p,
		Metrics:    map[string]float64{"score": 0.9},
	}
}

func attrs(rec otellog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestWrite_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	out := New(cap)
	if err := out.Write(context.Background(), testEvent()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rec := cap.rec

	if got := rec.Body().AsString(); got != "MBFEvent.UserMessage" {
		t.Errorf("body = %q", got)
	}
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v", rec.Severity())
	}
	want := time.Date(2026, 2, 19, 12, 0, 0, 500000000, time.UTC)
	if !rec.Timestamp().Equal(want) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), want)
	}

	a := attrs(rec)
	for k, v := range map[string]string{
		"event.name": "MBFEvent.UserMessage", "event.kind": "message-received",
		"event.id": "evt-1", "type": "message", "channel": "emulator",
	} {
		if got := a[k].AsString(); got != v {
			t.Errorf("attr %q = %q, want %q", k, got, v)
		}
	}
	if got := a["score"].AsFloat64(); got != 0.9 {
		t.Errorf("metric score = %v", got)
	}
}

func TestWrite_NoTimestampUsesNow(t *testing.T) {
	cap := &recordCapture{}
	out := New(cap)
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	out.now = func() time.Time { return fixed }

	out.Write(context.Background(), model.TelemetryEvent{Kind: model.KindOther, Name: "MBFEvent.Other"})
	if !cap.rec.Timestamp().Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", cap.rec.Timestamp(), fixed)
	}
	if _, ok := attrs(cap.rec)["event.id"]; ok {
		t.Error("event.id should be absent for events without id")
	}
}

func TestWrite_ThroughSDKProvider(t *testing.T) {
	exp := &memExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	out := New(provider.Logger(DefaultLoggerName))
	if err := out.Write(context.Background(), testEvent()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	exp.mu.Lock()
	defer exp.mu.Unlock()
	if len(exp.records) != 1 {
		t.Fatalf("exported %d records, want 1", len(exp.records))
	}
	if got := exp.records[0].Body().AsString(); got != "MBFEvent.UserMessage" {
		t.Errorf("exported body = %q", got)
	}
	if got := exp.records[0].InstrumentationScope().Name; got != DefaultLoggerName {
		t.Errorf("scope = %q", got)
	}
}
