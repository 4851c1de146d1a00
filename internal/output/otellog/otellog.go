// Package otellog emits telemetry events as OpenTelemetry log records.
package otellog

import (
	"context"
	"sort"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"

	"github.com/crimson-sun/botsight/internal/engine"
	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

// Scheme is the routing-key scheme for this sink.
const Scheme = "otel"

// DefaultLoggerName is the instrumentation scope used when the target is empty.
const DefaultLoggerName = "botsight.telemetry"

func init() {
	output.Register(Scheme, func(target string) (output.Output, error) {
		name := target
		if name == "" {
			name = DefaultLoggerName
		}
		return New(global.GetLoggerProvider().Logger(name)), nil
	})
}

// Emitter is the part of otellog.Logger used by Output.
type Emitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// Output converts each event to a log record. Export is owned by the
// LoggerProvider's processor; Close does not shut the provider down.
type Output struct {
	logger Emitter
	now    func() time.Time
}

// New creates an Output emitting through logger.
func New(logger Emitter) *Output {
	return &Output{logger: logger, now: time.Now}
}

// Write emits the event as one record: the body is the event name,
// properties become string attributes and metrics float attributes.
func (o *Output) Write(ctx context.Context, event model.TelemetryEvent) error {
	o.logger.Emit(ctx, o.Record(event))
	return nil
}

func (o *Output) Close() error {
	return nil
}

// Record builds the log record for event.
func (o *Output) Record(event model.TelemetryEvent) otellog.Record {
	rec := otellog.Record{}
	rec.SetBody(otellog.StringValue(event.Name))
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetSeverityText("INFO")

	ts := o.now().UTC()
	if raw, ok := event.Properties.Get(model.KeyTimestamp); ok {
		if t, err := time.Parse(engine.TimestampLayout, raw); err == nil {
			ts = t
		}
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(o.now().UTC())

	rec.AddAttributes(
		otellog.String("event.name", event.Name),
		otellog.String("event.kind", string(event.Kind)),
	)
	if event.ID != "" {
		rec.AddAttributes(otellog.String("event.id", event.ID))
	}
	event.Properties.Range(func(k, v string) bool {
		rec.AddAttributes(otellog.String(k, v))
		return true
	})

	keys := make([]string, 0, len(event.Metrics))
	for k := range event.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.AddAttributes(otellog.Float64(k, event.Metrics[k]))
	}
	return rec
}
