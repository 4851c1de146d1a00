// Package appinsights delivers telemetry events to Azure Application
// Insights as custom events, one telemetry client per instrumentation key.
package appinsights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	"github.com/microsoft/ApplicationInsights-Go/appinsights/contracts"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

// Scheme is the routing-key scheme for this sink. It is also the default
// for bare instrumentation keys.
const Scheme = output.DefaultScheme

const defaultCloseTimeout = 10 * time.Second

func init() {
	output.Register(Scheme, func(target string) (output.Output, error) {
		return New(target)
	})
}

// tracker is the part of appinsights.TelemetryClient used for submission.
type tracker interface {
	Track(appinsights.Telemetry)
}

// Option configures an Output.
type Option func(*Output)

// WithCloseTimeout bounds how long Close waits for the channel to flush.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *Output) { o.closeTimeout = d }
}

// WithMaxBatchInterval sets how often the SDK channel sends batches.
func WithMaxBatchInterval(d time.Duration) Option {
	return func(o *Output) { o.cfg.MaxBatchInterval = d }
}

// Output submits each event with Track. Delivery is handled by the SDK's
// in-memory channel; Write never blocks on the network.
type Output struct {
	ikey         string
	cfg          *appinsights.TelemetryConfiguration
	client       tracker
	closeChannel func(timeout time.Duration) <-chan struct{}
	closeTimeout time.Duration
	closeOnce    sync.Once
}

// New creates an Output from a target of the form "ikey" or
// "ikey@https://ingestion-endpoint/v2/track".
func New(target string, opts ...Option) (*Output, error) {
	ikey, endpoint, _ := strings.Cut(strings.TrimSpace(target), "@")
	if ikey == "" {
		return nil, fmt.Errorf("appinsights: empty instrumentation key")
	}

	cfg := appinsights.NewTelemetryConfiguration(ikey)
	if endpoint != "" {
		cfg.EndpointUrl = endpoint
	}
	o := &Output{ikey: ikey, cfg: cfg, closeTimeout: defaultCloseTimeout}
	for _, opt := range opts {
		opt(o)
	}

	client := appinsights.NewTelemetryClientFromConfig(cfg)
	o.client = client
	o.closeChannel = func(timeout time.Duration) <-chan struct{} {
		return client.Channel().Close(timeout)
	}
	return o, nil
}

// InstrumentationKey returns the key this output submits under.
func (o *Output) InstrumentationKey() string { return o.ikey }

// Write converts the event to an EventTelemetry and tracks it.
func (o *Output) Write(_ context.Context, event model.TelemetryEvent) error {
	o.client.Track(Convert(event))
	return nil
}

// Close flushes buffered telemetry, waiting at most the close timeout.
func (o *Output) Close() error {
	var err error
	o.closeOnce.Do(func() {
		if o.closeChannel == nil {
			return
		}
		select {
		case <-o.closeChannel(o.closeTimeout):
		case <-time.After(o.closeTimeout + time.Second):
			err = fmt.Errorf("appinsights: channel close timed out after %s", o.closeTimeout)
		}
	})
	return err
}

// Convert maps a telemetry event onto an Application Insights custom event.
// Conversation and user ids are also copied into the context tags so the
// portal can group by session and user.
func Convert(event model.TelemetryEvent) *appinsights.EventTelemetry {
	ev := appinsights.NewEventTelemetry(event.Name)
	event.Properties.Range(func(k, v string) bool {
		ev.Properties[k] = v
		return true
	})
	for k, v := range event.Metrics {
		ev.Measurements[k] = v
	}
	if event.ID != "" {
		ev.Tags[contracts.OperationId] = event.ID
	}
	if conv, ok := event.Properties.Get(model.KeyConversationID); ok && conv != "" {
		ev.Tags[contracts.SessionId] = conv
	}
	if user, ok := event.Properties.Get(model.KeyUserID); ok && user != "" {
		ev.Tags[contracts.UserId] = user
	}
	return ev
}

var diagnosticsOnce sync.Once

// EnableDiagnostics routes SDK diagnostics messages to logger at debug level.
// Only the first call has an effect.
func EnableDiagnostics(logger *slog.Logger) {
	diagnosticsOnce.Do(func() {
		appinsights.NewDiagnosticsMessageListener(func(msg string) error {
			logger.Debug("appinsights diagnostics", "message", msg)
			return nil
		})
	})
}
