// Package instrumentation turns bot activities into telemetry events and
// delivers them to every configured destination.
package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/crimson-sun/botsight/internal/destination"
	"github.com/crimson-sun/botsight/internal/engine"
	"github.com/crimson-sun/botsight/internal/engine/taxonomy"
	"github.com/crimson-sun/botsight/internal/metrics"
	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
	"github.com/crimson-sun/botsight/internal/sentiment"
)

var (
	// ErrNilSettings is returned by New when settings are nil.
	ErrNilSettings = errors.New("instrumentation: settings are nil")
	// ErrNoDestinations is returned by New when no destination key is configured.
	ErrNoDestinations = errors.New("instrumentation: at least one destination key is required")
)

// DefaultSentimentTimeout bounds a detached sentiment step when
// Settings.SentimentTimeout is unset.
const DefaultSentimentTimeout = 10 * time.Second

const tracerName = "github.com/crimson-sun/botsight/internal/instrumentation"

// Enricher computes extra properties for inbound message text. It returns
// nil, nil when the text should not be scored.
type Enricher interface {
	Properties(ctx context.Context, text string) (map[string]string, error)
}

// Settings are read once by New and never modified afterwards.
type Settings struct {
	// Destinations are routing keys, one per sink. Must be non-empty.
	Destinations []string
	// Sentiment enriches inbound messages. Nil disables enrichment.
	Sentiment Enricher
	// OmitUsername drops the sender display name from inbound events.
	OmitUsername bool
	// Taxonomy names events. Nil selects taxonomy.Default.
	Taxonomy *taxonomy.Taxonomy
	// AsyncSentiment runs the sentiment step detached from the caller.
	AsyncSentiment bool
	// SentimentTimeout bounds a detached sentiment step. Default: 10s.
	SentimentTimeout time.Duration
}

// Option configures an Instrumentation.
type Option func(*Instrumentation)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Instrumentation) { i.logger = l }
}

// WithMetrics records tracking and delivery metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Instrumentation) { i.metrics = m }
}

// WithTracer sets the tracer for Track* spans. Default: the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(i *Instrumentation) { i.tracer = t }
}

// WithClock sets the clock used to time sentiment requests.
func WithClock(c clock.Clock) Option {
	return func(i *Instrumentation) { i.clock = c }
}

// WithDestination supplies the output for one of the configured routing
// keys instead of opening it from its scheme.
func WithDestination(key string, out output.Output) Option {
	return func(i *Instrumentation) { i.provided[key] = out }
}

// Instrumentation is safe for concurrent use. Tracking calls share no
// mutable state besides the in-flight sentiment counter.
type Instrumentation struct {
	engine    *engine.Engine
	dests     *destination.Registry
	sentiment Enricher
	async     bool
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     clock.Clock
	provided  map[string]output.Output

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// New validates settings and opens every destination. It fails with
// ErrNilSettings or ErrNoDestinations before anything is opened.
func New(settings *Settings, opts ...Option) (*Instrumentation, error) {
	if settings == nil {
		return nil, ErrNilSettings
	}
	if len(settings.Destinations) == 0 {
		return nil, ErrNoDestinations
	}

	i := &Instrumentation{
		engine:    engine.New(settings.Taxonomy, settings.OmitUsername),
		sentiment: settings.Sentiment,
		async:     settings.AsyncSentiment,
		timeout:   settings.SentimentTimeout,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		clock:     clock.New(),
		provided:  map[string]output.Output{},
	}
	if i.timeout <= 0 {
		i.timeout = DefaultSentimentTimeout
	}
	for _, opt := range opts {
		opt(i)
	}

	dests, err := destination.Open(settings.Destinations,
		destination.WithRecorder(i.metrics),
		destination.WithOutputs(i.provided),
	)
	if err != nil {
		return nil, fmt.Errorf("instrumentation: %w", err)
	}
	i.dests = dests
	i.provided = nil
	return i, nil
}

// Destinations returns the configured routing keys.
func (i *Instrumentation) Destinations() []string { return i.dests.Keys() }

// Taxonomy returns the event naming scheme in use.
func (i *Instrumentation) Taxonomy() *taxonomy.Taxonomy { return i.engine.Taxonomy() }

// TrackActivity submits the activity's event to every destination. For an
// inbound message it then runs sentiment enrichment and, if that yields a
// score, submits a separate sentiment event carrying the score plus props.
// The only error returned is engine.ErrNilActivity.
func (i *Instrumentation) TrackActivity(ctx context.Context, a *model.Activity, props map[string]string) error {
	ctx, span := i.tracer.Start(ctx, "instrumentation.TrackActivity")
	defer span.End()

	ev, err := i.engine.Build(a, props)
	if err != nil {
		return spanError(span, err)
	}
	i.submit(ctx, span, ev)

	if ev.Kind != model.KindMessageReceived || i.sentiment == nil {
		return nil
	}
	if !i.async {
		i.trackSentiment(ctx, a, props)
		return nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		i.logger.Warn("sentiment step skipped after close", "conversation", a.Conversation.ID)
		return nil
	}
	i.inflight.Add(1)
	detached := context.WithoutCancel(ctx)
	own, ownProps := cloneActivity(a), maps.Clone(props)
	go func() {
		defer i.inflight.Done()
		sctx, cancel := context.WithTimeout(detached, i.timeout)
		defer cancel()
		i.trackSentiment(sctx, own, ownProps)
	}()
	return nil
}

// cloneActivity copies a so a detached step does not share memory with a
// caller that reuses its activity.
func cloneActivity(a *model.Activity) *model.Activity {
	c := *a
	if a.Timestamp != nil {
		ts := *a.Timestamp
		c.Timestamp = &ts
	}
	return &c
}

func (i *Instrumentation) trackSentiment(ctx context.Context, a *model.Activity, props map[string]string) {
	ctx, span := i.tracer.Start(ctx, "instrumentation.Sentiment")
	defer span.End()

	start := i.clock.Now()
	scored, err := i.sentiment.Properties(ctx, a.Text)
	elapsed := i.clock.Since(start)
	switch {
	case err != nil:
		i.metrics.RecordSentiment(metrics.SentimentFailed, elapsed)
		span.RecordError(err)
		i.logger.Warn("sentiment enrichment failed",
			"conversation", a.Conversation.ID, "duration", elapsed, "error", err)
		return
	case len(scored) == 0:
		i.metrics.RecordSentiment(metrics.SentimentSkipped, elapsed)
		return
	}
	i.metrics.RecordSentiment(metrics.SentimentScored, elapsed)

	ev, err := i.engine.Build(a, scored, props)
	if err != nil {
		span.RecordError(err)
		return
	}
	i.submit(ctx, span, i.engine.Relabel(ev, model.KindSentiment, ""))
}

// TrackIntent submits an intent event for the top-scoring intent. It does
// nothing when result or its top intent is nil.
func (i *Instrumentation) TrackIntent(ctx context.Context, a *model.Activity, result *model.IntentResult) error {
	if result == nil || result.TopScoringIntent == nil {
		return nil
	}
	ctx, span := i.tracer.Start(ctx, "instrumentation.TrackIntent")
	defer span.End()

	entities, err := result.EntitiesJSON()
	if err != nil {
		return spanError(span, fmt.Errorf("instrumentation: entities: %w", err))
	}
	ev, err := i.engine.Build(a, map[string]string{
		model.KeyIntent:   result.TopScoringIntent.Intent,
		model.KeyScore:    sentiment.FormatScore(result.TopScoringIntent.Score),
		model.KeyEntities: entities,
	})
	if err != nil {
		return spanError(span, err)
	}
	i.submit(ctx, span, i.engine.Relabel(ev, model.KindIntentDialog, ""))
	return nil
}

// TrackQnA submits a QnA match event.
func (i *Instrumentation) TrackQnA(ctx context.Context, a *model.Activity, userQuery, kbQuestion, kbAnswer string, score float64) error {
	ctx, span := i.tracer.Start(ctx, "instrumentation.TrackQnA")
	defer span.End()

	ev, err := i.engine.Build(a, map[string]string{
		model.KeyUserQuery:  userQuery,
		model.KeyKBQuestion: kbQuestion,
		model.KeyKBAnswer:   kbAnswer,
		model.KeyScore:      sentiment.FormatScore(score),
	})
	if err != nil {
		return spanError(span, err)
	}
	i.submit(ctx, span, i.engine.Relabel(ev, model.KindQnA, ""))
	return nil
}

// TrackCustom submits a custom event. An empty name selects the taxonomy's
// custom event label.
func (i *Instrumentation) TrackCustom(ctx context.Context, a *model.Activity, name string, props map[string]string, measurements map[string]float64) error {
	ctx, span := i.tracer.Start(ctx, "instrumentation.TrackCustom")
	defer span.End()

	ev, err := i.engine.BuildWithMetrics(a, measurements, props)
	if err != nil {
		return spanError(span, err)
	}
	i.submit(ctx, span, i.engine.Relabel(ev, model.KindCustom, name))
	return nil
}

// TrackGoalTriggered submits a goal event. The goal name is stored under
// model.KeyGoalName and is not overridden by props.
func (i *Instrumentation) TrackGoalTriggered(ctx context.Context, a *model.Activity, goalName string, props map[string]string) error {
	ctx, span := i.tracer.Start(ctx, "instrumentation.TrackGoalTriggered")
	defer span.End()

	ev, err := i.engine.Build(a, map[string]string{model.KeyGoalName: goalName}, props)
	if err != nil {
		return spanError(span, err)
	}
	i.submit(ctx, span, i.engine.Relabel(ev, model.KindGoalTriggered, ""))
	return nil
}

// Close waits for detached sentiment steps, then closes every destination.
func (i *Instrumentation) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	i.inflight.Wait()
	return i.dests.Close()
}

// submit stamps the event id and fans out. Delivery failures are logged and
// counted, never returned.
func (i *Instrumentation) submit(ctx context.Context, span trace.Span, ev model.TelemetryEvent) {
	ev.ID = uuid.NewString()
	span.SetAttributes(
		attribute.String("botsight.event.name", ev.Name),
		attribute.String("botsight.event.id", ev.ID),
		attribute.Int("botsight.destinations", i.dests.Len()),
	)
	i.metrics.RecordEvent(string(ev.Kind))

	if err := i.dests.Submit(ctx, ev); err != nil {
		failures := multierr.Errors(err)
		span.SetAttributes(attribute.Int("botsight.destination_failures", len(failures)))
		for _, f := range failures {
			i.logger.Warn("destination write failed", "event", ev.Name, "id", ev.ID, "error", f)
		}
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
