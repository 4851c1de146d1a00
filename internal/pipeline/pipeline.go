package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/botsight/internal/connector"
	"github.com/crimson-sun/botsight/internal/metrics"
	"github.com/crimson-sun/botsight/internal/model"
)

// Tracker is the set of tracking operations a step can be dispatched to.
type Tracker interface {
	TrackActivity(ctx context.Context, a *model.Activity, props map[string]string) error
	TrackIntent(ctx context.Context, a *model.Activity, result *model.IntentResult) error
	TrackQnA(ctx context.Context, a *model.Activity, userQuery, kbQuestion, kbAnswer string, score float64) error
	TrackCustom(ctx context.Context, a *model.Activity, name string, props map[string]string, measurements map[string]float64) error
	TrackGoalTriggered(ctx context.Context, a *model.Activity, goalName string, props map[string]string) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets how many steps are dispatched concurrently. One (the
// default) dispatches in arrival order.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger used for skipped steps.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records dispatched steps.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline connects an activity source to a tracker.
type Pipeline struct {
	connector connector.Connector
	tracker   Tracker
	workers   int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, tracker Tracker, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		tracker:   tracker,
		workers:   1,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run dispatches steps until the source is exhausted or ctx is cancelled.
// A step that fails is logged and skipped. Run returns nil when the source
// closes its channel and ctx.Err() on cancellation, after in-flight steps
// finish.
func (p *Pipeline) Run(ctx context.Context) error {
	ch, err := p.connector.Stream(ctx)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(p.workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case step, ok := <-ch:
			if !ok {
				return g.Wait()
			}
			if p.workers == 1 {
				p.handle(ctx, step)
				continue
			}
			g.Go(func() error {
				p.handle(ctx, step)
				return nil
			})
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, step connector.Step) {
	kind := step.Kind
	if kind == "" {
		kind = connector.StepActivity
	}
	err := Dispatch(ctx, p.tracker, step)
	p.metrics.RecordStep(string(kind), err)
	if err != nil {
		p.logger.Warn("step skipped", "kind", kind, "error", err)
	}
}

// Dispatch routes one step to the matching tracking operation.
func Dispatch(ctx context.Context, t Tracker, step connector.Step) error {
	if err := step.Validate(); err != nil {
		return fmt.Errorf("invalid step: %w", err)
	}
	a := step.Activity
	switch step.Kind {
	case connector.StepIntent:
		return t.TrackIntent(ctx, a, step.Intent)
	case connector.StepQnA:
		q := step.QnA
		return t.TrackQnA(ctx, a, q.UserQuery, q.KBQuestion, q.KBAnswer, q.Score)
	case connector.StepCustom:
		return t.TrackCustom(ctx, a, step.EventName, step.Properties, step.Metrics)
	case connector.StepGoal:
		return t.TrackGoalTriggered(ctx, a, step.Goal, step.Properties)
	default:
		return t.TrackActivity(ctx, a, step.Properties)
	}
}
