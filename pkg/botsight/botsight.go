package botsight

import (
	"context"
	"fmt"

	"github.com/crimson-sun/botsight/internal/engine/taxonomy"
	"github.com/crimson-sun/botsight/internal/instrumentation"

	_ "github.com/crimson-sun/botsight/internal/output/appinsights"
	_ "github.com/crimson-sun/botsight/internal/output/file"
	_ "github.com/crimson-sun/botsight/internal/output/kafka"
	_ "github.com/crimson-sun/botsight/internal/output/otellog"
	_ "github.com/crimson-sun/botsight/internal/output/stdout"
	_ "github.com/crimson-sun/botsight/internal/output/webhook"
)

// Client tracks bot activity. Safe for concurrent use.
type Client struct {
	inst *instrumentation.Instrumentation
}

// New opens every destination. It fails when none is configured or one
// cannot be opened, in which case nothing stays open.
func New(opts ...Option) (*Client, error) {
	o := options{sinks: map[string]Sink{}}
	for _, opt := range opts {
		opt(&o)
	}

	tax, err := taxonomy.ByName(o.eventNaming)
	if err != nil {
		return nil, fmt.Errorf("botsight: %w", err)
	}

	settings := &instrumentation.Settings{
		Destinations:     o.destinations,
		OmitUsername:     o.omitUsername,
		Taxonomy:         tax,
		AsyncSentiment:   o.asyncSentiment,
		SentimentTimeout: o.timeout,
	}
	if o.sentiment != nil {
		settings.Sentiment = o.sentiment
	}

	var iopts []instrumentation.Option
	for key, s := range o.sinks {
		iopts = append(iopts, instrumentation.WithDestination(key, s))
	}
	if o.logger != nil {
		iopts = append(iopts, instrumentation.WithLogger(o.logger))
	}
	if o.tracerProvider != nil {
		iopts = append(iopts, instrumentation.WithTracer(o.tracerProvider.Tracer("github.com/crimson-sun/botsight")))
	}

	inst, err := instrumentation.New(settings, iopts...)
	if err != nil {
		return nil, err
	}
	return &Client{inst: inst}, nil
}

// TrackActivity records an activity. Inbound messages are also scored for
// sentiment when enabled.
func (c *Client) TrackActivity(ctx context.Context, a *Activity, props map[string]string) error {
	return c.inst.TrackActivity(ctx, a, props)
}

// TrackIntent records the top-scoring intent of a recognizer result. A
// result without a top intent records nothing.
func (c *Client) TrackIntent(ctx context.Context, a *Activity, result *IntentResult) error {
	return c.inst.TrackIntent(ctx, a, result)
}

// TrackQnA records a knowledge base match.
func (c *Client) TrackQnA(ctx context.Context, a *Activity, userQuery, kbQuestion, kbAnswer string, score float64) error {
	return c.inst.TrackQnA(ctx, a, userQuery, kbQuestion, kbAnswer, score)
}

// TrackCustom records a caller-named event with optional measurements.
func (c *Client) TrackCustom(ctx context.Context, a *Activity, name string, props map[string]string, measurements map[string]float64) error {
	return c.inst.TrackCustom(ctx, a, name, props, measurements)
}

// TrackGoalTriggered records that a conversation goal was reached.
func (c *Client) TrackGoalTriggered(ctx context.Context, a *Activity, goal string, props map[string]string) error {
	return c.inst.TrackGoalTriggered(ctx, a, goal, props)
}

// Destinations returns the configured routing keys.
func (c *Client) Destinations() []string { return c.inst.Destinations() }

// EventNames lists the event names the client can emit.
func (c *Client) EventNames() []string { return c.inst.Taxonomy().Labels() }

// Close flushes pending work and closes every destination.
func (c *Client) Close() error { return c.inst.Close() }
