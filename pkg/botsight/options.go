package botsight

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/crimson-sun/botsight/internal/output"
	"github.com/crimson-sun/botsight/internal/sentiment"
)

type options struct {
	destinations   []string
	sinks          map[string]output.Output
	sentiment      *sentiment.Manager
	omitUsername   bool
	eventNaming    string
	asyncSentiment bool
	timeout        time.Duration
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
}

// Option configures a Client.
type Option func(*options)

// WithDestinations adds routing keys. At least one destination is required.
func WithDestinations(keys ...string) Option {
	return func(o *options) {
		o.destinations = append(o.destinations, keys...)
	}
}

// WithSink adds a caller-supplied destination under key.
func WithSink(key string, s Sink) Option {
	return func(o *options) {
		o.destinations = append(o.destinations, key)
		o.sinks[key] = s
	}
}

// WithSentiment enables sentiment scoring of inbound messages. minLength is
// the minimum word count as text and falls back to 0 when it does not
// parse. An empty endpoint selects the public West US endpoint.
func WithSentiment(apiKey, minLength, endpoint string) Option {
	return func(o *options) {
		o.sentiment = sentiment.NewManager(apiKey, minLength, endpoint, nil)
	}
}

// WithOmitUsername drops the sender display name from inbound events.
func WithOmitUsername(omit bool) Option {
	return func(o *options) {
		o.omitUsername = omit
	}
}

// WithEventNaming selects the event name set: "mbf" (default) or "legacy".
func WithEventNaming(name string) Option {
	return func(o *options) {
		o.eventNaming = name
	}
}

// WithAsyncSentiment scores sentiment in the background, bounded by
// timeout. Close waits for pending scores.
func WithAsyncSentiment(timeout time.Duration) Option {
	return func(o *options) {
		o.asyncSentiment = true
		o.timeout = timeout
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracerProvider records a span per tracking call. Default: the global
// OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
