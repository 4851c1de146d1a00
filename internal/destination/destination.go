// Package destination holds the fixed set of telemetry sinks an
// instrumentation instance delivers to.
package destination

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
	"github.com/crimson-sun/botsight/internal/output/async"
)

// Destination is one configured sink and the routing key it was opened from.
type Destination struct {
	Key    string
	Scheme string
	Output output.Output
}

// Recorder observes the outcome of every delivery attempt.
type Recorder interface {
	RecordDelivery(scheme string, err error)
}

// DeliveryError reports a failed delivery to one destination.
type DeliveryError struct {
	Key string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("destination %s: %v", e.Key, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder reports every delivery outcome to r.
func WithRecorder(r Recorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// WithAsyncOptions sets the options used for keys with the async prefix.
func WithAsyncOptions(opts ...async.Option) Option {
	return func(reg *Registry) { reg.asyncOpts = opts }
}

// WithOutputs supplies ready outputs for specific routing keys. Open uses
// them instead of the scheme registry.
func WithOutputs(outs map[string]output.Output) Option {
	return func(reg *Registry) { reg.provided = outs }
}

// Registry fans events out to every destination. The list is fixed at
// construction.
type Registry struct {
	dests     []Destination
	recorder  Recorder
	asyncOpts []async.Option
	provided  map[string]output.Output
}

// New creates a Registry over already opened destinations.
func New(dests []Destination, opts ...Option) *Registry {
	r := &Registry{dests: append([]Destination(nil), dests...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens one destination per routing key. If any key fails, the
// destinations opened so far are closed and the error is returned.
func Open(keys []string, opts ...Option) (*Registry, error) {
	r := New(nil, opts...)
	for _, key := range keys {
		if out, ok := r.provided[key]; ok {
			scheme, _, _ := output.ParseKey(key)
			r.dests = append(r.dests, Destination{Key: key, Scheme: scheme, Output: out})
			continue
		}
		out, scheme, isAsync, err := output.Open(key)
		if err != nil {
			closeErr := r.Close()
			return nil, multierr.Append(fmt.Errorf("destination %q: %w", key, err), closeErr)
		}
		if isAsync {
			out = async.New(out, r.asyncOpts...)
		}
		r.dests = append(r.dests, Destination{Key: key, Scheme: scheme, Output: out})
	}
	return r, nil
}

// Len returns the number of destinations.
func (r *Registry) Len() int { return len(r.dests) }

// Keys returns the routing keys in configuration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.dests))
	for i, d := range r.dests {
		keys[i] = d.Key
	}
	return keys
}

// Submit delivers the event to every destination in order. A failing or
// panicking destination does not prevent delivery to the rest; all failures
// are returned combined as *DeliveryError values.
func (r *Registry) Submit(ctx context.Context, event model.TelemetryEvent) error {
	var errs error
	for _, d := range r.dests {
		err := r.write(ctx, d, event)
		if r.recorder != nil {
			r.recorder.RecordDelivery(d.Scheme, err)
		}
		if err != nil {
			errs = multierr.Append(errs, &DeliveryError{Key: redact(d.Key), Err: err})
		}
	}
	return errs
}

func (r *Registry) write(ctx context.Context, d Destination, event model.TelemetryEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("destination panicked", "scheme", d.Scheme, "panic", p)
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return d.Output.Write(ctx, event)
}

// Close closes every destination, collecting errors.
func (r *Registry) Close() error {
	var errs error
	for _, d := range r.dests {
		if err := d.Output.Close(); err != nil {
			errs = multierr.Append(errs, &DeliveryError{Key: redact(d.Key), Err: err})
		}
	}
	return errs
}

// redact keeps the scheme and the last four characters of a routing key so
// logs never carry full instrumentation keys.
func redact(key string) string {
	scheme, target, isAsync := output.ParseKey(key)
	prefix := scheme + ":"
	if isAsync {
		prefix = output.AsyncPrefix + prefix
	}
	if scheme != output.DefaultScheme {
		return prefix + target
	}
	if len(target) <= 4 {
		return prefix + "****"
	}
	return prefix + "****" + target[len(target)-4:]
}
