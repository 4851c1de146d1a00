// Package httpapi accepts activities and tracking events over HTTP and
// streams them as connector steps.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/crimson-sun/botsight/internal/connector"
	"github.com/crimson-sun/botsight/internal/metrics"
	"github.com/crimson-sun/botsight/internal/model"
)

const (
	// MessagesRoute accepts a bare activity.
	MessagesRoute = "/api/messages"
	// EventsRoute accepts a step whose kind is taken from the path.
	EventsRoute = "/api/events/{kind}"

	defaultBuffer  = 64
	maxRequestBody = 1 << 20
)

// ErrClosed is returned by Stream after Close.
var ErrClosed = errors.New("httpapi: connector closed")

// Option configures a Connector.
type Option func(*Connector)

// WithBuffer sets how many accepted steps may wait for the pipeline.
func WithBuffer(n int) Option {
	return func(c *Connector) {
		if n >= 0 {
			c.buffer = n
		}
	}
}

// WithMetrics records request counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Connector) { c.metrics = m }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// Connector is an http.Handler whose accepted requests become steps.
type Connector struct {
	buffer  int
	metrics *metrics.Metrics
	logger  *slog.Logger
	mux     *http.ServeMux

	ch        chan connector.Step
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New creates a Connector ready to serve.
func New(opts ...Option) *Connector {
	c := &Connector{buffer: defaultBuffer, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	c.ch = make(chan connector.Step, c.buffer)
	c.done = make(chan struct{})

	c.mux = http.NewServeMux()
	c.mux.HandleFunc("POST "+MessagesRoute, c.handleMessage)
	c.mux.HandleFunc("POST "+EventsRoute, c.handleEvent)
	return c
}

// Stream returns the step channel. It is closed by Close.
func (c *Connector) Stream(_ context.Context) (<-chan connector.Step, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.ch, nil
}

// ServeHTTP implements http.Handler.
func (c *Connector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mux.ServeHTTP(w, r)
}

// Close stops accepting requests and closes the step channel. Requests
// blocked on a full buffer are answered with 503.
func (c *Connector) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
	})
	return nil
}

func (c *Connector) handleMessage(w http.ResponseWriter, r *http.Request) {
	var a model.Activity
	if err := decode(w, r, &a); err != nil {
		c.reply(w, MessagesRoute, http.StatusBadRequest, err.Error())
		return
	}
	c.accept(w, r, MessagesRoute, connector.Step{Kind: connector.StepActivity, Activity: &a})
}

func (c *Connector) handleEvent(w http.ResponseWriter, r *http.Request) {
	kind, err := connector.ParseStepKind(r.PathValue("kind"))
	if err != nil {
		c.reply(w, EventsRoute, http.StatusNotFound, "unknown event kind")
		return
	}
	var step connector.Step
	if err := decode(w, r, &step); err != nil {
		c.reply(w, EventsRoute, http.StatusBadRequest, err.Error())
		return
	}
	step.Kind = kind
	c.accept(w, r, EventsRoute, step)
}

func (c *Connector) accept(w http.ResponseWriter, r *http.Request, route string, step connector.Step) {
	if err := step.Validate(); err != nil {
		c.reply(w, route, http.StatusBadRequest, err.Error())
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.reply(w, route, http.StatusServiceUnavailable, "shutting down")
		return
	}
	select {
	case c.ch <- step:
		c.reply(w, route, http.StatusAccepted, "")
	case <-c.done:
		c.reply(w, route, http.StatusServiceUnavailable, "shutting down")
	case <-r.Context().Done():
		c.logger.Debug("request abandoned before enqueue", "route", route)
		c.metrics.RecordHTTPRequest(route, "499")
	}
}

func (c *Connector) reply(w http.ResponseWriter, route string, code int, msg string) {
	c.metrics.RecordHTTPRequest(route, strconv.Itoa(code))
	if code >= 400 {
		c.logger.Debug("request rejected", "route", route, "status", code, "reason", msg)
		http.Error(w, msg, code)
		return
	}
	w.WriteHeader(code)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}
