package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

// Scheme is the routing-key scheme for this sink.
const Scheme = "webhook"

const defaultTimeout = 10 * time.Second

func init() {
	output.Register(Scheme, func(target string) (output.Output, error) {
		return New(target)
	})
}

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client. A nil client keeps
// the default.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Output) {
		if c != nil {
			o.client = c
		}
	}
}

// Output POSTs each telemetry event to an HTTP endpoint as a JSON object.
// Failed deliveries are reported to the caller and not retried.
type Output struct {
	client  *http.Client
	url     string
	headers map[string]string
}

// New creates a webhook output targeting the given absolute URL.
func New(rawURL string, opts ...Option) (*Output, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("webhook: invalid url %q", rawURL)
	}
	o := &Output{
		client: &http.Client{Timeout: defaultTimeout},
		url:    u.String(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Write sends the event via HTTP POST.
func (o *Output) Write(ctx context.Context, event model.TelemetryEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; every Write completes its request.
func (o *Output) Close() error {
	return nil
}
