package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidEndpoint is returned when the base endpoint is not an absolute URL.
	ErrInvalidEndpoint = errors.New("httpclient: base endpoint must be an absolute URL")
	// ErrNilBody is returned when Post is called without a payload.
	ErrNilBody = errors.New("httpclient: request body is nil")
)

// Client posts JSON payloads to a base endpoint plus a relative route.
// It does not retry.
type Client struct {
	httpClient *http.Client
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client with a 30s timeout.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends body to route resolved against baseEndpoint and returns the
// response body. Returns *APIError for non-2xx responses.
func (c *Client) Post(ctx context.Context, baseEndpoint, route string, headers map[string]string, body []byte) ([]byte, error) {
	target, err := Resolve(baseEndpoint, route)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrNilBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}
	return respBody, nil
}

// Resolve joins route onto baseEndpoint, treating the base path as a
// directory so "https://host/api" + "v2/x" yields "https://host/api/v2/x".
func Resolve(baseEndpoint, route string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(baseEndpoint))
	if err != nil || !base.IsAbs() || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, baseEndpoint)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	rel, err := url.Parse(strings.TrimPrefix(route, "/"))
	if err != nil {
		return "", fmt.Errorf("httpclient: invalid route %q: %w", route, err)
	}
	return base.ResolveReference(rel).String(), nil
}
