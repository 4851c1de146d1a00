// Package sentiment scores inbound message text against a Text Analytics
// style sentiment backend.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/transport/httpclient"
)

const (
	// Route is the sentiment operation relative to the service endpoint.
	Route = "text/analytics/v2.0/sentiment"
	// SubscriptionKeyHeader carries the API key.
	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	// DefaultEndpoint is used when no endpoint is configured.
	DefaultEndpoint = "https://westus.api.cognitive.microsoft.com/"
)

// ErrNoScore is returned when the backend answers without a document score.
var ErrNoScore = errors.New("sentiment: response contained no document score")

// Transport posts a JSON body to a route under a base endpoint.
type Transport interface {
	Post(ctx context.Context, baseEndpoint, route string, headers map[string]string, body []byte) ([]byte, error)
}

// Manager decides whether a text is worth scoring and queries the backend.
type Manager struct {
	apiKey    string
	minLength int
	endpoint  string
	transport Transport
}

// NewManager creates a Manager. minLength is the minimum number of words
// and falls back to 0 when it does not parse. A nil transport uses
// httpclient.New().
func NewManager(apiKey, minLength, endpoint string, transport Transport) *Manager {
	n, err := strconv.Atoi(strings.TrimSpace(minLength))
	if err != nil || n < 0 {
		n = 0
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if transport == nil {
		transport = httpclient.New()
	}
	return &Manager{
		apiKey:    strings.TrimSpace(apiKey),
		minLength: n,
		endpoint:  endpoint,
		transport: transport,
	}
}

// Enabled reports whether an API key is configured.
func (m *Manager) Enabled() bool { return m.apiKey != "" }

// MinLength returns the effective word-count threshold.
func (m *Manager) MinLength() int { return m.minLength }

// Eligible reports whether text would be sent to the backend.
func (m *Manager) Eligible(text string) bool {
	return m.Enabled() && WordCount(text) >= m.minLength
}

// WordCount returns the number of whitespace-delimited tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

type document struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type request struct {
	Documents []document `json:"documents"`
}

type scoredDocument struct {
	ID    json.RawMessage `json:"id"`
	Score *float64        `json:"score"`
}

type response struct {
	Documents []scoredDocument `json:"documents"`
}

// Properties returns {"score": value} for text. It returns nil, nil when
// scoring is disabled or the text is too short.
func (m *Manager) Properties(ctx context.Context, text string) (map[string]string, error) {
	if !m.Eligible(text) {
		return nil, nil
	}
	score, err := m.Score(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string]string{model.KeyScore: FormatScore(score)}, nil
}

// Score submits text as a single document and returns its score.
func (m *Manager) Score(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(request{Documents: []document{{ID: 1, Text: norm.NFC.String(text)}}})
	if err != nil {
		return 0, err
	}

	var headers map[string]string
	if m.apiKey != "" {
		headers = map[string]string{SubscriptionKeyHeader: m.apiKey}
	}

	raw, err := m.transport.Post(ctx, m.endpoint, Route, headers, body)
	if err != nil {
		return 0, fmt.Errorf("sentiment: %w", err)
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("sentiment: decoding response: %w", err)
	}
	if len(resp.Documents) == 0 || resp.Documents[0].Score == nil {
		return 0, ErrNoScore
	}
	return *resp.Documents[0].Score, nil
}

// FormatScore renders a score with the shortest exact decimal form,
// independent of locale.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
