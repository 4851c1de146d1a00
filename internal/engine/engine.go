package engine

import (
	"errors"
	"sort"

	"github.com/crimson-sun/botsight/internal/engine/classifier"
	"github.com/crimson-sun/botsight/internal/engine/taxonomy"
	"github.com/crimson-sun/botsight/internal/model"
)

// ErrNilActivity is returned when Build is called without an activity.
var ErrNilActivity = errors.New("engine: activity is nil")

// TimestampLayout renders activity timestamps as ISO-8601 UTC with up to
// seven fractional digits, trailing zeros trimmed.
const TimestampLayout = "2006-01-02T15:04:05.9999999Z07:00"

// Engine classifies activities and assembles their baseline properties.
// It is immutable and safe for concurrent use.
type Engine struct {
	taxonomy     *taxonomy.Taxonomy
	omitUsername bool
}

// New creates an Engine. A nil taxonomy selects taxonomy.Default.
func New(tax *taxonomy.Taxonomy, omitUsername bool) *Engine {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Engine{taxonomy: tax, omitUsername: omitUsername}
}

// Taxonomy returns the naming scheme used for event names.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.taxonomy }

// Build classifies a and returns its telemetry event. Each props layer is
// merged after the baseline in argument order; a key that is already present
// is never overwritten, so baseline properties always win.
func (e *Engine) Build(a *model.Activity, props ...map[string]string) (model.TelemetryEvent, error) {
	return e.BuildWithMetrics(a, nil, props...)
}

// BuildWithMetrics is Build with numeric metrics attached to the event.
func (e *Engine) BuildWithMetrics(a *model.Activity, metrics map[string]float64, props ...map[string]string) (model.TelemetryEvent, error) {
	if a == nil {
		return model.TelemetryEvent{}, ErrNilActivity
	}

	kind := classifier.Classify(a)
	p := model.NewProperties(8)

	if a.Timestamp != nil {
		p.Set(model.KeyTimestamp, a.Timestamp.UTC().Format(TimestampLayout))
	}
	p.Set(model.KeyType, string(a.Type))
	p.Set(model.KeyChannel, a.ChannelID)

	if a.Type == model.ActivityMessage {
		if kind == model.KindMessageReceived {
			p.Set(model.KeyUserID, a.From.ID)
			if !e.omitUsername {
				p.Set(model.KeyUserName, a.From.Name)
			}
		}
		p.Set(model.KeyText, a.Text)
		p.Set(model.KeyConversationID, a.Conversation.ID)
	}

	for _, layer := range props {
		merge(&p, layer)
	}

	ev := model.TelemetryEvent{
		Kind:       kind,
		Name:       e.taxonomy.Label(kind),
		Properties: p,
	}
	if len(metrics) > 0 {
		ev.Metrics = make(map[string]float64, len(metrics))
		for k, v := range metrics {
			ev.Metrics[k] = v
		}
	}
	return ev, nil
}

// Relabel forces the event's kind. An empty name selects the taxonomy label.
func (e *Engine) Relabel(ev model.TelemetryEvent, kind model.EventKind, name string) model.TelemetryEvent {
	ev.Kind = kind
	if name == "" {
		name = e.taxonomy.Label(kind)
	}
	ev.Name = name
	return ev
}

// merge adds layer's keys in sorted order so repeated builds are identical.
func merge(p *model.Properties, layer map[string]string) {
	if len(layer) == 0 {
		return
	}
	keys := make([]string, 0, len(layer))
	for k := range layer {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Add(k, layer[k])
	}
}
