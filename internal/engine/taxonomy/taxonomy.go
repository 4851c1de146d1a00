package taxonomy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crimson-sun/botsight/internal/model"
)

// Taxonomy maps abstract event kinds to the names a backend sees.
type Taxonomy struct {
	name   string
	labels map[model.EventKind]string
}

// New creates a Taxonomy. Every kind in model.Kinds must have a non-empty label.
func New(name string, labels map[model.EventKind]string) (*Taxonomy, error) {
	t := &Taxonomy{name: name, labels: make(map[model.EventKind]string, len(labels))}
	for _, k := range model.Kinds {
		l := labels[k]
		if l == "" {
			return nil, fmt.Errorf("taxonomy %q: no label for kind %q", name, k)
		}
		t.labels[k] = l
	}
	return t, nil
}

func must(name string, labels map[model.EventKind]string) *Taxonomy {
	t, err := New(name, labels)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the taxonomy identifier ("mbf", "legacy", ...).
func (t *Taxonomy) Name() string { return t.name }

// Label returns the event name for kind. Unknown kinds fall back to the
// label for model.KindOther.
func (t *Taxonomy) Label(kind model.EventKind) string {
	if l, ok := t.labels[kind]; ok {
		return l
	}
	return t.labels[model.KindOther]
}

// Labels returns every label sorted by kind.
func (t *Taxonomy) Labels() []string {
	kinds := make([]string, 0, len(t.labels))
	for k := range t.labels {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = t.labels[model.EventKind(k)]
	}
	return out
}

var (
	defaultTaxonomy = must("mbf", map[model.EventKind]string{
		model.KindMessageReceived:    "MBFEvent.UserMessage",
		model.KindMessageSent:        "MBFEvent.BotMessage",
		model.KindIntentDialog:       "MBFEvent.Intent",
		model.KindSentiment:          "MBFEvent.Sentiment",
		model.KindQnA:                "MBFEvent.QNAEvent",
		model.KindCustom:             "MBFEvent.CustomEvent",
		model.KindGoalTriggered:      "MBFEvent.GoalEvent",
		model.KindConversationUpdate: "MBFEvent.StartConversation",
		model.KindConversationEnded:  "MBFEvent.EndConversation",
		model.KindOther:              "MBFEvent.Other",
	})

	legacyTaxonomy = must("legacy", map[model.EventKind]string{
		model.KindMessageReceived:    "message.received",
		model.KindMessageSent:        "message.send",
		model.KindIntentDialog:       "message.intent.dialog",
		model.KindSentiment:          "message.sentiment",
		model.KindQnA:                "message.qna",
		model.KindCustom:             "message.custom",
		model.KindGoalTriggered:      "message.goal",
		model.KindConversationUpdate: "message.conversation.updated",
		model.KindConversationEnded:  "message.conversation.ended",
		model.KindOther:              "message.other",
	})
)

// Default returns the "MBFEvent.*" naming scheme.
func Default() *Taxonomy { return defaultTaxonomy }

// Legacy returns the older "message.*" naming scheme.
func Legacy() *Taxonomy { return legacyTaxonomy }

// ByName resolves a naming scheme by identifier. Empty selects Default.
func ByName(name string) (*Taxonomy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mbf", "default":
		return defaultTaxonomy, nil
	case "legacy":
		return legacyTaxonomy, nil
	default:
		return nil, fmt.Errorf("unknown event naming %q", name)
	}
}
