package model

// EventKind is the abstract classification of a telemetry event.
// A taxonomy maps each kind to the name a backend sees.
type EventKind string

const (
	KindMessageReceived    EventKind = "message-received"
	KindMessageSent        EventKind = "message-sent"
	KindIntentDialog       EventKind = "intent-dialog"
	KindSentiment          EventKind = "sentiment"
	KindQnA                EventKind = "qna"
	KindCustom             EventKind = "custom"
	KindGoalTriggered      EventKind = "goal-triggered"
	KindConversationUpdate EventKind = "conversation-update"
	KindConversationEnded  EventKind = "conversation-ended"
	KindOther              EventKind = "other"
)

// Kinds lists every event kind.
var Kinds = []EventKind{
	KindMessageReceived, KindMessageSent, KindIntentDialog, KindSentiment, KindQnA,
	KindCustom, KindGoalTriggered, KindConversationUpdate, KindConversationEnded, KindOther,
}

// TelemetryEvent is the canonical unit delivered to every destination.
type TelemetryEvent struct {
	ID         string             `json:"id,omitempty"`
	Kind       EventKind          `json:"kind"`
	Name       string             `json:"name"`
	Properties Properties         `json:"properties"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}
