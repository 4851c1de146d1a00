package botsight

import (
	"github.com/crimson-sun/botsight/internal/engine"
	"github.com/crimson-sun/botsight/internal/instrumentation"
	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

// Activity types and records as delivered by the bot runtime.
type (
	Activity            = model.Activity
	ActivityType        = model.ActivityType
	ChannelAccount      = model.ChannelAccount
	ConversationAccount = model.ConversationAccount
)

// Language understanding results.
type (
	IntentResult = model.IntentResult
	Intent       = model.Intent
	Entity       = model.Entity
)

// TelemetryEvent is what a Sink receives.
type TelemetryEvent = model.TelemetryEvent

// Sink is a telemetry destination supplied by the caller.
type Sink = output.Output

const (
	ActivityMessage            = model.ActivityMessage
	ActivityConversationUpdate = model.ActivityConversationUpdate
	ActivityEndOfConversation  = model.ActivityEndOfConversation
)

var (
	// ErrNoDestinations is returned by New when no destination is configured.
	ErrNoDestinations = instrumentation.ErrNoDestinations
	// ErrNilActivity is returned by tracking calls given a nil activity.
	ErrNilActivity = engine.ErrNilActivity
)
