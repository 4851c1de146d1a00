package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/botsight/internal/model"
)

// Verbosity controls how much of an event a human-facing sink emits.
type Verbosity int

const (
	// Full emits every property and metric.
	Full Verbosity = iota
	// Minimal drops message text, user display names and metrics.
	Minimal
)

// ParseVerbosity maps "full" or "minimal" to a Verbosity. Empty is Full.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return Full, nil
	case "minimal":
		return Minimal, nil
	default:
		return Full, fmt.Errorf("output: unknown verbosity %q", s)
	}
}

var minimalDropped = map[string]bool{
	model.KeyText:     true,
	model.KeyUserName: true,
}

// FormatEvent returns a copy of the event with fields stripped according to verbosity.
func FormatEvent(e model.TelemetryEvent, verbosity Verbosity) model.TelemetryEvent {
	if verbosity != Minimal {
		return e
	}
	p := model.NewProperties(e.Properties.Len())
	e.Properties.Range(func(k, v string) bool {
		if !minimalDropped[k] {
			p.Set(k, v)
		}
		return true
	})
	e.Properties = p
	e.Metrics = nil
	return e
}

// TargetOptions splits "a,b,c" style sink options into a set.
func TargetOptions(target string) map[string]bool {
	opts := map[string]bool{}
	for _, o := range strings.Split(target, ",") {
		if o = strings.ToLower(strings.TrimSpace(o)); o != "" {
			opts[o] = true
		}
	}
	return opts
}
