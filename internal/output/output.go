package output

import (
	"context"

	"github.com/crimson-sun/botsight/internal/model"
)

// Output defines the interface for telemetry event destinations.
type Output interface {
	Write(ctx context.Context, event model.TelemetryEvent) error
	Close() error
}
