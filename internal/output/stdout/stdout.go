package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

// Scheme is the routing-key scheme for this sink.
const Scheme = "stdout"

func init() {
	output.Register(Scheme, func(target string) (output.Output, error) {
		opts := output.TargetOptions(target)
		verbosity := output.Full
		if opts["minimal"] {
			verbosity = output.Minimal
		}
		return New(os.Stdout, verbosity, opts["pretty"]), nil
	})
}

// Output writes JSON-encoded telemetry events to a writer, one per line
// unless pretty-printed.
type Output struct {
	mu        sync.Mutex
	enc       *json.Encoder
	verbosity output.Verbosity
}

// New creates an Output writing to w with verbosity-aware field omission
// and optional pretty-printed JSON.
func New(w io.Writer, verbosity output.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, event model.TelemetryEvent) error {
	formatted := output.FormatEvent(event, o.verbosity)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
