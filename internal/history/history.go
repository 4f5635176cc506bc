package history

import (
	"context"
	"time"
)

// Event is one completed update attempt, exported to an external system
// for fleet-wide reporting. Recording history is best-effort: a sink
// failure never changes the run's exit code.
type Event struct {
	OccurredAt time.Time `json:"occurred_at"`
	Hostname   string    `json:"hostname"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	ExitCode   int       `json:"exit_code"`
}

// Sink is a destination for run-history events.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
