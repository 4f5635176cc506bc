package state

import (
	"time"
)

// Outcome tags how the most recent update attempt ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTransient Outcome = "transient-error"
	OutcomeFatal     Outcome = "fatal-error"
)

// Record is the single persisted run record for a host. Zero timestamps
// mean "never"; a zero Record is the "no prior run" sentinel that forces
// an update attempt.
// Invariant: LastSuccess never exceeds LastAttempt.
type Record struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastOutcome Outcome   `json:"last_outcome,omitempty"`
}

// HasRun reports whether any attempt has been recorded.
func (r Record) HasRun() bool { return !r.LastAttempt.IsZero() }

// HasSucceeded reports whether any successful attempt has been recorded.
func (r Record) HasSucceeded() bool { return !r.LastSuccess.IsZero() }

// Valid reports whether the record satisfies its timestamp invariant.
func (r Record) Valid() bool {
	if r.LastSuccess.IsZero() {
		return true
	}
	return !r.LastSuccess.After(r.LastAttempt)
}

// Store persists the run record across invocations. Load never fails on
// a missing or unreadable record: losing the timestamps only costs one
// extra eager update attempt, so recoverability wins over strictness.
type Store interface {
	Load() (Record, error)
	Save(Record) error
	Close() error
}
