package updater

import (
	"time"

	"github.com/certguard/caupdater/internal/state"
)

// ExitCode is the process exit status reported to the invoking timer.
// The values are a stable external contract used for alerting.
type ExitCode int

const (
	ExitOK          ExitCode = 0  // success, skip, or tolerated transient error
	ExitUpdateError ExitCode = 1  // update failed past the maximum-age window
	ExitUsage       ExitCode = 2  // invalid arguments
	ExitInterrupted ExitCode = 3  // interrupt received before the attempt completed
	ExitFatal       ExitCode = 4  // structural problem, e.g. required repos absent
	ExitUnexpected  ExitCode = 99 // unclassified internal fault
)

// Classify maps an executor outcome to the exit code and the record to
// persist. It is pure: same inputs, same result.
//
// A transient error is tolerated (exit 0) as long as some success
// happened within maximumAge of now, boundary inclusive. A host that
// has never succeeded has no tolerance window. Fatal errors are never
// de-escalated by recency: they indicate the environment itself is
// wrong, not a remote hiccup.
func Classify(o Outcome, rec state.Record, now time.Time, maximumAge time.Duration) (ExitCode, state.Record) {
	next := rec
	next.LastAttempt = now

	switch o.Kind {
	case UpToDate, Updated:
		next.LastSuccess = now
		next.LastOutcome = state.OutcomeSuccess
		return ExitOK, next
	case TransientError:
		next.LastOutcome = state.OutcomeTransient
		if rec.HasSucceeded() && now.Sub(rec.LastSuccess) <= maximumAge {
			return ExitOK, next
		}
		return ExitUpdateError, next
	case FatalError:
		next.LastOutcome = state.OutcomeFatal
		return ExitFatal, next
	default:
		return ExitUnexpected, rec
	}
}
