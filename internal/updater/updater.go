// Package updater defines the contract an update executor must satisfy
// and the policy that turns its outcome into a process exit code and a
// new persisted record. The policy is deliberately a pure function so
// the whole escalation behavior is unit-testable without touching a
// package manager or the filesystem.
package updater

import (
	"context"
	"fmt"
)

// Kind enumerates the four possible results of a single update attempt.
type Kind int

const (
	UpToDate Kind = iota
	Updated
	TransientError
	FatalError
)

func (k Kind) String() string {
	switch k {
	case UpToDate:
		return "up-to-date"
	case Updated:
		return "updated"
	case TransientError:
		return "transient-error"
	case FatalError:
		return "fatal-error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the single result of one executor invocation. Detail is
// human-readable context for errors; it is empty on success.
type Outcome struct {
	Kind   Kind
	Detail string
}

// Success reports whether the attempt completed without error.
// "Already up to date" counts as success.
func (o Outcome) Success() bool { return o.Kind == UpToDate || o.Kind == Updated }

// Convenience constructors for error outcomes.

func Transient(format string, args ...any) Outcome {
	return Outcome{Kind: TransientError, Detail: fmt.Sprintf(format, args...)}
}

func Fatal(format string, args ...any) Outcome {
	return Outcome{Kind: FatalError, Detail: fmt.Sprintf(format, args...)}
}

// Executor performs one update attempt. Implementations must return
// exactly one Outcome and must not decide exit codes or touch persisted
// state; that is the classifier's job. A TransientError signals a
// retryable condition (network or repository unreachable, lock
// contention); a FatalError signals a structural problem retrying will
// not fix, such as required repositories being absent or disabled.
type Executor interface {
	Update(ctx context.Context) Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context) Outcome

func (f ExecutorFunc) Update(ctx context.Context) Outcome { return f(ctx) }
