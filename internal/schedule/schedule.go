// Package schedule decides whether an update attempt should happen now,
// after a random spread delay, or not at all. The decision is a pure
// function of the clock, the persisted run record, and the configured
// thresholds; the delay exists only to avoid synchronized load spikes
// when a whole fleet fires on the same timer schedule.
package schedule

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/certguard/caupdater/internal/state"
)

// Kind enumerates the three decision states.
type Kind int

const (
	Skip Kind = iota
	DelayThenRun
	RunNow
)

func (k Kind) String() string {
	switch k {
	case Skip:
		return "skip"
	case DelayThenRun:
		return "delay-then-run"
	case RunNow:
		return "run-now"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Config holds the caller-supplied thresholds. Zero MinimumAge means
// always update; zero RandomDelayMax means update immediately.
type Config struct {
	MinimumAge     time.Duration
	RandomDelayMax time.Duration

	// Rand overrides the delay source in tests. When nil the shared
	// math/rand/v2 generator is used.
	Rand *rand.Rand
}

// Decision is the computed action. Delay is meaningful only for
// DelayThenRun.
type Decision struct {
	Kind  Kind
	Delay time.Duration
}

// Decide computes the action for this invocation. The minimum-age check
// runs before any delay so hosts that are already fresh never pay the
// random-wait cost.
func Decide(now time.Time, rec state.Record, cfg Config) Decision {
	if cfg.MinimumAge > 0 && rec.HasSucceeded() && now.Sub(rec.LastSuccess) < cfg.MinimumAge {
		return Decision{Kind: Skip}
	}
	if cfg.RandomDelayMax > 0 {
		return Decision{Kind: DelayThenRun, Delay: cfg.drawDelay()}
	}
	return Decision{Kind: RunNow}
}

// drawDelay picks a delay uniformly from [0, RandomDelayMax].
func (cfg Config) drawDelay() time.Duration {
	n := int64(cfg.RandomDelayMax)
	if n <= 0 {
		return 0
	}
	if cfg.Rand != nil {
		return time.Duration(cfg.Rand.Int64N(n + 1))
	}
	return time.Duration(rand.Int64N(n + 1))
}

// Wait blocks for at most d. It returns the context error as soon as
// ctx is cancelled, so an interrupt during the spread delay is
// effectively immediate.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
