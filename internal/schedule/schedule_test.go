package schedule

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/certguard/caupdater/internal/state"
)

func TestDecideSkipWithinMinimumAge(t *testing.T) {
	now := time.Now()
	rec := state.Record{
		LastAttempt: now.Add(-10 * time.Hour),
		LastSuccess: now.Add(-10 * time.Hour),
		LastOutcome: state.OutcomeSuccess,
	}
	d := Decide(now, rec, Config{MinimumAge: 24 * time.Hour})
	if d.Kind != Skip {
		t.Fatalf("success 10h ago with 24h minimum age: got %v, want skip", d.Kind)
	}
}

func TestDecideSkipIgnoresLastOutcome(t *testing.T) {
	// A recent success skips even when the latest attempt failed.
	now := time.Now()
	rec := state.Record{
		LastAttempt: now.Add(-time.Hour),
		LastSuccess: now.Add(-5 * time.Hour),
		LastOutcome: state.OutcomeTransient,
	}
	d := Decide(now, rec, Config{MinimumAge: 24 * time.Hour, RandomDelayMax: 30 * time.Minute})
	if d.Kind != Skip {
		t.Fatalf("got %v, want skip regardless of last outcome", d.Kind)
	}
}

func TestDecideNoPriorRunNeverSkips(t *testing.T) {
	now := time.Now()
	d := Decide(now, state.Record{}, Config{MinimumAge: 1000 * time.Hour})
	if d.Kind != RunNow {
		t.Fatalf("no prior run must not skip: got %v", d.Kind)
	}
	d = Decide(now, state.Record{}, Config{MinimumAge: 1000 * time.Hour, RandomDelayMax: time.Minute})
	if d.Kind != DelayThenRun {
		t.Fatalf("no prior run with delay configured: got %v, want delay-then-run", d.Kind)
	}
}

func TestDecideZeroMinimumAgeAlwaysRuns(t *testing.T) {
	now := time.Now()
	rec := state.Record{LastAttempt: now, LastSuccess: now, LastOutcome: state.OutcomeSuccess}
	if d := Decide(now, rec, Config{}); d.Kind != RunNow {
		t.Fatalf("zero minimum age must always run: got %v", d.Kind)
	}
}

func TestDecideStaleSuccessRuns(t *testing.T) {
	now := time.Now()
	rec := state.Record{
		LastAttempt: now.Add(-30 * time.Hour),
		LastSuccess: now.Add(-30 * time.Hour),
		LastOutcome: state.OutcomeSuccess,
	}
	if d := Decide(now, rec, Config{MinimumAge: 24 * time.Hour}); d.Kind != RunNow {
		t.Fatalf("success older than minimum age: got %v, want run-now", d.Kind)
	}
}

func TestDelayBoundsAndDistribution(t *testing.T) {
	const max = 30 * time.Minute
	cfg := Config{RandomDelayMax: max, Rand: rand.New(rand.NewPCG(1, 2))}

	const trials = 20000
	var sum time.Duration
	for i := 0; i < trials; i++ {
		d := Decide(time.Now(), state.Record{}, cfg)
		if d.Kind != DelayThenRun {
			t.Fatalf("got %v, want delay-then-run", d.Kind)
		}
		if d.Delay < 0 || d.Delay > max {
			t.Fatalf("delay %v outside [0, %v]", d.Delay, max)
		}
		sum += d.Delay
	}
	// Uniform on [0, max] has mean max/2; with 20k trials the sample
	// mean lands within a few percent.
	mean := sum / trials
	lo, hi := max/2-max/20, max/2+max/20
	if mean < lo || mean > hi {
		t.Fatalf("sample mean %v outside [%v, %v], delay not uniform", mean, lo, hi)
	}
}

func TestWaitCompletes(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("Wait returned after %v, want at least 20ms", elapsed)
	}
}

func TestWaitCancelledImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Wait(ctx, 30*time.Minute) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Wait returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return promptly after cancellation")
	}
}

func TestWaitZeroDuration(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("zero wait: %v", err)
	}
}
