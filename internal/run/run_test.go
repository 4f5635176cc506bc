package run

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certguard/caupdater/internal/history"
	"github.com/certguard/caupdater/internal/state"
	"github.com/certguard/caupdater/internal/updater"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type countingExecutor struct {
	outcome updater.Outcome
	calls   atomic.Int32
}

func (c *countingExecutor) Update(context.Context) updater.Outcome {
	c.calls.Add(1)
	return c.outcome
}

type memSink struct {
	events []history.Event
}

func (m *memSink) Send(_ context.Context, e history.Event) error {
	m.events = append(m.events, e)
	return nil
}

func opts(store state.Store, exec updater.Executor) Options {
	return Options{
		Store:    store,
		Executor: exec,
		Now:      func() time.Time { return testNow },
	}
}

func TestCycleSkipLeavesStateUntouched(t *testing.T) {
	rec := state.Record{
		LastAttempt: testNow.Add(-10 * time.Hour),
		LastSuccess: testNow.Add(-10 * time.Hour),
		LastOutcome: state.OutcomeSuccess,
	}
	store := state.NewMemStore(rec)
	exec := &countingExecutor{outcome: updater.Outcome{Kind: updater.Updated}}

	o := opts(store, exec)
	o.MinimumAge = 24 * time.Hour

	code := Cycle(context.Background(), o)
	assert.Equal(t, updater.ExitOK, code)
	assert.Equal(t, int32(0), exec.calls.Load(), "executor must not run on skip")
	assert.Equal(t, 0, store.Saves(), "state must not be rewritten on skip")
}

func TestCycleSuccess(t *testing.T) {
	store := state.NewMemStore(state.Record{})
	exec := &countingExecutor{outcome: updater.Outcome{Kind: updater.Updated}}

	code := Cycle(context.Background(), opts(store, exec))
	require.Equal(t, updater.ExitOK, code)
	require.Equal(t, 1, store.Saves())

	rec := store.Current()
	assert.Equal(t, testNow, rec.LastAttempt)
	assert.Equal(t, testNow, rec.LastSuccess)
	assert.Equal(t, state.OutcomeSuccess, rec.LastOutcome)
}

func TestCycleTransientTolerated(t *testing.T) {
	prev := testNow.Add(-50 * time.Hour)
	store := state.NewMemStore(state.Record{
		LastAttempt: prev, LastSuccess: prev, LastOutcome: state.OutcomeSuccess,
	})
	exec := &countingExecutor{outcome: updater.Transient("mirror down")}

	o := opts(store, exec)
	o.MaximumAge = 72 * time.Hour

	code := Cycle(context.Background(), o)
	assert.Equal(t, updater.ExitOK, code)

	rec := store.Current()
	assert.Equal(t, testNow, rec.LastAttempt)
	assert.Equal(t, prev, rec.LastSuccess, "failure must not move last success")
	assert.Equal(t, state.OutcomeTransient, rec.LastOutcome)
}

func TestCycleTransientEscalated(t *testing.T) {
	prev := testNow.Add(-50 * time.Hour)
	store := state.NewMemStore(state.Record{
		LastAttempt: prev, LastSuccess: prev, LastOutcome: state.OutcomeSuccess,
	})
	exec := &countingExecutor{outcome: updater.Transient("mirror down")}

	o := opts(store, exec)
	o.MaximumAge = 24 * time.Hour

	assert.Equal(t, updater.ExitUpdateError, Cycle(context.Background(), o))
}

func TestCycleFatal(t *testing.T) {
	prev := testNow.Add(-time.Minute)
	store := state.NewMemStore(state.Record{
		LastAttempt: prev, LastSuccess: prev, LastOutcome: state.OutcomeSuccess,
	})
	exec := &countingExecutor{outcome: updater.Fatal("repos disabled")}

	o := opts(store, exec)
	o.MaximumAge = 1000 * time.Hour

	assert.Equal(t, updater.ExitFatal, Cycle(context.Background(), o))
	assert.Equal(t, state.OutcomeFatal, store.Current().LastOutcome)
}

func TestCycleInterruptedDuringDelay(t *testing.T) {
	store := state.NewMemStore(state.Record{})
	exec := &countingExecutor{outcome: updater.Outcome{Kind: updater.Updated}}

	o := Options{
		Store:          store,
		Executor:       exec,
		RandomDelayMax: 30 * time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan updater.ExitCode, 1)
	go func() { done <- Cycle(ctx, o) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, updater.ExitInterrupted, code)
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not return promptly after interrupt")
	}
	assert.Equal(t, int32(0), exec.calls.Load(), "executor must not run after interrupt")
	assert.Equal(t, 0, store.Saves(), "state must not be rewritten after interrupt")
}

func TestCycleInterruptedDuringUpdate(t *testing.T) {
	store := state.NewMemStore(state.Record{})
	ctx, cancel := context.WithCancel(context.Background())
	exec := updater.ExecutorFunc(func(ctx context.Context) updater.Outcome {
		cancel()
		return updater.Transient("signal: interrupt")
	})

	o := Options{Store: store, Executor: exec, Now: func() time.Time { return testNow }}
	assert.Equal(t, updater.ExitInterrupted, Cycle(ctx, o))
	assert.Equal(t, 0, store.Saves())
}

func TestCycleLoadErrorIsUnexpected(t *testing.T) {
	store := state.NewMemStore(state.Record{})
	store.LoadErr = context.DeadlineExceeded
	exec := &countingExecutor{outcome: updater.Outcome{Kind: updater.Updated}}

	assert.Equal(t, updater.ExitUnexpected, Cycle(context.Background(), opts(store, exec)))
	assert.Equal(t, int32(0), exec.calls.Load())
}

func TestCycleSaveErrorKeepsClassifiedCode(t *testing.T) {
	store := state.NewMemStore(state.Record{})
	store.SaveErr = context.DeadlineExceeded
	exec := &countingExecutor{outcome: updater.Outcome{Kind: updater.UpToDate}}

	assert.Equal(t, updater.ExitOK, Cycle(context.Background(), opts(store, exec)))
}

func TestCycleRecordsHistory(t *testing.T) {
	store := state.NewMemStore(state.Record{})
	exec := &countingExecutor{outcome: updater.Fatal("repos disabled")}
	sink := &memSink{}

	o := opts(store, exec)
	o.History = sink
	o.Hostname = "node1.example.org"

	Cycle(context.Background(), o)
	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, "fatal-error", e.Outcome)
	assert.Equal(t, 4, e.ExitCode)
	assert.Equal(t, "node1.example.org", e.Hostname)
	assert.Equal(t, "repos disabled", e.Detail)
}

func TestCycleHistorySkippedOnSkip(t *testing.T) {
	rec := state.Record{
		LastAttempt: testNow.Add(-time.Hour),
		LastSuccess: testNow.Add(-time.Hour),
		LastOutcome: state.OutcomeSuccess,
	}
	store := state.NewMemStore(rec)
	sink := &memSink{}

	o := opts(store, &countingExecutor{})
	o.MinimumAge = 24 * time.Hour
	o.History = sink

	Cycle(context.Background(), o)
	assert.Empty(t, sink.events, "no attempt, no history event")
}
