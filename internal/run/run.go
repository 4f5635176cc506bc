// Package run wires the decision engine, the executor, and the
// classifier into one update cycle. It owns all side effects around the
// pure pieces: loading and saving the record, the spread delay, and
// best-effort history/metrics export.
package run

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/certguard/caupdater/internal/history"
	"github.com/certguard/caupdater/internal/metrics"
	"github.com/certguard/caupdater/internal/schedule"
	"github.com/certguard/caupdater/internal/state"
	"github.com/certguard/caupdater/internal/updater"
)

// Options configures one update cycle.
type Options struct {
	Store    state.Store
	Executor updater.Executor

	MinimumAge     time.Duration
	MaximumAge     time.Duration
	RandomDelayMax time.Duration

	// History receives a best-effort event per completed attempt. Nil
	// disables history.
	History  history.Sink
	Hostname string

	// MetricsTextfile, when set, receives the prometheus textfile
	// snapshot at the end of a completed attempt.
	MetricsTextfile string

	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Cycle performs one scheduling decision and at most one update
// attempt, returning the process exit code. ctx carries the interrupt
// signal: cancellation during the spread delay exits without touching
// state, cancellation during the update is classified by the executor.
func Cycle(ctx context.Context, o Options) updater.ExitCode {
	o.setDefaults()
	log := o.Logger
	now := o.Now()

	rec, err := o.Store.Load()
	if err != nil {
		log.Error("unable to load run record", "error", err)
		return updater.ExitUnexpected
	}

	decision := schedule.Decide(now, rec, schedule.Config{
		MinimumAge:     o.MinimumAge,
		RandomDelayMax: o.RandomDelayMax,
	})

	switch decision.Kind {
	case schedule.Skip:
		log.Info("recent successful update, not updating",
			"last_success", rec.LastSuccess, "minimum_age", o.MinimumAge)
		return updater.ExitOK
	case schedule.DelayThenRun:
		log.Debug("waiting before update", "delay", decision.Delay)
		if err := schedule.Wait(ctx, decision.Delay); err != nil {
			log.Warn("interrupted during spread delay")
			return updater.ExitInterrupted
		}
	}

	start := o.Now()
	outcome := o.Executor.Update(ctx)
	metrics.ObserveUpdateDuration(o.Now().Sub(start).Seconds())

	if outcome.Kind == updater.TransientError && errors.Is(ctx.Err(), context.Canceled) {
		// The interrupt arrived mid-update; the attempt did not
		// complete, so the record must not move.
		log.Warn("interrupted during update")
		return updater.ExitInterrupted
	}

	now = o.Now()
	code, next := updater.Classify(outcome, rec, now, o.MaximumAge)
	logOutcome(log, outcome, code, next, o.MaximumAge)

	if err := o.Store.Save(next); err != nil {
		// Not fatal: losing the timestamp only causes one extra eager
		// update attempt on the next tick.
		log.Error("unable to save run record", "error", err)
	}

	o.export(ctx, now, outcome, code, next)
	return code
}

func logOutcome(log *slog.Logger, o updater.Outcome, code updater.ExitCode, rec state.Record, maxAge time.Duration) {
	switch {
	case o.Success():
		log.Info("update succeeded", "result", o.Kind.String())
	case o.Kind == updater.FatalError:
		log.Error("update failed", "result", o.Kind.String(), "detail", o.Detail)
	case code == updater.ExitOK:
		log.Warn("update failed, tolerated as transient",
			"detail", o.Detail, "last_success", rec.LastSuccess, "maximum_age", maxAge)
	default:
		log.Error("updates have failed past the maximum age, escalating",
			"detail", o.Detail, "last_success", rec.LastSuccess, "maximum_age", maxAge)
	}
}

// export records the attempt in history and metrics. Failures are
// logged and swallowed: reporting must never change the exit status.
func (o Options) export(ctx context.Context, now time.Time, outcome updater.Outcome, code updater.ExitCode, rec state.Record) {
	metrics.RecordRun(outcome.Kind.String(), int(code))
	metrics.SetLastRun(float64(now.Unix()))
	if rec.HasSucceeded() {
		metrics.SetLastSuccess(float64(rec.LastSuccess.Unix()))
	}
	if o.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(o.MetricsTextfile); err != nil {
			o.Logger.Error("unable to write metrics textfile", "path", o.MetricsTextfile, "error", err)
		}
	}

	if o.History == nil {
		return
	}
	e := history.Event{
		OccurredAt: now,
		Hostname:   o.Hostname,
		Outcome:    outcome.Kind.String(),
		Detail:     outcome.Detail,
		ExitCode:   int(code),
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.History.Send(hctx, e); err != nil {
		o.Logger.Error("unable to record run history", "error", err)
	}
}
