// Package caupdater keeps a host's CA-certificate bundle packages
// current. It is built around a persisted record of the last update
// attempt and last success: the record drives skipping recent work,
// spreading load with a random delay, and escalating repeated transient
// failures into a reportable error.
//
// This package is a thin facade over the internal packages for
// embedders; the caupdater binary under cmd/ is the usual entry point.
package caupdater

import (
	"context"
	"time"

	cfg "github.com/certguard/caupdater/internal/config"
	"github.com/certguard/caupdater/internal/history"
	"github.com/certguard/caupdater/internal/history/factory"
	"github.com/certguard/caupdater/internal/run"
	"github.com/certguard/caupdater/internal/schedule"
	"github.com/certguard/caupdater/internal/state"
	"github.com/certguard/caupdater/internal/updater"
	"github.com/certguard/caupdater/internal/updater/yum"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Record = state.Record

type Store = state.Store

type Outcome = updater.Outcome

type ExitCode = updater.ExitCode

type Executor = updater.Executor

type ExecutorFunc = updater.ExecutorFunc

type HistorySink = history.Sink

type HistoryEvent = history.Event

type Options = run.Options

const (
	ExitOK          = updater.ExitOK
	ExitUpdateError = updater.ExitUpdateError
	ExitUsage       = updater.ExitUsage
	ExitInterrupted = updater.ExitInterrupted
	ExitFatal       = updater.ExitFatal
	ExitUnexpected  = updater.ExitUnexpected
)

// NewFileStore returns the file-backed run-record store. lockPath may
// be empty to derive it from path.
func NewFileStore(path, lockPath string) *state.FileStore {
	return state.NewFileStore(path, lockPath, nil)
}

// NewMemStore returns an in-memory store, mainly for tests.
func NewMemStore(rec Record) *state.MemStore { return state.NewMemStore(rec) }

// NewYumExecutor returns an executor that drives yum/dnf and repoquery.
// Zero-value config fields fall back to yum defaults.
func NewYumExecutor(c yum.Config) Executor { return yum.New(c) }

// NewHistorySink creates a run-history sink from a DSN (sqlite path,
// postgres://, clickhouse:// or opensearch://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (cfg.Config, error) { return cfg.Load(path) }

// Cycle performs one scheduling decision and at most one update
// attempt, returning the process exit code.
func Cycle(ctx context.Context, o Options) ExitCode { return run.Cycle(ctx, o) }

// Classify maps an executor outcome to the exit code and the record to
// persist. Exposed for callers that replace the run cycle but keep the
// escalation policy.
func Classify(o Outcome, rec Record, now time.Time, maximumAge time.Duration) (ExitCode, Record) {
	return updater.Classify(o, rec, now, maximumAge)
}

// Decide computes the scheduling action for this invocation.
func Decide(now time.Time, rec Record, c schedule.Config) schedule.Decision {
	return schedule.Decide(now, rec, c)
}
