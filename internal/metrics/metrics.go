package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level Prometheus collectors. A short-lived cron process has
// no exporter endpoint to scrape, so the collectors are flushed to a
// node-exporter textfile collector via WriteTextfile at process end.
var (
	regOK atomic.Bool

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caupdater",
			Name:      "runs_total",
			Help:      "Update runs by result.",
		}, []string{"result"},
	)
	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caupdater",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the most recent update attempt.",
		},
	)
	lastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caupdater",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful update.",
		},
	)
	lastExitCode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caupdater",
			Name:      "last_run_exit_code",
			Help:      "Exit code of the most recent run.",
		},
	)
	updateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caupdater",
			Name:      "update_duration_seconds",
			Help:      "Wall time of the package-manager update step.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{runsTotal, lastRunTimestamp, lastSuccessTimestamp, lastExitCode, updateDuration}
}

// Register registers all collectors with r. Registering the same
// collectors twice with the same registry is tolerated.
func Register(r prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Helpers used by the run cycle. They no-op until Register is called.

func RecordRun(result string, exitCode int) {
	if regOK.Load() {
		runsTotal.WithLabelValues(result).Inc()
		lastExitCode.Set(float64(exitCode))
	}
}

func SetLastRun(unixSeconds float64) {
	if regOK.Load() {
		lastRunTimestamp.Set(unixSeconds)
	}
}

func SetLastSuccess(unixSeconds float64) {
	if regOK.Load() {
		lastSuccessTimestamp.Set(unixSeconds)
	}
}

func ObserveUpdateDuration(seconds float64) {
	if regOK.Load() {
		updateDuration.Observe(seconds)
	}
}

// WriteTextfile writes the current collector values to path in the
// text exposition format, atomically, for the node-exporter textfile
// collector.
func WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return prometheus.WriteToTextfile(path, reg)
}
