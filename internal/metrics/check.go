// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for portcheck runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run status label values.
const (
	StatusClean    = "clean"
	StatusConflict = "conflict"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

var (
	// RunsTotal counts check runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portcheck_runs_total",
		Help: "Total number of check runs, by status (clean, conflict, invalid, error).",
	}, []string{"status"})

	// RunDuration observes how long a full collect-and-check pass takes.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portcheck_run_duration_seconds",
		Help:    "Duration of check runs including fragment collection.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	// Declarations tracks the number of port declarations seen by the last run.
	Declarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portcheck_declarations",
		Help: "Number of port declarations collected by the last run.",
	})

	// ConflictingPorts tracks the number of distinct ports declared more than once.
	ConflictingPorts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portcheck_conflicting_ports",
		Help: "Number of distinct ports declared by more than one declaration in the last run.",
	})

	// LastRunTimestamp records when the last run finished.
	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portcheck_last_run_timestamp_seconds",
		Help: "Unix time of the last completed check run.",
	})
)

// RecordRun updates every run metric in one call. Declaration and conflict gauges are only
// touched when the run got far enough to count them.
func RecordRun(status string, duration time.Duration, declarations, conflicts int, finished time.Time) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
	if status == StatusClean || status == StatusConflict {
		Declarations.Set(float64(declarations))
		ConflictingPorts.Set(float64(conflicts))
	}
	LastRunTimestamp.Set(float64(finished.Unix()))
}
