// Package metrics provides Prometheus metrics for rgit service operations.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the rgit collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	CommitsTotal       prometheus.Counter
	CommitConflicts    prometheus.Counter
	SnapshotsStored    prometheus.Counter
	SnapshotsDeduped   prometheus.Counter
	SnapshotBytes      prometheus.Counter
	DiffFieldsReported *prometheus.CounterVec
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rgit_operations_total",
				Help: "Total number of service operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rgit_operation_duration_seconds",
				Help:    "Duration of service operations in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		CommitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "rgit_commits_total",
			Help: "Total number of commits created",
		}),
		CommitConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "rgit_commit_conflicts_total",
			Help: "Commits rejected because the branch tip moved",
		}),
		SnapshotsStored: f.NewCounter(prometheus.CounterOpts{
			Name: "rgit_snapshots_stored_total",
			Help: "Snapshot blobs written to the vault",
		}),
		SnapshotsDeduped: f.NewCounter(prometheus.CounterOpts{
			Name: "rgit_snapshots_deduplicated_total",
			Help: "Snapshots whose structural hash was already stored",
		}),
		SnapshotBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "rgit_snapshot_bytes_total",
			Help: "Bytes of snapshot blobs written to the vault",
		}),
		DiffFieldsReported: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rgit_diff_fields_total",
				Help: "Changed fields reported by diffs, by status",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordOperation records one service operation and its outcome.
func (m *Metrics) RecordOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordCommit() {
	if m == nil {
		return
	}
	m.CommitsTotal.Inc()
}

func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.CommitConflicts.Inc()
}

// RecordSnapshot records a snapshot write; stored is false when the blob was
// already present.
func (m *Metrics) RecordSnapshot(stored bool, size int64) {
	if m == nil {
		return
	}
	if !stored {
		m.SnapshotsDeduped.Inc()
		return
	}
	m.SnapshotsStored.Inc()
	m.SnapshotBytes.Add(float64(size))
}

func (m *Metrics) RecordDiffField(status string) {
	if m == nil {
		return
	}
	m.DiffFieldsReported.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format, for pickup
// by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
