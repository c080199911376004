// Package metrics records run statistics in a Prometheus registry that can
// be written to a node_exporter textfile at the end of a run.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/appcfg/internal/reconcile"
)

// Recorder implements reconcile.Recorder on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	decisionsTotal      *prometheus.CounterVec
	storeErrorsTotal    *prometheus.CounterVec
	missingSecretsTotal prometheus.Counter
	runDuration         *prometheus.HistogramVec
}

var _ reconcile.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		decisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appcfg_decisions_total",
				Help: "Total number of reconciliation decisions by action",
			},
			[]string{"action", "dry_run"},
		),
		storeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appcfg_store_errors_total",
				Help: "Total number of failed App Configuration mutations by operation",
			},
			[]string{"op"},
		),
		missingSecretsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "appcfg_missing_secrets_total",
				Help: "Total number of Key Vault references whose secret was not found",
			},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appcfg_run_duration_seconds",
				Help:    "Duration of import, export and cleanup runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"command"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Decision counts one decision.
func (r *Recorder) Decision(d reconcile.Decision) {
	r.decisionsTotal.WithLabelValues(string(d.Action), strconv.FormatBool(d.DryRun)).Inc()
}

// StoreError counts one failed mutation.
func (r *Recorder) StoreError(op string) {
	r.storeErrorsTotal.WithLabelValues(op).Inc()
}

// MissingSecret counts one reference to a missing secret.
func (r *Recorder) MissingSecret() {
	r.missingSecretsTotal.Inc()
}

// RunFinished observes the duration of a command.
func (r *Recorder) RunFinished(command string, elapsed time.Duration) {
	r.runDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry in the text exposition format. The file
// is written atomically so a concurrent scrape never sees a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
