// Package metrics exports Prometheus metrics about the slideshow sync loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	reconcilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pishow_reconciles_total",
			Help: "Total reconciliations with the remote directory, by result",
		},
		[]string{"result"},
	)

	filesAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pishow_files_added_total",
			Help: "Total files that appeared in the remote directory",
		},
	)

	filesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pishow_files_removed_total",
			Help: "Total files that disappeared from the remote directory",
		},
	)

	configChangesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pishow_config_changes_total",
			Help: "Total times the slideshow config was reloaded",
		},
	)

	viewerRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pishow_viewer_restarts_total",
			Help: "Total times the viewer was (re)started",
		},
	)

	loopErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pishow_loop_errors_total",
			Help: "Total errors seen by the sync loop, by kind",
		},
		[]string{"kind"},
	)

	remoteOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pishow_remote_operation_duration_seconds",
			Help:    "Remote storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	remoteOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pishow_remote_operations_total",
			Help: "Total remote storage operations",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes the metrics on `addr` in the background. Failures are logged
// rather than returned since the slideshow works fine without metrics.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	go func() {
		log.WithField("address", addr).Info("Serving metrics..")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Warn("Metrics server exited")
		}
	}()
}

// RecordReconcile records the outcome of a reconciliation.
func RecordReconcile(added, removed int, err error) {
	switch {
	case err != nil:
		reconcilesTotal.WithLabelValues("error").Inc()
	case added == 0 && removed == 0:
		reconcilesTotal.WithLabelValues("unchanged").Inc()
	default:
		reconcilesTotal.WithLabelValues("changed").Inc()
		filesAddedTotal.Add(float64(added))
		filesRemovedTotal.Add(float64(removed))
	}
}

// RecordConfigChange records that the slideshow config was reloaded.
func RecordConfigChange() {
	configChangesTotal.Inc()
}

// RecordViewerRestart records that the viewer was started.
func RecordViewerRestart() {
	viewerRestartsTotal.Inc()
}

// RecordLoopError records an error handled by the sync loop.
func RecordLoopError(kind string) {
	loopErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordRemoteOperation records a call to remote storage.
func RecordRemoteOperation(backend, op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	remoteOperationDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
	remoteOperationsTotal.WithLabelValues(backend, op, status).Inc()
}
