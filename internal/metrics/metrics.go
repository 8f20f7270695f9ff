// Package metrics provides Prometheus metrics for storage drivers and transfers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Driver operation metrics
	driverOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opfs_driver_operation_duration_seconds",
			Help:    "Storage driver operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	driverOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opfs_driver_operations_total",
			Help: "Total storage driver operations",
		},
		[]string{"driver", "operation", "status"},
	)

	// Content transfer metrics
	bytesDownloaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opfs_bytes_downloaded_total",
			Help: "Total bytes downloaded through storage drivers",
		},
		[]string{"driver"},
	)

	bytesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opfs_bytes_uploaded_total",
			Help: "Total bytes uploaded through storage drivers",
		},
		[]string{"driver"},
	)

	// Transfer orchestrator metrics
	transferEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opfs_transfer_events_total",
			Help: "Transfer lifecycle events published",
		},
		[]string{"event"},
	)

	// Handle model metrics
	handleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opfs_handle_gone_total",
			Help: "Handle operations that failed with a gone condition",
		},
		[]string{"operation"},
	)

	// Provider session metrics
	mountSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opfs_mount_switches_total",
			Help: "Active mount changes per provider",
		},
		[]string{"provider"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDriverOperation records a storage driver operation.
func RecordDriverOperation(driver, operation string, duration time.Duration, success bool) {
	driverOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	driverOperationsTotal.WithLabelValues(driver, operation, status).Inc()
}

// RecordDownload records bytes fetched by a driver.
func RecordDownload(driver string, bytes int64) {
	bytesDownloaded.WithLabelValues(driver).Add(float64(bytes))
}

// RecordUpload records bytes stored by a driver.
func RecordUpload(driver string, bytes int64) {
	bytesUploaded.WithLabelValues(driver).Add(float64(bytes))
}

// RecordTransferEvent records a transfer lifecycle event ("start", "complete", "error").
func RecordTransferEvent(event string) {
	transferEventsTotal.WithLabelValues(event).Inc()
}

// RecordHandleGone records a handle operation collapsed into a gone condition.
func RecordHandleGone(operation string) {
	handleErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordMountSwitch records a provider changing its active mount.
func RecordMountSwitch(provider string) {
	mountSwitchesTotal.WithLabelValues(provider).Inc()
}
