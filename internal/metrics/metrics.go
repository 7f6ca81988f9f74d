// Package metrics provides Prometheus metrics for the media client and the
// development media API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Client side
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s4admin_api_requests_total",
			Help: "Total admin media API calls made by the client",
		},
		[]string{"operation", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s4admin_api_request_duration_seconds",
			Help:    "Admin media API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	uploadFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "s4admin_upload_fallbacks_total",
			Help: "Uploads retried against the root upload endpoint",
		},
	)

	staleLoadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "s4admin_stale_loads_discarded_total",
			Help: "Directory loads discarded because the path changed while they ran",
		},
	)

	// Development server side
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s4admin_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s4admin_storage_operation_duration_seconds",
			Help:    "Object storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	uploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "s4admin_uploaded_bytes_total",
			Help: "Total bytes accepted by the upload endpoints",
		},
	)
)

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordAPIRequest records one client call to the admin media API.
func RecordAPIRequest(operation string, duration time.Duration, ok bool) {
	apiRequestsTotal.WithLabelValues(operation, statusLabel(ok)).Inc()
	apiRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordUploadFallback counts a retry against the root upload endpoint.
func RecordUploadFallback() {
	uploadFallbacksTotal.Inc()
}

// RecordStaleLoad counts a directory load whose result was dropped.
func RecordStaleLoad() {
	staleLoadsTotal.Inc()
}

// RecordStorageOperation records an object storage call.
func RecordStorageOperation(operation string, duration time.Duration, ok bool) {
	storageOperationDuration.WithLabelValues(operation, statusLabel(ok)).Observe(duration.Seconds())
}

// RecordUploadedBytes adds n to the uploaded byte counter.
func RecordUploadedBytes(n int64) {
	uploadedBytesTotal.Add(float64(n))
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
