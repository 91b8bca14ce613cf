package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes for AccountEvents.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AccountEvents counts account operations (signup, login, password_reset, photo_upload) by outcome.
	AccountEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_events_total",
			Help: "Total number of account operations by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	// PhotosSwept counts orphaned profile photos removed by the sweeper.
	PhotosSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_photos_swept_total",
			Help: "Total number of orphaned profile photos removed",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, AccountEvents, PhotosSwept)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// Used for requests that matched no route; routed requests are recorded by pattern.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. path should already be a route pattern or normalized.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordAccountEvent increments the account event counter.
func RecordAccountEvent(event, outcome string) {
	AccountEvents.WithLabelValues(event, outcome).Inc()
}

// AddPhotosSwept adds n removed photos to the sweep counter.
func AddPhotosSwept(n int) {
	if n > 0 {
		PhotosSwept.Add(float64(n))
	}
}
