package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	inboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_messages_total",
			Help: "Total inbound messages handled, by outcome",
		},
		[]string{"outcome"},
	)

	extractionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_failures_total",
			Help: "Field extraction collaborator failures",
		},
	)

	photosAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photos_accepted_total",
			Help: "Photos accepted into drafts",
		},
	)

	photosRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photos_rejected_total",
			Help: "Photos rejected, by reason",
		},
		[]string{"reason"},
	)

	listingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_submitted_total",
			Help: "Catalog submissions, by result",
		},
		[]string{"status"},
	)

	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Email verification attempts, by result",
		},
		[]string{"result"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordInboundMessage(outcome string) {
	inboundMessages.WithLabelValues(outcome).Inc()
}

func RecordExtractionFailure() {
	extractionFailures.Inc()
}

func RecordPhotoAccepted() {
	photosAccepted.Inc()
}

func RecordPhotoRejected(reason string) {
	photosRejected.WithLabelValues(reason).Inc()
}

func RecordListingSubmitted(status string) {
	listingsSubmitted.WithLabelValues(status).Inc()
}

func RecordAuthAttempt(result string) {
	authAttempts.WithLabelValues(result).Inc()
}
