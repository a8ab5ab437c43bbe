package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API client metrics
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charchat_api_requests_total",
		Help: "Total number of backend API requests",
	}, []string{"operation", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charchat_api_request_duration_seconds",
		Help:    "Duration of backend API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Reply metrics
	replyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charchat_reply_duration_seconds",
		Help:    "Duration of character reply generation",
		Buckets: prometheus.DefBuckets,
	}, []string{"responder", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_cache_hits_total",
		Help: "Total number of character cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_cache_misses_total",
		Help: "Total number of character cache misses",
	})

	// Rate limit metrics
	rateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_rate_limit_waits_total",
		Help: "Total number of requests delayed by the client rate limiter",
	})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charchat_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charchat_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Messages sent by the local user
	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charchat_messages_sent_total",
		Help: "Total number of chat messages sent",
	}, []string{"status"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordAPIRequest records one backend request
func (m *Metrics) RecordAPIRequest(operation, status string, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(operation, status).Inc()
	apiRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReply records a character reply generation
func (m *Metrics) RecordReply(responder, status string, duration time.Duration) {
	replyRequestDuration.WithLabelValues(responder, status).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitWait records a request that had to wait for the limiter
func (m *Metrics) RecordRateLimitWait() {
	rateLimitWaits.Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMessageSent records a sent chat message
func (m *Metrics) RecordMessageSent(status string) {
	messagesSent.WithLabelValues(status).Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
