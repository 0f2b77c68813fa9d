package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "milestonectl"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	codecOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Milestone codec operations by outcome.",
		},
		[]string{"op", "result"},
	)
	codecPayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "payload_bytes",
			Help:      "Size of encoded milestone payloads.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"op"},
	)
	trackerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "calls_total",
			Help:      "Tracker state-transition calls by outcome.",
		},
		[]string{"method", "result"},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proposal_cache",
			Name:      "lookups_total",
			Help:      "Proposal cache lookups.",
		},
		[]string{"backend", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, codecOperations, codecPayloadBytes, trackerCalls, cacheLookups)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCodec counts one encode or decode. size is the encoded payload
// length and is only observed on success.
func RecordCodec(op string, size int, err error) {
	RegisterMetrics()
	codecOperations.WithLabelValues(op, resultLabel(err)).Inc()
	if err == nil {
		codecPayloadBytes.WithLabelValues(op).Observe(float64(size))
	}
}

func RecordTrackerCall(method string, err error) {
	RegisterMetrics()
	trackerCalls.WithLabelValues(method, resultLabel(err)).Inc()
}

func RecordCacheLookup(backend string, hit bool) {
	RegisterMetrics()
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(backend, result).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
