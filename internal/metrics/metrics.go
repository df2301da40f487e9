// Package metrics exposes Prometheus collectors for the domain scanner.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	candidatesTotal      *prometheus.CounterVec
	fetchAttemptsTotal   *prometheus.CounterVec
	backoffDelaySeconds  *prometheus.HistogramVec
	activeWorkers        prometheus.Gauge
	candidatesSkipped    prometheus.Counter
	sinkFailuresTotal    *prometheus.CounterVec
	rateLimitWaitSeconds prometheus.Histogram
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times; every Observe helper calls it.
func Init() {
	once.Do(func() {
		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domainscan_candidates_total",
				Help: "Total number of candidates processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domainscan_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		backoffDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domainscan_backoff_delay_seconds",
				Help:    "Histogram of retry backoff delays, labeled by failure kind.",
				Buckets: []float64{0.5, 1, 2, 3, 5, 8},
			},
			[]string{"kind"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "domainscan_active_workers",
				Help: "Number of workers currently running.",
			},
		)

		candidatesSkipped = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "domainscan_candidates_skipped_total",
				Help: "Total number of candidates excluded by filter rules.",
			},
		)

		sinkFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domainscan_sink_failures_total",
				Help: "Total number of result sink failures, labeled by sink.",
			},
			[]string{"sink"},
		)

		rateLimitWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "domainscan_rate_limit_wait_seconds",
				Help:    "Histogram of waits imposed by the global rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domainscan_http_requests_total",
				Help: "Total number of requests served by the progress server, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domainscan_http_request_duration_seconds",
				Help:    "Histogram of progress server latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveCandidate increments the candidate counter for outcome.
func ObserveCandidate(outcome string) {
	Init()
	candidatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAttempt increments the fetch attempt counter for result.
func ObserveAttempt(result string) {
	Init()
	fetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveBackoff records a retry delay.
func ObserveBackoff(blocked bool, delay time.Duration) {
	Init()
	kind := "generic"
	if blocked {
		kind = "blocked"
	}
	backoffDelaySeconds.WithLabelValues(kind).Observe(delay.Seconds())
}

// ObserveSkipped adds n filtered candidates.
func ObserveSkipped(n int) {
	Init()
	if n > 0 {
		candidatesSkipped.Add(float64(n))
	}
}

// ObserveSinkFailure increments the failure counter for sink.
func ObserveSinkFailure(sink string) {
	Init()
	sinkFailuresTotal.WithLabelValues(sink).Inc()
}

// ObserveRateLimitWait records the duration of a rate limit wait.
func ObserveRateLimitWait(d time.Duration) {
	Init()
	rateLimitWaitSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records one request served by the progress server.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}
