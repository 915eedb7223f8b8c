// Package metrics exposes Prometheus metrics for the wake authority.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the wolproxy Prometheus registry and collectors.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	wakeRequests        *prometheus.CounterVec
}

// New creates a fresh registry with HTTP and wake metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wolproxy",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by the wake authority",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wolproxy",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the wake authority",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	wakeRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wolproxy",
		Name:      "wake_requests_total",
		Help:      "Count of wake submissions by outcome status",
	}, []string{"status"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		wakeRequests,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		wakeRequests:        wakeRequests,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveWakeRequest records the outcome of one wake submission.
func (m *Metrics) ObserveWakeRequest(status string) {
	if m == nil {
		return
	}
	m.wakeRequests.With(prometheus.Labels{"status": status}).Inc()
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
