package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records per-entity request counts and latencies. A nil *Metrics
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celerix",
			Subsystem: "records",
			Name:      "requests_total",
			Help:      "Record operations by entity, operation and status code.",
		}, []string{"entity", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "celerix",
			Subsystem: "records",
			Name:      "request_duration_seconds",
			Help:      "Record operation latency by entity and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Observe records one finished operation.
func (m *Metrics) Observe(entity, op string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(entity, op, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(entity, op).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
