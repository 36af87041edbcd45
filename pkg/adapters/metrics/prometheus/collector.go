package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records request-level metrics for the challenge service
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	poolRejections  prometheus.Counter
	slowRequests    prometheus.Counter
}

// NewCollector creates a new Prometheus metrics collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "challenge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 1, 2, 5, 30, 60, 300},
			},
			[]string{"route"},
		),
		poolRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "challenge_pool_rejections_total",
				Help: "Total number of requests rejected because the worker pool was saturated",
			},
		),
		slowRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "challenge_slow_requests_total",
				Help: "Total number of requests that took the simulated slow path",
			},
		),
	}
}

// ObserveRequest records a finished HTTP request
func (c *Collector) ObserveRequest(route, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(route, status).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRejection counts a request rejected by the worker pool
func (c *Collector) RecordRejection() {
	c.poolRejections.Inc()
}

// RecordSlowRequest counts a request that entered the slow path
func (c *Collector) RecordSlowRequest() {
	c.slowRequests.Inc()
}
