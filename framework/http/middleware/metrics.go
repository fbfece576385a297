package middleware

import (
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/h3ravel/framework/http"
)

// Metrics records request counts, latencies and in-flight requests on its own
// registry. Paths are labelled by route pattern so ids do not explode
// cardinality.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewMetrics registers the http collectors under namespace. A nil registry
// gets a fresh one.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests being served.",
		}),
	}
	registry.MustRegister(m.requests, m.duration, m.inflight)
	return m
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() nethttp.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Handle(ctx *http.Context, next http.Next) (any, error) {
	m.inflight.Inc()
	defer m.inflight.Dec()

	start := time.Now()
	result, err := next(ctx)

	status := ctx.Response.StatusCode()
	switch {
	case err != nil:
		status = http.StatusOf(err)
	case result == nil && !ctx.Response.Written():
		status = nethttp.StatusNoContent
	}

	path := routePattern(ctx)
	method := ctx.Request.Method()
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	return result, err
}

func routePattern(ctx *http.Context) string {
	if rc := chi.RouteContext(ctx.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
