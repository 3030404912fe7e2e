package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ModuleMetricsRegistry records JSON-RPC module activity for the escrow node.
type ModuleMetricsRegistry struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *ModuleMetricsRegistry
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *ModuleMetricsRegistry {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &ModuleMetricsRegistry{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tradevault",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total JSON-RPC module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tradevault",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total JSON-RPC module errors segmented by module and method.",
			}, []string{"module", "method"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tradevault",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "JSON-RPC request latency segmented by module and method.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
		}
		prometheus.MustRegister(moduleRegistry.requests, moduleRegistry.errors, moduleRegistry.latency)
	})
	return moduleRegistry
}

// Observe records a completed request.
func (m *ModuleMetricsRegistry) Observe(module, method string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(module, method).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(time.Since(start).Seconds())
}
