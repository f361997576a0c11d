// Package metrics exposes settlement counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arriendos/internal/domain/settlement"
)

const metricPrefix = "arriendos_"

// Recorder implements settlement.Recorder on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	computeTotal   *prometheus.CounterVec
	computeLatency *prometheus.HistogramVec
	paidTotal      prometheus.Counter
}

var _ settlement.Recorder = (*Recorder)(nil)

// NewRecorder creates and registers the settlement metrics plus the Go runtime collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		computeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_compute_total",
				Help: "Settlement computations by outcome",
			},
			[]string{"outcome"},
		),
		computeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_compute_seconds",
				Help:    "Settlement computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		paidTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "settlement_paid_total",
			Help: "Settlements marked as paid",
		}),
	}
	r.registry.MustRegister(
		r.computeTotal,
		r.computeLatency,
		r.paidTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveCompute(outcome string, elapsed time.Duration) {
	r.computeTotal.WithLabelValues(outcome).Inc()
	r.computeLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *Recorder) ObservePaid() {
	r.paidTotal.Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
