// Package metrics records comparison runs as Prometheus metrics. A CLI run
// is short-lived, so the registry is exported to a textfile for the node
// exporter instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements compare.Recorder and visual.Recorder on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	comparisons *prometheus.CounterVec
	differences prometheus.Counter
	duration    prometheus.Histogram
	visualPages *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfcmp_comparisons_total",
			Help: "Structural comparisons by outcome",
		}, []string{"outcome"}),
		differences: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdfcmp_differences_total",
			Help: "Differences recorded across comparisons",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdfcmp_compare_duration_seconds",
			Help:    "Time to compare two documents",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60},
		}),
		visualPages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfcmp_visual_pages_total",
			Help: "Pages compared by the visual fallback by result",
		}, []string{"result"}),
	}
}

// ObserveComparison records one structural comparison.
func (m *Metrics) ObserveComparison(outcome string, differences int, elapsed time.Duration) {
	m.comparisons.WithLabelValues(outcome).Inc()
	m.differences.Add(float64(differences))
	m.duration.Observe(elapsed.Seconds())
}

// ObserveVisualPage records one page of the visual fallback.
func (m *Metrics) ObserveVisualPage(result string) {
	m.visualPages.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes every metric to path atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
