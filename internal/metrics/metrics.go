// Package metrics exposes batch and item counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lastned/lastned/internal/engine/types"
)

const namespace = "lastned"

// Metrics holds the collectors for one process. Use New per test to avoid
// clashing with the default registry.
type Metrics struct {
	registry *prometheus.Registry

	itemsTotal    *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec
	batchProgress prometheus.Gauge
	batchesActive prometheus.Gauge
}

// New creates a registry with the lastned collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Finished items by outcome.",
		}, []string{"outcome"}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Wall time per item by outcome.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		}, []string{"outcome"}),
		batchProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_progress_percent",
			Help:      "Aggregate progress of the running batch.",
		}),
		batchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches_active",
			Help:      "Batches currently running.",
		}),
	}
	m.registry.MustRegister(m.itemsTotal, m.itemDuration, m.batchProgress, m.batchesActive)
	return m
}

// BatchStarted marks a batch as running.
func (m *Metrics) BatchStarted() {
	m.batchesActive.Inc()
	m.batchProgress.Set(0)
}

// BatchFinished marks a batch as no longer running.
func (m *Metrics) BatchFinished() {
	m.batchesActive.Dec()
}

// SetBatchProgress records the aggregate percentage.
func (m *Metrics) SetBatchProgress(percent float64) {
	m.batchProgress.Set(percent)
}

// ObserveItem records one finished item.
func (m *Metrics) ObserveItem(kind types.OutcomeKind, elapsed time.Duration) {
	label := kind.String()
	m.itemsTotal.WithLabelValues(label).Inc()
	m.itemDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
