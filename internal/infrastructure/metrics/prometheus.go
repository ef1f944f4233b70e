// Package metrics exports allocation and sequence usage to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ncfledger/internal/domain/allocator"
	"ncfledger/internal/domain/monitor"
	"ncfledger/internal/domain/sequence"
)

const namespace = "ncf"

var (
	_ allocator.Recorder    = (*Collector)(nil)
	_ monitor.UsageRecorder = (*Collector)(nil)
)

// Collector owns the NCF metric vectors.
type Collector struct {
	registry *prometheus.Registry

	allocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	retries     prometheus.Counter

	used      *prometheus.GaugeVec
	available *prometheus.GaugeVec
	expiry    *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	seqLabels := []string{"owner_id", "sequence_id", "prefix", "document_type"}

	c := &Collector{
		registry: reg,
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "NCF allocation attempts by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_duration_seconds",
			Help:      "Time spent allocating one NCF.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_retries_total",
			Help:      "Reservation transactions retried after contention.",
		}),
		used: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sequence_used_ratio",
			Help:      "Share of the sequence range already issued, 0..1.",
		}, seqLabels),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sequence_available_numbers",
			Help:      "Numbers the sequence can still issue.",
		}, seqLabels),
		expiry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sequence_days_to_expiry",
			Help:      "Days until the sequence validity window closes.",
		}, seqLabels),
	}

	reg.MustRegister(c.allocations, c.latency, c.retries, c.used, c.available, c.expiry)
	return c
}

// ObserveAllocation implements allocator.Recorder.
func (c *Collector) ObserveAllocation(outcome string, d time.Duration) {
	c.allocations.WithLabelValues(outcome).Inc()
	c.latency.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncRetry implements allocator.Recorder.
func (c *Collector) IncRetry() {
	c.retries.Inc()
}

// SetSequenceUsage implements monitor.UsageRecorder.
func (c *Collector) SetSequenceUsage(s sequence.Sequence, percentageUsed float64, available int64, daysToExpiry int) {
	labels := prometheus.Labels{
		"owner_id":      s.OwnerID.String(),
		"sequence_id":   s.ID.String(),
		"prefix":        s.Prefix,
		"document_type": string(s.DocumentType),
	}
	c.used.With(labels).Set(percentageUsed / 100)
	c.available.With(labels).Set(float64(available))
	c.expiry.With(labels).Set(float64(daysToExpiry))
}

// Handler serves the registry in the exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
