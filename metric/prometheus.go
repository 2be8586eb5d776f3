// Package metric exports facet counting metrics to Prometheus.
package metric

import (
	"time"

	"github.com/informationgrid/ingrid-search-utils/facet"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ingrid_facets"

// Collector implements facet.MetricsCollector with Prometheus metrics.
type Collector struct {
	CountLatency      *prometheus.HistogramVec
	ClassesCounted    prometheus.Counter
	ProductionLatency *prometheus.HistogramVec
	ClassesProduced   *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	SpillOps          *prometheus.CounterVec
}

var _ facet.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		CountLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "count_duration_seconds",
			Help:      "Latency of facet counting per request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		ClassesCounted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classes_counted_total",
			Help:      "Total facet class counts attached to results",
		}),
		ProductionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "production_duration_seconds",
			Help:      "Latency of building facet classes from the index",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind", "status"}),
		ClassesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classes_produced_total",
			Help:      "Total facet classes built from the index",
		}, []string{"kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Facet class cache lookups",
		}, []string{"result"}),
		SpillOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spill_operations_total",
			Help:      "Facet classes written to or restored from the spill tier",
		}, []string{"op", "status"}),
	}

	reg.MustRegister(
		c.CountLatency,
		c.ClassesCounted,
		c.ProductionLatency,
		c.ClassesProduced,
		c.CacheLookups,
		c.SpillOps,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCount implements facet.MetricsCollector.
func (c *Collector) RecordCount(classes int, d time.Duration, err error) {
	c.CountLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	c.ClassesCounted.Add(float64(classes))
}

// RecordProduction implements facet.MetricsCollector.
func (c *Collector) RecordProduction(discovered bool, classes int, d time.Duration, err error) {
	kind := "class"
	if discovered {
		kind = "discovery"
	}
	c.ProductionLatency.WithLabelValues(kind, status(err)).Observe(d.Seconds())
	c.ClassesProduced.WithLabelValues(kind).Add(float64(classes))
}

// RecordCacheLookup implements facet.MetricsCollector.
func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		c.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	c.CacheLookups.WithLabelValues("miss").Inc()
}

// RecordSpill implements facet.MetricsCollector.
func (c *Collector) RecordSpill(restore bool, err error) {
	op := "save"
	if restore {
		op = "restore"
	}
	c.SpillOps.WithLabelValues(op, status(err)).Inc()
}

// RegisterRegistry exports the size and generation of r as gauges.
func RegisterRegistry(reg prometheus.Registerer, r *facet.Registry) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_classes",
			Help:      "Facet classes held in memory",
		}, func() float64 { return float64(r.Stats().Cached) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_generation",
			Help:      "Number of times the class registry was cleared",
		}, func() float64 { return float64(r.Stats().Generation) }),
	)
}
