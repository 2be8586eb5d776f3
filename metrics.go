package searchutils

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/informationgrid/ingrid-search-utils/facet"
)

// MetricsCollector receives facet counting metrics. Implement it to
// integrate with monitoring systems; package metric offers a Prometheus
// implementation.
type MetricsCollector = facet.MetricsCollector

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCount(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordProduction(bool, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCacheLookup(bool)                           {}
func (NoopMetricsCollector) RecordSpill(bool, error)                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CountRequests    atomic.Int64
	CountErrors      atomic.Int64
	CountTotalNanos  atomic.Int64
	ClassesCounted   atomic.Int64
	ClassProductions atomic.Int64
	Discoveries      atomic.Int64
	ProductionErrors atomic.Int64
	ClassesProduced  atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	Spills           atomic.Int64
	Restores         atomic.Int64
	SpillErrors      atomic.Int64
}

// RecordCount implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCount(classes int, duration time.Duration, err error) {
	b.CountRequests.Add(1)
	b.CountTotalNanos.Add(duration.Nanoseconds())
	b.ClassesCounted.Add(int64(classes))
	if err != nil {
		b.CountErrors.Add(1)
	}
}

// RecordProduction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProduction(discovered bool, classes int, _ time.Duration, err error) {
	if discovered {
		b.Discoveries.Add(1)
	} else {
		b.ClassProductions.Add(1)
	}
	b.ClassesProduced.Add(int64(classes))
	if err != nil {
		b.ProductionErrors.Add(1)
	}
}

// RecordCacheLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordSpill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpill(restore bool, err error) {
	switch {
	case err != nil:
		b.SpillErrors.Add(1)
	case restore:
		b.Restores.Add(1)
	default:
		b.Spills.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CountRequests:    b.CountRequests.Load(),
		CountErrors:      b.CountErrors.Load(),
		CountAvgNanos:    b.getAvgCountNanos(),
		ClassesCounted:   b.ClassesCounted.Load(),
		ClassProductions: b.ClassProductions.Load(),
		Discoveries:      b.Discoveries.Load(),
		ProductionErrors: b.ProductionErrors.Load(),
		ClassesProduced:  b.ClassesProduced.Load(),
		CacheHits:        b.CacheHits.Load(),
		CacheMisses:      b.CacheMisses.Load(),
		Spills:           b.Spills.Load(),
		Restores:         b.Restores.Load(),
		SpillErrors:      b.SpillErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgCountNanos() int64 {
	count := b.CountRequests.Load()
	if count == 0 {
		return 0
	}
	return b.CountTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CountRequests    int64
	CountErrors      int64
	CountAvgNanos    int64
	ClassesCounted   int64
	ClassProductions int64
	Discoveries      int64
	ProductionErrors int64
	ClassesProduced  int64
	CacheHits        int64
	CacheMisses      int64
	Spills           int64
	Restores         int64
	SpillErrors      int64
}

// loggingMetrics forwards to a collector and logs production and spill events.
type loggingMetrics struct {
	next   MetricsCollector
	logger *Logger
}

func (m loggingMetrics) RecordCount(classes int, d time.Duration, err error) {
	m.next.RecordCount(classes, d, err)
}

func (m loggingMetrics) RecordProduction(discovered bool, classes int, d time.Duration, err error) {
	m.next.RecordProduction(discovered, classes, d, err)
	if discovered {
		m.logger.LogDiscovery(context.Background(), classes, d, err)
		return
	}
	m.logger.LogClassProduced(context.Background(), classes, d, err)
}

func (m loggingMetrics) RecordCacheLookup(hit bool) { m.next.RecordCacheLookup(hit) }

func (m loggingMetrics) RecordSpill(restore bool, err error) {
	m.next.RecordSpill(restore, err)
	m.logger.LogSpill(context.Background(), restore, err)
}
