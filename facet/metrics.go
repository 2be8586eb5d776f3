package facet

import "time"

// MetricsCollector receives facet counting events.
//
// Implementations must be safe for concurrent use. See package metric for a
// Prometheus implementation.
type MetricsCollector interface {
	// RecordCount is called after a request's counter chain ran.
	// classes is the number of counts produced.
	RecordCount(classes int, duration time.Duration, err error)

	// RecordProduction is called after a class or a discovery was produced
	// from the index. discovered is true for ProduceClasses.
	RecordProduction(discovered bool, classes int, duration time.Duration, err error)

	// RecordCacheLookup is called for every registry lookup of a class.
	RecordCacheLookup(hit bool)

	// RecordSpill is called after a class was written to or restored from
	// the spill tier.
	RecordSpill(restore bool, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordCount(int, time.Duration, error)            {}
func (noopMetrics) RecordProduction(bool, int, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(bool)                           {}
func (noopMetrics) RecordSpill(bool, error)                          {}
