package searchutils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	m := &BasicMetricsCollector{}

	m.RecordCount(4, 2*time.Millisecond, nil)
	m.RecordCount(1, 4*time.Millisecond, errors.New("boom"))
	m.RecordProduction(true, 3, time.Millisecond, nil)
	m.RecordProduction(false, 1, time.Millisecond, errors.New("boom"))
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordSpill(false, nil)
	m.RecordSpill(true, nil)
	m.RecordSpill(true, errors.New("gone"))

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats.CountRequests)
	assert.Equal(t, int64(1), stats.CountErrors)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), stats.CountAvgNanos)
	assert.Equal(t, int64(5), stats.ClassesCounted)
	assert.Equal(t, int64(1), stats.Discoveries)
	assert.Equal(t, int64(1), stats.ClassProductions)
	assert.Equal(t, int64(1), stats.ProductionErrors)
	assert.Equal(t, int64(4), stats.ClassesProduced)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.Spills)
	assert.Equal(t, int64(1), stats.Restores)
	assert.Equal(t, int64(1), stats.SpillErrors)
}

func TestNoopMetricsCollector(t *testing.T) {
	var m MetricsCollector = NoopMetricsCollector{}
	assert.NotPanics(t, func() {
		m.RecordCount(1, time.Second, nil)
		m.RecordProduction(true, 1, time.Second, nil)
		m.RecordCacheLookup(true)
		m.RecordSpill(true, nil)
	})
}
