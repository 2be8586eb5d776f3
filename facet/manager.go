package facet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	// StateUninitialized is the state before the first Initialize.
	StateUninitialized State = iota
	// StateInitialized follows Initialize until the next request.
	StateInitialized
	// StateServing is entered by the first request after Initialize.
	StateServing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateServing:
		return "serving"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Processors rewrite the facet definitions of every request in order.
	Processors []DefinitionProcessor
	// WarmupQuery, if set, is counted once by Initialize against an empty
	// result to fill the caches with the facets it requests.
	WarmupQuery *query.Query
	Logger      *slog.Logger
	Metrics     MetricsCollector
}

// Manager attaches facet counts to search results.
type Manager struct {
	results  ResultSource
	counters []Counter
	opts     ManagerOptions

	initMu sync.Mutex
	state  atomic.Int32
}

// NewManager creates a Manager running counters in order. It fails with
// ErrConfiguration when results is nil or no counter is given.
func NewManager(results ResultSource, counters []Counter, optFns ...func(o *ManagerOptions)) (*Manager, error) {
	if results == nil {
		return nil, fmt.Errorf("%w: manager needs a result source", ErrConfiguration)
	}
	if len(counters) == 0 {
		return nil, fmt.Errorf("%w: manager needs at least one counter", ErrConfiguration)
	}
	for i, c := range counters {
		if c == nil {
			return nil, fmt.Errorf("%w: counter %d is nil", ErrConfiguration, i)
		}
	}

	var opts ManagerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	return &Manager{results: results, counters: counters, opts: opts}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Initialize resets every counter and the result source, then runs the
// warm-up query if one is configured. Call it again whenever the index
// changes. Warm-up failures are logged, not returned.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.opts.Logger.InfoContext(ctx, "initializing facet manager", "counters", len(m.counters))

	var errs []error
	for _, c := range m.counters {
		if err := c.Initialize(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r, ok := m.results.(resetter); ok {
		r.Reset()
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.state.Store(int32(StateInitialized))

	if w := m.opts.WarmupQuery; w != nil {
		start := time.Now()
		counts, err := m.count(ctx, w, bitmap.Set{bitmap.New()})
		if err != nil {
			m.opts.Logger.WarnContext(ctx, "facet warm-up failed", "query", w.Raw, "error", err)
		} else {
			m.opts.Logger.InfoContext(ctx, "facet warm-up done",
				"query", w.Raw,
				"classes", len(counts),
				"elapsed", time.Since(start),
			)
		}
	}
	return nil
}

// AddFacets computes the facet counts requested by q and attaches them to
// hits. It does nothing when q requests no facets. Failures never abort the
// search: they are appended to hits.FacetErrors and the counts that could
// be computed are attached.
func (m *Manager) AddFacets(ctx context.Context, hits *model.Hits, q *query.Query) {
	if !q.WantsFacets() {
		return
	}

	base, err := m.results.Results(ctx, hits, q)
	if err != nil {
		hits.FacetErrors = append(hits.FacetErrors, fmt.Errorf("facet: result bitmaps: %w", err))
		hits.SetFacets(model.Counts{})
		return
	}

	counts, err := m.Counts(ctx, q, base)
	if err != nil {
		hits.FacetErrors = append(hits.FacetErrors, err)
	}
	hits.SetFacets(counts)
}

// Counts runs the counter chain for the facets requested by q against base.
func (m *Manager) Counts(ctx context.Context, q *query.Query, base bitmap.Set) (model.Counts, error) {
	m.state.CompareAndSwap(int32(StateInitialized), int32(StateServing))
	return m.count(ctx, q, base)
}

// count is Counts without the state transition; warm-up is not a request.
func (m *Manager) count(ctx context.Context, q *query.Query, base bitmap.Set) (model.Counts, error) {
	start := time.Now()
	defs := FacetDefinitions(q)
	for _, p := range m.opts.Processors {
		p.Process(defs)
	}

	acc := make(model.Counts)
	var errs []error
	for _, c := range m.counters {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.Count(ctx, acc, q, base, defs); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	m.opts.Metrics.RecordCount(len(acc), time.Since(start), err)
	if err != nil {
		m.opts.Logger.WarnContext(ctx, "facet counting incomplete", "classes", len(acc), "error", err)
	}
	return acc, err
}
