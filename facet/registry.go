package facet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/informationgrid/ingrid-search-utils/internal/cache"
	"github.com/informationgrid/ingrid-search-utils/internal/conv"
	"github.com/informationgrid/ingrid-search-utils/internal/resource"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/spill"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheCapacity is the number of classes kept in memory.
const DefaultCacheCapacity = 500

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Capacity bounds the classes held in memory.
	Capacity int
	// Spill receives classes evicted for capacity and restores them on a
	// later miss. Without it evicted classes are produced again.
	Spill *spill.Store
	// Resources limits the bitmap memory held by cached classes.
	Resources *resource.Controller
	// SpillTimeout bounds writing one evicted class to the spill tier.
	SpillTimeout time.Duration
	Logger       *slog.Logger
	Metrics      MetricsCollector
}

// DefaultRegistryOptions are the options used by NewRegistry.
var DefaultRegistryOptions = RegistryOptions{
	Capacity:     DefaultCacheCapacity,
	SpillTimeout: 30 * time.Second,
}

// RegistryStats is a snapshot of registry activity since creation.
type RegistryStats struct {
	Hits        int64
	Misses      int64
	Productions int64
	Discoveries int64
	Spills      int64
	Restores    int64
	Cached      int
	Generation  uint64
}

// Registry caches facet classes by name and remembers which classes were
// discovered for each facet.
//
// It is safe for concurrent use. Concurrent misses for the same name share a
// single production. Classes produced before a Clear are never stored after it.
type Registry struct {
	producer ClassProducer
	opts     RegistryOptions

	classes *cache.ShardedLRU[cachedClass]
	// discovered maps facet name to the ordered names of its classes.
	discovered sync.Map

	group singleflight.Group
	// mu is held shared while storing and exclusively by Clear, so a store
	// checked against the old generation cannot land in a cleared cache.
	mu         sync.RWMutex
	generation atomic.Uint64

	hits        atomic.Int64
	misses      atomic.Int64
	productions atomic.Int64
	discoveries atomic.Int64
	spills      atomic.Int64
	restores    atomic.Int64
}

// NewRegistry creates a registry producing missing classes with p.
func NewRegistry(p ClassProducer, optFns ...func(o *RegistryOptions)) *Registry {
	opts := DefaultRegistryOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCacheCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}

	r := &Registry{producer: p, opts: opts}
	r.classes = cache.NewShardedLRU(opts.Capacity, cache.Options[cachedClass]{
		OnEvict:    r.evicted,
		Size:       classSize,
		Controller: opts.Resources,
	})
	return r
}

// cachedClass is a class with the generation it was produced in.
type cachedClass struct {
	gen   uint64
	class *model.FacetClass
}

func classSize(c cachedClass) int64 {
	var n uint64
	for _, b := range c.class.Bitsets() {
		if b != nil {
			n += b.SizeInBytes()
		}
	}
	return conv.SaturateInt64(n)
}

// FacetClasses returns the classes of def. Explicit classes are looked up by
// name and produced on a miss. Without explicit classes the facet's
// discovered class names are used, discovering them on the first request.
//
// Classes that could not be produced are left out and reported in the
// returned error.
func (r *Registry) FacetClasses(ctx context.Context, def *model.FacetDefinition) ([]*model.FacetClass, error) {
	if def.HasClasses() {
		out := make([]*model.FacetClass, 0, len(def.Classes))
		var errs []error
		for _, cd := range def.Classes {
			fc, err := r.class(ctx, cd)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, fc)
		}
		return out, errors.Join(errs...)
	}

	if names, ok := r.discovered.Load(def.Name); ok {
		if out, ok := r.lookupAll(ctx, names.([]string)); ok {
			return out, nil
		}
		r.opts.Logger.DebugContext(ctx, "discovered classes no longer cached", "facet", def.Name)
	}
	return r.discover(ctx, def)
}

// lookupAll fetches every name from memory or the spill tier. It fails if
// any class is gone.
func (r *Registry) lookupAll(ctx context.Context, names []string) ([]*model.FacetClass, bool) {
	out := make([]*model.FacetClass, 0, len(names))
	for _, name := range names {
		fc, ok := r.lookup(ctx, name)
		if !ok {
			return nil, false
		}
		out = append(out, fc)
	}
	return out, true
}

func (r *Registry) lookup(ctx context.Context, name string) (*model.FacetClass, bool) {
	if c, ok := r.classes.Get(name); ok && c.gen == r.generation.Load() {
		r.hits.Add(1)
		r.opts.Metrics.RecordCacheLookup(true)
		return c.class, true
	}
	if fc, ok := r.restore(ctx, name); ok {
		r.hits.Add(1)
		r.opts.Metrics.RecordCacheLookup(true)
		return fc, true
	}
	r.misses.Add(1)
	r.opts.Metrics.RecordCacheLookup(false)
	return nil, false
}

func (r *Registry) restore(ctx context.Context, name string) (*model.FacetClass, bool) {
	if r.opts.Spill == nil {
		return nil, false
	}
	gen := r.generation.Load()
	fc, err := r.opts.Spill.Load(ctx, gen, name)
	if err != nil {
		if !errors.Is(err, spill.ErrNotFound) {
			r.opts.Metrics.RecordSpill(true, err)
			r.opts.Logger.WarnContext(ctx, "restoring spilled class failed", "class", name, "error", err)
		}
		return nil, false
	}
	r.restores.Add(1)
	r.opts.Metrics.RecordSpill(true, nil)
	r.store(gen, fc)
	return fc, true
}

func (r *Registry) class(ctx context.Context, def *model.FacetClassDefinition) (*model.FacetClass, error) {
	if fc, ok := r.lookup(ctx, def.Name); ok {
		return fc, nil
	}

	gen := r.generation.Load()
	v, err, _ := r.group.Do("class\x00"+def.Name, func() (any, error) {
		fc, err := r.producer.ProduceClass(ctx, def)
		if err != nil {
			return nil, err
		}
		r.productions.Add(1)
		r.store(gen, fc)
		return fc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.FacetClass), nil
}

func (r *Registry) discover(ctx context.Context, def *model.FacetDefinition) ([]*model.FacetClass, error) {
	gen := r.generation.Load()

	type result struct {
		classes []*model.FacetClass
		err     error
	}
	v, _, _ := r.group.Do("facet\x00"+def.Name, func() (any, error) {
		classes, err := r.producer.ProduceClasses(ctx, def)
		r.discoveries.Add(1)

		names := make([]string, len(classes))
		for i, fc := range classes {
			names[i] = fc.Name()
			r.store(gen, fc)
		}
		// a partial discovery is not remembered so it is retried
		if err == nil {
			r.mu.RLock()
			if r.generation.Load() == gen {
				r.discovered.Store(def.Name, names)
			}
			r.mu.RUnlock()
		}
		return result{classes: classes, err: err}, nil
	})
	res := v.(result)
	return res.classes, res.err
}

// store caches fc unless the registry was cleared since gen.
func (r *Registry) store(gen uint64, fc *model.FacetClass) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.generation.Load() != gen {
		return
	}
	r.classes.Set(fc.Name(), cachedClass{gen: gen, class: fc})
}

// evicted spills c under the generation it was produced in. It may run
// while mu is held shared and must not take it.
func (r *Registry) evicted(name string, c cachedClass) {
	if r.opts.Spill == nil || c.gen != r.generation.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.SpillTimeout)
	defer cancel()

	err := r.opts.Spill.Save(ctx, c.gen, c.class)
	r.opts.Metrics.RecordSpill(false, err)
	if err != nil {
		r.opts.Logger.Warn("spilling evicted class failed", "class", name, "error", err)
		return
	}
	if c.gen != r.generation.Load() {
		// cleared while writing; the blob would outlive the purge
		_ = r.opts.Spill.Remove(ctx, c.gen, name)
		return
	}
	r.spills.Add(1)
}

// Clear forgets every cached, spilled and discovered class. Call it whenever
// the index changes.
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.generation.Add(1)
	r.classes.Clear()
	r.discovered.Clear()
	r.mu.Unlock()

	if r.opts.Spill != nil {
		if _, err := r.opts.Spill.Purge(ctx); err != nil {
			return err
		}
	}
	r.opts.Logger.InfoContext(ctx, "facet class registry cleared", "generation", r.generation.Load())
	return nil
}

// Discovered returns the class names remembered for facet.
func (r *Registry) Discovered(facet string) ([]string, bool) {
	v, ok := r.discovered.Load(facet)
	if !ok {
		return nil, false
	}
	return v.([]string), true
}

// Stats returns a snapshot of registry activity.
func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		Hits:        r.hits.Load(),
		Misses:      r.misses.Load(),
		Productions: r.productions.Load(),
		Discoveries: r.discoveries.Load(),
		Spills:      r.spills.Load(),
		Restores:    r.restores.Load(),
		Cached:      r.classes.Len(),
		Generation:  r.generation.Load(),
	}
}
