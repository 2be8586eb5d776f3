package facet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/index"
	"github.com/informationgrid/ingrid-search-utils/internal/resource"
	"github.com/informationgrid/ingrid-search-utils/model"
	"github.com/informationgrid/ingrid-search-utils/query"
)

// DefaultMaxClasses bounds the number of classes discovered per facet.
const DefaultMaxClasses = 300

// Compiler compiles query fragments and runs them on an index.
// *query.Compiler implements it.
type Compiler interface {
	Compile(fragment string) (query.Predicate, error)
	Term(field, value string) query.Predicate
	Execute(ctx context.Context, pred query.Predicate, r index.Reader) (bitmap.Set, error)
}

var _ Compiler = (*query.Compiler)(nil)

// ClassProducer builds facet classes from the index.
type ClassProducer interface {
	ProduceClass(ctx context.Context, def *model.FacetClassDefinition) (*model.FacetClass, error)
	ProduceClasses(ctx context.Context, def *model.FacetDefinition) ([]*model.FacetClass, error)
}

// ProducerOptions configures a Producer.
type ProducerOptions struct {
	// MaxClasses is K, the number of values kept by discovery.
	MaxClasses int
	// DiscoveryTimeout bounds a single ProduceClasses call. Zero disables it.
	DiscoveryTimeout time.Duration
	// Resources limits the discoveries running at once. Nil means unlimited.
	Resources *resource.Controller
	Logger    *slog.Logger
	Metrics   MetricsCollector
}

// DefaultProducerOptions are the options used by NewProducer.
var DefaultProducerOptions = ProducerOptions{
	MaxClasses: DefaultMaxClasses,
}

// Producer turns class definitions and bare fields into facet classes.
// It is safe for concurrent use.
type Producer struct {
	reader   index.Reader
	compiler Compiler
	opts     ProducerOptions
}

var _ ClassProducer = (*Producer)(nil)

// NewProducer creates a Producer reading from r.
func NewProducer(r index.Reader, c Compiler, optFns ...func(o *ProducerOptions)) *Producer {
	opts := DefaultProducerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxClasses <= 0 {
		opts.MaxClasses = DefaultMaxClasses
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	return &Producer{reader: r, compiler: c, opts: opts}
}

// ProduceClass builds the class described by def. A definition without a
// query yields a placeholder with one empty bitmap per shard.
func (p *Producer) ProduceClass(ctx context.Context, def *model.FacetClassDefinition) (*model.FacetClass, error) {
	start := time.Now()
	if def.Query == "" {
		return model.NewFacetClass(def.Name, bitmap.NewSet(len(p.reader.Shards()))), nil
	}

	pred, err := p.compiler.Compile(def.Query)
	if err != nil {
		err = &ClassError{Class: def.Name, Err: err}
		p.opts.Metrics.RecordProduction(false, 0, time.Since(start), err)
		return nil, err
	}
	fc, err := p.ProduceClassFromPredicate(ctx, def.Name, pred)
	p.opts.Metrics.RecordProduction(false, 1, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	p.opts.Logger.DebugContext(ctx, "facet class produced",
		"class", def.Name,
		"cardinality", fc.Cardinality(),
		"elapsed", time.Since(start),
	)
	return fc, nil
}

// ProduceClassFromPredicate executes pred on every shard and names the result.
func (p *Producer) ProduceClassFromPredicate(ctx context.Context, name string, pred query.Predicate) (*model.FacetClass, error) {
	sets, err := p.compiler.Execute(ctx, pred, p.reader)
	if err != nil {
		return nil, &ClassError{Class: name, Err: err}
	}
	return model.NewFacetClass(name, sets), nil
}

// ProduceClasses discovers the classes of a facet without explicit classes.
//
// Without a query fragment the K most frequent values of the field are used.
// With a fragment, values are ranked by their frequency inside the documents
// matching the fragment, and each class is restricted to that population.
// Classes are named field:value and returned most frequent first.
//
// Classes that fail are left out and reported in the joined error. When the
// discovery itself fails no classes are returned.
func (p *Producer) ProduceClasses(ctx context.Context, def *model.FacetDefinition) ([]*model.FacetClass, error) {
	start := time.Now()
	if p.opts.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.DiscoveryTimeout)
		defer cancel()
	}
	if err := p.opts.Resources.AcquireDiscovery(ctx); err != nil {
		return nil, &ClassError{Facet: def.Name, Err: err}
	}
	defer p.opts.Resources.ReleaseDiscovery()

	classes, err := p.produceClasses(ctx, def)
	p.opts.Metrics.RecordProduction(true, len(classes), time.Since(start), err)
	p.opts.Logger.InfoContext(ctx, "facet classes discovered",
		"facet", def.Name,
		"field", def.Field,
		"restricted", def.QueryFragment != "",
		"classes", len(classes),
		"elapsed", time.Since(start),
	)
	return classes, err
}

func (p *Producer) produceClasses(ctx context.Context, def *model.FacetDefinition) ([]*model.FacetClass, error) {
	var (
		restrict query.Predicate
		terms    []model.TermFrequency
		err      error
	)

	if def.QueryFragment == "" {
		terms, err = p.HighFrequencyTerms(ctx, def.Field, p.opts.MaxClasses)
	} else {
		restrict, err = p.compiler.Compile(def.QueryFragment)
		if err != nil {
			return nil, &ClassError{Facet: def.Name, Err: err}
		}
		var population bitmap.Set
		population, err = p.compiler.Execute(ctx, restrict, p.reader)
		if err != nil {
			return nil, &ClassError{Facet: def.Name, Err: fmt.Errorf("population: %w", err)}
		}
		terms, err = p.PopulationTerms(ctx, def.Field, population, p.opts.MaxClasses)
	}
	if err != nil {
		return nil, &ClassError{Facet: def.Name, Err: err}
	}

	classes := make([]*model.FacetClass, 0, len(terms))
	var errs []error
	for _, tf := range terms {
		if err := ctx.Err(); err != nil {
			errs = append(errs, &ClassError{Facet: def.Name, Err: err})
			break
		}
		pred := p.compiler.Term(tf.Field, tf.Value)
		if restrict != nil {
			pred = query.Conjunction(restrict, pred)
		}
		fc, err := p.ProduceClassFromPredicate(ctx, tf.ClassName(), pred)
		if err != nil {
			errs = append(errs, &ClassError{Facet: def.Name, Class: tf.ClassName(), Err: errors.Unwrap(err)})
			continue
		}
		classes = append(classes, fc)
	}
	return classes, errors.Join(errs...)
}
