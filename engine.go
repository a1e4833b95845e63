// Package livebind binds data to HTML and SVG trees in place.
//
// A template is an ordinary element tree carrying tags such as {{ person.name|upper }} in
// text and attribute values, and structural directives (data-repeat, data-if, data-with,
// data-import) on elements. Engine.Template compiles a tree once; Engine.Render joins data
// onto it as often as needed, creating and removing elements for repeated and conditional
// content and updating text, attributes, styles, classes and properties. Rendering inside a
// transition animates the changes.
package livebind

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/livefir/livebind/filter"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/metrics"
	"github.com/livefir/livebind/transition"
	"golang.org/x/net/html"
)

// Event is delivered to event handlers by Dispatch
type Event = dom.Event

// Handler handles an event
type Handler = dom.Handler

// Metrics is a snapshot of the activity of an engine
type Metrics = metrics.EngineMetrics

// Engine compiles and renders templates. The side table with bound datums, listeners and
// properties lives in the engine, so nodes must be compiled, rendered and queried through
// the same engine. An Engine is safe for concurrent use; renders and transition frames are
// serialized.
type Engine struct {
	mu        sync.Mutex
	store     *dom.Store
	registry  *filter.Registry
	options   Options
	logger    *log.Logger
	metrics   *metrics.Collector
	scheduler *transition.Scheduler
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithRegistry sets the filter registry. The default registry holds the built-in filters.
func WithRegistry(registry *filter.Registry) EngineOption {
	return func(e *Engine) {
		e.registry = registry
	}
}

// WithLogger sets the logger for skipped bindings and failed transition renders. A nil
// logger keeps the default.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultOptions sets the template options used when Template is called without any
func WithDefaultOptions(opts ...Option) EngineOption {
	return func(e *Engine) {
		e.options = e.options.apply(opts)
	}
}

// New creates an engine
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		store:   dom.NewStore(),
		options: DefaultOptions(),
		logger:  log.Default(),
		metrics: metrics.NewCollector(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = filter.NewDefaultRegistry()
	}
	e.scheduler = transition.NewScheduler(transition.WithLocker(&e.mu))
	return e
}

// Template compiles every element of sel into a template. Directive attributes and tags
// are removed from the markup and the template children of groups are detached.
func (e *Engine) Template(sel *goquery.Selection, opts ...Option) (*goquery.Selection, error) {
	options := e.options.apply(opts)
	if err := options.Validate(); err != nil {
		return sel, fmt.Errorf("invalid template options: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range sel.Nodes {
		if !dom.IsElement(n) {
			continue
		}
		if existing, _ := e.store.ClosestTemplate(n); existing != nil {
			e.metrics.IncrementCompileError()
			return sel, fmt.Errorf("failed to compile <%s>: %w", n.Data, ErrTemplateOverlap)
		}

		c := &compiler{store: e.store, registry: e.registry, options: options, root: n}
		ct, err := c.compile()
		if err != nil {
			e.metrics.IncrementCompileError()
			return sel, err
		}
		e.store.SetTemplate(n, ct)
		e.metrics.IncrementTemplateCompiled()
	}
	return sel, nil
}

// Render renders data onto every template in sel. The same data is rendered on each.
func (e *Engine) Render(sel *goquery.Selection, data any) (*goquery.Selection, error) {
	return sel, e.render(sel, data, nil)
}

// RenderTransition renders data onto every template in sel when tr starts, animating
// attribute and style changes and running tweens over its duration. A transition already
// running renders right away; one that has finished renders without animation.
func (e *Engine) RenderTransition(tr *transition.Transition, sel *goquery.Selection, data any) (*goquery.Selection, error) {
	for _, n := range sel.Nodes {
		if !e.IsTemplate(n) {
			return sel, fmt.Errorf("failed to render <%s>: %w", n.Data, ErrNotTemplate)
		}
	}

	switch {
	case tr.Done():
		return sel, e.render(sel, data, nil)
	case tr.Active():
		return sel, e.render(sel, data, tr)
	}
	tr.OnStart(func(tr *transition.Transition) {
		if err := e.render(sel, data, tr); err != nil {
			e.logger.Printf("livebind: render in transition %q failed: %v", tr.Name(), err)
		}
	})
	return sel, nil
}

func (e *Engine) render(sel *goquery.Selection, data any, tr *transition.Transition) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, n := range sel.Nodes {
		ct, ok := e.store.Template(n).(*compiledTemplate)
		if !ok {
			e.metrics.IncrementRenderError()
			return fmt.Errorf("failed to render <%s>: %w", n.Data, ErrNotTemplate)
		}

		p := &renderPass{store: e.store, metrics: e.metrics, logger: e.logger, tr: tr}
		propagateDatum(e.store, n, data)
		if err := p.joinScope(n, &ct.scope, i, len(sel.Nodes)); err != nil {
			e.metrics.IncrementRenderError()
			return err
		}
		p.renderScope(n, &ct.scope, i, len(sel.Nodes))
		e.metrics.IncrementRender()
	}
	return nil
}

// Transition creates a transition whose frames are serialized with renders. Render onto it
// with RenderTransition, then drive it with Run or Seek.
func (e *Engine) Transition(duration time.Duration, opts ...transition.Option) *transition.Transition {
	tr := e.scheduler.New(duration, opts...)
	tr.OnStart(func(*transition.Transition) { e.metrics.IncrementTransitionStarted() })
	tr.OnEnd(func(*transition.Transition) { e.metrics.IncrementTransitionFinished() })
	tr.OnInterrupt(func(*transition.Transition) { e.metrics.IncrementTransitionFinished() })
	return tr
}

// IsTemplate reports whether n is the root of a compiled template
func (e *Engine) IsTemplate(n *html.Node) bool {
	_, ok := e.store.Template(n).(*compiledTemplate)
	return ok
}

// On registers handler for the typename ("click", "click.name") on every element of sel,
// replacing a handler with the same typename. A nil handler removes it. Handlers present
// on the child of a group when the template is compiled are added to every element the
// group creates.
func (e *Engine) On(sel *goquery.Selection, typename string, handler Handler) *goquery.Selection {
	for _, n := range sel.Nodes {
		e.store.On(n, typename, handler, false)
	}
	return sel
}

// Dispatch sends an event of the given type to every element of sel. The event bubbles up
// to the ancestors. It answers the number of handlers invoked.
func (e *Engine) Dispatch(sel *goquery.Selection, typ string) int {
	invoked := 0
	for _, n := range sel.Nodes {
		invoked += e.store.Dispatch(n, typ)
	}
	return invoked
}

// Datum answers the datum bound to n by the last render
func (e *Engine) Datum(n *html.Node) (any, bool) {
	return e.store.Datum(n)
}

// Property answers a property of n, as written by data-prop- bindings
func (e *Engine) Property(n *html.Node, name string) (any, bool) {
	return e.store.Property(n, name)
}

// SetProperty sets a property of n. A nil value removes it.
func (e *Engine) SetProperty(n *html.Node, name string, value any) {
	e.store.SetProperty(n, name, value)
}

// Registry answers the filter registry of the engine
func (e *Engine) Registry() *filter.Registry {
	return e.registry
}

// RegisterFilter registers a filter. A nil fn removes it.
func (e *Engine) RegisterFilter(name string, fn filter.Func) error {
	return e.registry.Register(name, fn)
}

// RegisterTweenFilter registers a filter returning a filter.Tween. A nil fn removes it.
func (e *Engine) RegisterTweenFilter(name string, fn filter.Func) error {
	return e.registry.RegisterTween(name, fn)
}

// Options answers the default template options of the engine
func (e *Engine) Options() Options {
	return e.options
}

// Metrics answers a snapshot of the engine counters
func (e *Engine) Metrics() Metrics {
	return e.metrics.GetMetrics()
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// Default answers the engine used by the package level functions
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Template compiles templates with the default engine
func Template(sel *goquery.Selection, opts ...Option) (*goquery.Selection, error) {
	return Default().Template(sel, opts...)
}

// Render renders data with the default engine
func Render(sel *goquery.Selection, data any) (*goquery.Selection, error) {
	return Default().Render(sel, data)
}

// RenderTransition renders data in a transition with the default engine
func RenderTransition(tr *transition.Transition, sel *goquery.Selection, data any) (*goquery.Selection, error) {
	return Default().RenderTransition(tr, sel, data)
}
