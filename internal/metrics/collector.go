package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector counts engine activity using atomic counters
type Collector struct {
	engineMetrics     *EngineMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// EngineMetrics is a snapshot of the counters of one engine
type EngineMetrics struct {
	// Compilation
	TemplatesCompiled int64 `json:"templates_compiled"`
	CompileErrors     int64 `json:"compile_errors"`

	// Rendering
	Renders      int64 `json:"renders"`
	RenderErrors int64 `json:"render_errors"`

	// Join results
	ElementsEntered int64 `json:"elements_entered"`
	ElementsUpdated int64 `json:"elements_updated"`
	ElementsExited  int64 `json:"elements_exited"`

	// Leaf bindings
	BindingsApplied int64 `json:"bindings_applied"`
	BindingFailures int64 `json:"binding_failures"`

	// Transitions
	TweensScheduled          int64 `json:"tweens_scheduled"`
	TransitionsStarted       int64 `json:"transitions_started"`
	ActiveTransitions        int64 `json:"active_transitions"`
	MaxConcurrentTransitions int64 `json:"max_concurrent_transitions"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		engineMetrics: &EngineMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementTemplateCompiled records a compiled template root
func (c *Collector) IncrementTemplateCompiled() {
	atomic.AddInt64(&c.engineMetrics.TemplatesCompiled, 1)
}

// IncrementCompileError records a rejected template
func (c *Collector) IncrementCompileError() {
	atomic.AddInt64(&c.engineMetrics.CompileErrors, 1)
}

// IncrementRender records a render of one template root
func (c *Collector) IncrementRender() {
	atomic.AddInt64(&c.engineMetrics.Renders, 1)
}

// IncrementRenderError records a render that failed
func (c *Collector) IncrementRenderError() {
	atomic.AddInt64(&c.engineMetrics.RenderErrors, 1)
}

// RecordJoin records the outcome of one data join
func (c *Collector) RecordJoin(entered, updated, exited int) {
	atomic.AddInt64(&c.engineMetrics.ElementsEntered, int64(entered))
	atomic.AddInt64(&c.engineMetrics.ElementsUpdated, int64(updated))
	atomic.AddInt64(&c.engineMetrics.ElementsExited, int64(exited))
}

// IncrementBindingApplied records a leaf binding written to an element
func (c *Collector) IncrementBindingApplied() {
	atomic.AddInt64(&c.engineMetrics.BindingsApplied, 1)
}

// IncrementBindingFailure records a leaf binding skipped because evaluation failed
func (c *Collector) IncrementBindingFailure() {
	atomic.AddInt64(&c.engineMetrics.BindingFailures, 1)
}

// IncrementTweenScheduled records a tween registered on a transition
func (c *Collector) IncrementTweenScheduled() {
	atomic.AddInt64(&c.engineMetrics.TweensScheduled, 1)
}

// IncrementTransitionStarted records a transition starting
func (c *Collector) IncrementTransitionStarted() {
	atomic.AddInt64(&c.engineMetrics.TransitionsStarted, 1)
	currentActive := atomic.AddInt64(&c.engineMetrics.ActiveTransitions, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.engineMetrics.MaxConcurrentTransitions)
		if currentActive <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.engineMetrics.MaxConcurrentTransitions, max, currentActive) {
			break
		}
	}
}

// IncrementTransitionFinished records a transition ending or being interrupted
func (c *Collector) IncrementTransitionFinished() {
	atomic.AddInt64(&c.engineMetrics.ActiveTransitions, -1)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns a snapshot of the current counters
func (c *Collector) GetMetrics() EngineMetrics {
	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	return EngineMetrics{
		TemplatesCompiled:        atomic.LoadInt64(&c.engineMetrics.TemplatesCompiled),
		CompileErrors:            atomic.LoadInt64(&c.engineMetrics.CompileErrors),
		Renders:                  atomic.LoadInt64(&c.engineMetrics.Renders),
		RenderErrors:             atomic.LoadInt64(&c.engineMetrics.RenderErrors),
		ElementsEntered:          atomic.LoadInt64(&c.engineMetrics.ElementsEntered),
		ElementsUpdated:          atomic.LoadInt64(&c.engineMetrics.ElementsUpdated),
		ElementsExited:           atomic.LoadInt64(&c.engineMetrics.ElementsExited),
		BindingsApplied:          atomic.LoadInt64(&c.engineMetrics.BindingsApplied),
		BindingFailures:          atomic.LoadInt64(&c.engineMetrics.BindingFailures),
		TweensScheduled:          atomic.LoadInt64(&c.engineMetrics.TweensScheduled),
		TransitionsStarted:       atomic.LoadInt64(&c.engineMetrics.TransitionsStarted),
		ActiveTransitions:        atomic.LoadInt64(&c.engineMetrics.ActiveTransitions),
		MaxConcurrentTransitions: atomic.LoadInt64(&c.engineMetrics.MaxConcurrentTransitions),
		StartTime:                startTime,
		Uptime:                   time.Since(startTime),
	}
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.engineMetrics.TemplatesCompiled, 0)
	atomic.StoreInt64(&c.engineMetrics.CompileErrors, 0)
	atomic.StoreInt64(&c.engineMetrics.Renders, 0)
	atomic.StoreInt64(&c.engineMetrics.RenderErrors, 0)
	atomic.StoreInt64(&c.engineMetrics.ElementsEntered, 0)
	atomic.StoreInt64(&c.engineMetrics.ElementsUpdated, 0)
	atomic.StoreInt64(&c.engineMetrics.ElementsExited, 0)
	atomic.StoreInt64(&c.engineMetrics.BindingsApplied, 0)
	atomic.StoreInt64(&c.engineMetrics.BindingFailures, 0)
	atomic.StoreInt64(&c.engineMetrics.TweensScheduled, 0)
	atomic.StoreInt64(&c.engineMetrics.TransitionsStarted, 0)
	atomic.StoreInt64(&c.engineMetrics.ActiveTransitions, 0)
	atomic.StoreInt64(&c.engineMetrics.MaxConcurrentTransitions, 0)

	c.operationCounters = make(map[string]*int64)

	c.startTime = time.Now()
	c.engineMetrics.StartTime = c.startTime
}

// GetBindingFailureRate returns the percentage of leaf bindings that failed
func (c *Collector) GetBindingFailureRate() float64 {
	applied := atomic.LoadInt64(&c.engineMetrics.BindingsApplied)
	failures := atomic.LoadInt64(&c.engineMetrics.BindingFailures)

	if applied+failures == 0 {
		return 0.0
	}

	return float64(failures) / float64(applied+failures) * 100.0
}

// GetReuseRatio returns the percentage of joined elements that were kept rather than created
func (c *Collector) GetReuseRatio() float64 {
	entered := atomic.LoadInt64(&c.engineMetrics.ElementsEntered)
	updated := atomic.LoadInt64(&c.engineMetrics.ElementsUpdated)

	if entered+updated == 0 {
		return 100.0
	}

	return float64(updated) / float64(entered+updated) * 100.0
}
