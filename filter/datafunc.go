package filter

import (
	"fmt"

	"github.com/livefir/livebind/internal/expr"
)

// DataFunc is a compiled expression: it walks the field path from the datum and threads
// the result through the filter chain.
type DataFunc struct {
	expr     *expr.Expression
	registry *Registry
	tween    bool
}

// Compile compiles a parsed expression against a registry. Filters are looked up when the
// function runs, so filters registered later are picked up; unknown filters pass the
// value through. Whether the function produces a tween is decided now, from the last
// filter of the chain.
func Compile(e *expr.Expression, reg *Registry) *DataFunc {
	f := &DataFunc{expr: e, registry: reg}
	if n := len(e.Filters); n > 0 {
		f.tween = reg.IsTween(e.Filters[n-1].Name)
	}
	return f
}

// Identity answers a data function returning the datum itself
func Identity(reg *Registry) *DataFunc {
	return Compile(&expr.Expression{Identity: true}, reg)
}

// IsTween reports whether the function produces a Tween
func (f *DataFunc) IsTween() bool {
	return f.tween
}

// Expression answers the compiled expression
func (f *DataFunc) Expression() *expr.Expression {
	return f.expr
}

// String answers the canonical source of the expression
func (f *DataFunc) String() string {
	return f.expr.String()
}

// Eval evaluates the function for a datum
func (f *DataFunc) Eval(c Call, datum any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("failed to evaluate %q: %w", f.String(), rerr)
			} else {
				err = fmt.Errorf("failed to evaluate %q: %v", f.String(), r)
			}
		}
	}()

	value = datum
	if !f.expr.Identity {
		value = Path(datum, f.expr.Fields)
	}
	for _, ref := range f.expr.Filters {
		fn, ok := f.registry.Lookup(ref.Name)
		if !ok {
			continue
		}
		value = fn(c, value, ref.Args...)
	}
	return value, nil
}

// EvalTween evaluates the function and answers its result as a Tween. A result that is
// not a function of progress is treated as constant.
func (f *DataFunc) EvalTween(c Call, datum any) (Tween, error) {
	value, err := f.Eval(c, datum)
	if err != nil {
		return nil, err
	}
	return AsTween(value), nil
}

// AsTween converts a tween filter result into a Tween
func AsTween(value any) Tween {
	switch fn := value.(type) {
	case Tween:
		return fn
	case func(float64) any:
		return fn
	case func(float64) string:
		return func(t float64) any { return fn(t) }
	case func(float64) float64:
		return func(t float64) any { return fn(t) }
	}
	return func(float64) any { return value }
}
