package spreadsheet

import (
	"fmt"
	"strings"
)

// PropagationMode selects how far an edit is pushed through the grid
type PropagationMode string

const (
	// PropagateDirect re-evaluates only formulas whose text contains the
	// edited key. one level deep, no cycle detection.
	PropagateDirect PropagationMode = "direct"
	// PropagateTransitive follows real references through every level in
	// dependency order and marks cycles with CycleValue.
	PropagateTransitive PropagationMode = "transitive"
)

// ParsePropagationMode maps a mode name to its PropagationMode. the empty
// name selects PropagateDirect.
func ParsePropagationMode(name string) (PropagationMode, error) {
	switch PropagationMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", PropagateDirect:
		return PropagateDirect, nil
	case PropagateTransitive:
		return PropagateTransitive, nil
	default:
		return "", NewApplicationError(InvalidArgument, fmt.Sprintf("unknown propagation mode %q", name))
	}
}

// Options configures an Engine. the zero value matches the behaviour of
// the package-level functions.
type Options struct {
	Mode PropagationMode
	// PreserveLiteralCase stops text arguments from being upper-cased along
	// with function names and references
	PreserveLiteralCase bool
}

// Engine classifies, evaluates and propagates cell edits. it holds no grid
// state and is safe for concurrent use.
type Engine struct {
	opts      Options
	evaluator *Evaluator
}

func NewEngine(opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = PropagateDirect
	}
	return &Engine{
		opts:      opts,
		evaluator: NewEvaluator(opts.PreserveLiteralCase),
	}
}

var defaultEngine = NewEngine(Options{})

// Options returns the options the engine was built with
func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) Classify(text string) Classification {
	return Classify(text)
}

func (e *Engine) Evaluate(formula string, lookup Lookup) Primitive {
	return e.evaluator.Evaluate(formula, lookup)
}

// Propagate applies an edit with the default options. see Engine.Propagate.
func Propagate(key CellKey, text string, grid *Grid) *Grid {
	return defaultEngine.Propagate(key, text, grid)
}

// Recalculate recomputes a grid with the default options. see
// Engine.Recalculate.
func Recalculate(grid *Grid) *Grid {
	return defaultEngine.Recalculate(grid)
}

// resultType is the data type recorded for an evaluated formula
func resultType(value Primitive) DataType {
	if IsErrorValue(value) {
		return DataTypeError
	}
	return DataTypeText
}
