package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"go.alis.build/alog"
)

// rangeFunctions take a range as their first argument. with literal case
// preserved their arguments are still upper-cased so references resolve.
var rangeFunctions = map[string]bool{
	"SUM":               true,
	"AVERAGE":           true,
	"MAX":               true,
	"MIN":               true,
	"COUNT":             true,
	"REMOVE_DUPLICATES": true,
}

// Evaluator turns formula text into a computed value
type Evaluator struct {
	functions           *BuiltInFunctions
	preserveLiteralCase bool
}

// NewEvaluator creates an evaluator over the default function library
func NewEvaluator(preserveLiteralCase bool) *Evaluator {
	return &Evaluator{
		functions:           NewDefaultBuiltInFunctions(),
		preserveLiteralCase: preserveLiteralCase,
	}
}

// Evaluate computes a formula with the default options. see Evaluator.Evaluate.
func Evaluate(formula string, lookup Lookup) Primitive {
	return NewEvaluator(false).Evaluate(formula, lookup)
}

// Evaluate computes the value of formula, which should start with "=".
// lookup supplies computed values of referenced cells. every failure,
// including a non-finite arithmetic result, yields ErrorValue.
func (e *Evaluator) Evaluate(formula string, lookup Lookup) (result Primitive) {
	value, err := e.evaluate(formula, lookup)
	if err != nil {
		alog.Debugf(context.Background(), "evaluate %q: %v", formula, err)
		return ErrorValue
	}
	return value
}

func (e *Evaluator) evaluate(formula string, lookup Lookup) (result Primitive, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, NewSpreadsheetError(ErrorCodeOther, fmt.Sprintf("panic: %v", r))
		}
	}()

	expression := strings.TrimPrefix(formula, "=")
	folded := strings.ToUpper(expression)
	if !e.preserveLiteralCase {
		expression = folded
	}

	for _, name := range e.functions.Names() {
		prefix := name + "("
		if !strings.HasPrefix(folded, prefix) {
			continue
		}
		argText := folded
		if e.preserveLiteralCase && !rangeFunctions[name] {
			argText = expression
		}
		return e.functions.Call(name, splitArguments(argText, len(prefix)), lookup.accessor())
	}

	node, err := ParseExpression(expression)
	if err != nil {
		return nil, err
	}
	value, err := node.Eval(lookup)
	if err != nil {
		return nil, err
	}
	if num, ok := value.(float64); ok && !isFinite(num) {
		return nil, NewSpreadsheetError(ErrorCodeOther, "non-finite result")
	}
	return value, nil
}

// splitArguments takes the text between the opening parenthesis and the final
// character, splits it on commas and trims each part
func splitArguments(expression string, start int) []string {
	end := len(expression) - 1
	if end < start {
		end = start
	}
	parts := strings.Split(expression[start:end], ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// accessor adapts a value lookup to the cell shape the built-ins read.
// numeric values are typed as numbers, everything else as text.
func (lookup Lookup) accessor() CellAccessor {
	return func(key CellKey) *CellData {
		if lookup == nil {
			return nil
		}
		value := lookup(key)
		if value == nil {
			return nil
		}
		cell := &CellData{
			Content:       FormatValue(value),
			ComputedValue: value,
			DataType:      DataTypeText,
		}
		if _, ok := value.(float64); ok {
			cell.DataType = DataTypeNumber
		}
		return cell
	}
}
