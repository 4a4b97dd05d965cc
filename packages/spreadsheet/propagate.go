package spreadsheet

import (
	"context"
	"strings"

	"go.alis.build/alog"
)

// Propagate writes text into key and recomputes the cells that depend on it.
// grid is not modified, the result is a new snapshot. formats are carried
// unchanged and a failing dependent never stops the others.
func (e *Engine) Propagate(key CellKey, text string, grid *Grid) *Grid {
	updated := grid.Clone()
	e.writeEdit(updated, key, text)

	switch e.opts.Mode {
	case PropagateTransitive:
		e.propagateTransitive(updated, key)
	default:
		e.propagateDirect(updated, key)
	}
	return updated
}

// writeEdit stores the classified text at key. a formula is evaluated right
// away against the grid as it stands.
func (e *Engine) writeEdit(grid *Grid, key CellKey, text string) {
	cell, _ := grid.Get(key)
	classification := Classify(text)

	cell.Content = text
	cell.DataType = classification.DataType
	if cell.IsFormula() {
		cell.ComputedValue = e.evaluator.Evaluate(text, grid.ComputedValue)
		cell.DataType = resultType(cell.ComputedValue)
	} else {
		cell.ComputedValue = initialValue(text, classification.DataType)
	}
	grid.Set(key, cell)
}

// recompute re-evaluates the formula at key, reading values from the grid as
// mutated so far
func (e *Engine) recompute(grid *Grid, key CellKey) {
	cell, _ := grid.Get(key)
	cell.ComputedValue = e.evaluator.Evaluate(cell.Content, grid.ComputedValue)
	cell.DataType = resultType(cell.ComputedValue)
	grid.Set(key, cell)
}

func markCycle(grid *Grid, key CellKey) {
	cell, _ := grid.Get(key)
	cell.ComputedValue = CycleValue
	cell.DataType = DataTypeError
	grid.Set(key, cell)
}

// propagateDirect re-evaluates every other formula whose text contains key,
// in grid order. dependents of dependents are left alone.
func (e *Engine) propagateDirect(grid *Grid, key CellKey) {
	var dependents []CellKey
	for _, k := range grid.Keys() {
		if k == key {
			continue
		}
		cell, _ := grid.Get(k)
		if cell.IsFormula() && strings.Contains(cell.Content, string(key)) {
			dependents = append(dependents, k)
		}
	}

	alog.Debugf(context.Background(), "propagate %s: %d direct dependents", key, len(dependents))
	for _, k := range dependents {
		e.recompute(grid, k)
	}
}

// propagateTransitive recomputes every transitive dependent of key after the
// cells it reads. cells on a cycle are marked instead of evaluated.
func (e *Engine) propagateTransitive(grid *Grid, key CellKey) {
	graph := BuildDependencyGraph(grid)
	cycles := graph.CycleMembers()
	affected := graph.GetAllDependents(key)
	order, hasCycle := graph.GetCalculationOrder(affected)

	alog.Debugf(context.Background(), "propagate %s: %d transitive dependents, cycle=%t", key, len(affected), hasCycle)
	for _, k := range order {
		cell, ok := grid.Get(k)
		if !ok || !cell.IsFormula() {
			continue
		}
		switch {
		case cycles[k]:
			markCycle(grid, k)
		case k == key:
			// evaluated by writeEdit
		default:
			e.recompute(grid, k)
		}
	}
}

// Recalculate rebuilds derived state for every cell from its content, as
// after loading a grid from a file. the input grid is not modified.
func (e *Engine) Recalculate(grid *Grid) *Grid {
	updated := grid.Clone()

	var formulas []CellKey
	for _, k := range updated.Keys() {
		cell, _ := updated.Get(k)
		classification := Classify(cell.Content)
		cell.DataType = classification.DataType
		if cell.IsFormula() {
			cell.ComputedValue = nil
			formulas = append(formulas, k)
		} else {
			cell.ComputedValue = initialValue(cell.Content, classification.DataType)
		}
		updated.Set(k, cell)
	}

	if e.opts.Mode != PropagateTransitive {
		for _, k := range formulas {
			e.recompute(updated, k)
		}
		alog.Debugf(context.Background(), "recalculate: %d formulas in grid order", len(formulas))
		return updated
	}

	graph := BuildDependencyGraph(updated)
	cycles := graph.CycleMembers()
	order, _ := graph.GetCalculationOrder(formulas)
	for _, k := range order {
		if cycles[k] {
			markCycle(updated, k)
			continue
		}
		e.recompute(updated, k)
	}
	alog.Debugf(context.Background(), "recalculate: %d formulas, %d on cycles", len(formulas), len(cycles))
	return updated
}
