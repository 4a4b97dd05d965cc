package spreadsheet

import (
	"slices"
)

// DependencyNode represents a cell in the dependency graph
type DependencyNode struct {
	// key of *THIS* node
	Key CellKey

	// cell-to-cell dependencies
	CellPrecedents map[CellKey]*DependencyNode // cells this cell depends on
	CellDependents map[CellKey]*DependencyNode // cells that depend on this cell

	// formula if it's a formula cell, empty for cells only referenced
	Formula string

	index int // creation order, keeps walks deterministic
}

// DependencyGraph manages cell dependencies and calculation order
type DependencyGraph struct {
	nodes map[CellKey]*DependencyNode
	order []CellKey
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[CellKey]*DependencyNode),
	}
}

// BuildDependencyGraph links every formula cell of the grid to the cells its
// formula references. nodes are created in grid order.
func BuildDependencyGraph(grid *Grid) *DependencyGraph {
	dg := NewDependencyGraph()
	for _, key := range grid.Keys() {
		cell, _ := grid.Get(key)
		if !cell.IsFormula() {
			continue
		}
		dg.SetFormula(key, cell.Content)
		for _, ref := range ExtractReferences(cell.Content) {
			dg.AddCellDependency(key, ref)
		}
	}
	return dg
}

// GetOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) GetOrCreateNode(key CellKey) *DependencyNode {
	if node, exists := dg.nodes[key]; exists {
		return node
	}

	node := &DependencyNode{
		Key:            key,
		CellPrecedents: make(map[CellKey]*DependencyNode),
		CellDependents: make(map[CellKey]*DependencyNode),
		index:          len(dg.order),
	}
	dg.nodes[key] = node
	dg.order = append(dg.order, key)
	return node
}

// GetNode retrieves a node if it exists
func (dg *DependencyGraph) GetNode(key CellKey) (*DependencyNode, bool) {
	node, exists := dg.nodes[key]
	return node, exists
}

// SetFormula sets the formula for a node (creates node if needed)
func (dg *DependencyGraph) SetFormula(key CellKey, formula string) {
	dg.GetOrCreateNode(key).Formula = formula
}

// AddCellDependency adds a cell-to-cell dependency (from depends on to)
func (dg *DependencyGraph) AddCellDependency(from, to CellKey) {
	fromNode := dg.GetOrCreateNode(from)
	toNode := dg.GetOrCreateNode(to)

	fromNode.CellPrecedents[to] = toNode
	toNode.CellDependents[from] = fromNode
}

// sorted returns the keys of a neighbour map in node creation order
func (dg *DependencyGraph) sorted(neighbours map[CellKey]*DependencyNode) []CellKey {
	nodes := make([]*DependencyNode, 0, len(neighbours))
	for _, n := range neighbours {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *DependencyNode) int { return a.index - b.index })

	keys := make([]CellKey, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key
	}
	return keys
}

// GetDirectDependents returns cells whose formulas reference key
func (dg *DependencyGraph) GetDirectDependents(key CellKey) []CellKey {
	node, exists := dg.nodes[key]
	if !exists {
		return nil
	}
	return dg.sorted(node.CellDependents)
}

// GetDirectPrecedents returns cells this cell directly depends on
func (dg *DependencyGraph) GetDirectPrecedents(key CellKey) []CellKey {
	node, exists := dg.nodes[key]
	if !exists {
		return nil
	}
	return dg.sorted(node.CellPrecedents)
}

// GetAllDependents returns all cells affected by this cell (transitive
// closure). key itself is only included when it sits on a cycle.
func (dg *DependencyGraph) GetAllDependents(key CellKey) []CellKey {
	visited := make(map[CellKey]struct{})
	var result []CellKey

	dg.collectDependents(key, visited, &result)
	return result
}

// collectDependents recursively collects all dependents
func (dg *DependencyGraph) collectDependents(key CellKey, visited map[CellKey]struct{}, result *[]CellKey) {
	node, exists := dg.nodes[key]
	if !exists {
		return
	}

	for _, dependent := range dg.sorted(node.CellDependents) {
		if _, alreadyVisited := visited[dependent]; !alreadyVisited {
			visited[dependent] = struct{}{}
			*result = append(*result, dependent)
			dg.collectDependents(dependent, visited, result)
		}
	}
}

// GetCalculationOrder orders targets so that every cell comes after the
// targets it depends on. precedents outside targets are taken as already
// computed. the bool reports whether a cycle was met.
func (dg *DependencyGraph) GetCalculationOrder(targets []CellKey) ([]CellKey, bool) {
	include := make(map[CellKey]struct{}, len(targets))
	for _, key := range targets {
		include[key] = struct{}{}
	}

	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[CellKey]bool)
	var order []CellKey
	hasCycle := false

	var visit func(key CellKey)
	visit = func(key CellKey) {
		if completed, exists := state[key]; exists {
			if !completed {
				// currently visiting - cycle detected
				hasCycle = true
			}
			return
		}

		// mark as visiting
		state[key] = false

		// visit all precedents first
		for _, precedent := range dg.GetDirectPrecedents(key) {
			if _, ok := include[precedent]; ok {
				visit(precedent)
			}
		}

		// mark as visited
		state[key] = true
		order = append(order, key)
	}

	for _, key := range targets {
		visit(key)
	}

	return order, hasCycle
}

// CycleMembers returns every cell that sits on a reference cycle, including
// cells that reference themselves
func (dg *DependencyGraph) CycleMembers() map[CellKey]bool {
	// tarjan's strongly connected components
	members := make(map[CellKey]bool)
	index := make(map[CellKey]int)
	lowlink := make(map[CellKey]int)
	onStack := make(map[CellKey]bool)
	var stack []CellKey
	next := 0

	var connect func(key CellKey)
	connect = func(key CellKey) {
		index[key] = next
		lowlink[key] = next
		next++
		stack = append(stack, key)
		onStack[key] = true

		for _, precedent := range dg.GetDirectPrecedents(key) {
			if _, seen := index[precedent]; !seen {
				connect(precedent)
				lowlink[key] = min(lowlink[key], lowlink[precedent])
			} else if onStack[precedent] {
				lowlink[key] = min(lowlink[key], index[precedent])
			}
		}

		if lowlink[key] != index[key] {
			return
		}

		var component []CellKey
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == key {
				break
			}
		}

		node := dg.nodes[key]
		_, selfLoop := node.CellPrecedents[key]
		if len(component) > 1 || selfLoop {
			for _, member := range component {
				members[member] = true
			}
		}
	}

	for _, key := range dg.order {
		if _, seen := index[key]; !seen {
			connect(key)
		}
	}
	return members
}

// HasCycle checks if there are circular dependencies
func (dg *DependencyGraph) HasCycle() bool {
	return len(dg.CycleMembers()) > 0
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}
