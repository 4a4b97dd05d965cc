package spreadsheet

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Grid maps cell keys to cell data and remembers the order in which keys
// were first set. dependents are evaluated in this order.
type Grid struct {
	order []CellKey
	cells map[CellKey]CellData
}

func NewGrid() *Grid {
	return &Grid{cells: make(map[CellKey]CellData)}
}

// Get returns a copy of the cell at key
func (g *Grid) Get(key CellKey) (CellData, bool) {
	if g == nil {
		return CellData{}, false
	}
	cell, ok := g.cells[key]
	return cell, ok
}

// Set stores cell at key. new keys are appended to the iteration order.
func (g *Grid) Set(key CellKey, cell CellData) {
	if _, exists := g.cells[key]; !exists {
		g.order = append(g.order, key)
	}
	g.cells[key] = cell
}

// SetContent is shorthand for Set with only raw content, as a loader would
func (g *Grid) SetContent(key CellKey, content string) {
	cell := g.cells[key]
	cell.Content = content
	g.Set(key, cell)
}

// Keys returns the keys in insertion order
func (g *Grid) Keys() []CellKey {
	if g == nil {
		return nil
	}
	keys := make([]CellKey, len(g.order))
	copy(keys, g.order)
	return keys
}

func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Clone returns an independent copy
func (g *Grid) Clone() *Grid {
	clone := &Grid{
		order: make([]CellKey, 0, g.Len()),
		cells: make(map[CellKey]CellData, g.Len()),
	}
	if g == nil {
		return clone
	}
	clone.order = append(clone.order, g.order...)
	for k, v := range g.cells {
		clone.cells[k] = v
	}
	return clone
}

// ComputedValue returns the computed value at key, nil when absent
func (g *Grid) ComputedValue(key CellKey) Primitive {
	cell, ok := g.Get(key)
	if !ok {
		return nil
	}
	return cell.ComputedValue
}

// storedCell is the persisted shape of a cell. derived state is recomputed
// on load.
type storedCell struct {
	Content string     `json:"content" yaml:"content"`
	Format  CellFormat `json:"format,omitempty" yaml:"format,omitempty"`
}

// MarshalYAML writes the raw grid (content and format) as a mapping in key order
func (g *Grid) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range g.order {
		cell := g.cells[key]
		value := &yaml.Node{}
		if err := value.Encode(storedCell{Content: cell.Content, Format: cell.Format}); err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(key)},
			value,
		)
	}
	return node, nil
}

// UnmarshalYAML reads a raw grid. computed values and data types are left
// empty, callers pass the result through Recalculate.
func (g *Grid) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("grid must be a mapping, line %d", value.Line))
	}
	grid := NewGrid()
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, cellNode := value.Content[i], value.Content[i+1]
		if !IsCellKey(keyNode.Value) {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("invalid cell key %q, line %d", keyNode.Value, keyNode.Line))
		}
		var stored storedCell
		if err := cellNode.Decode(&stored); err != nil {
			return WrapApplicationError(InvalidArgument, "decode cell "+keyNode.Value, err)
		}
		grid.Set(CellKey(keyNode.Value), CellData{Content: stored.Content, Format: stored.Format})
	}
	*g = *grid
	return nil
}

// MarshalJSON writes non-finite computed values, such as MIN over a range
// without numbers, as their FormatValue text. JSON has no infinity.
func (c CellData) MarshalJSON() ([]byte, error) {
	type plain CellData
	out := plain(c)
	if num, ok := c.ComputedValue.(float64); ok && !isFinite(num) {
		out.ComputedValue = FormatValue(num)
	}
	return json.Marshal(out)
}

// MarshalJSON writes the full grid, derived state included, as an object in
// key order
func (g *Grid) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(key))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(g.cells[key])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return NewApplicationError(InvalidArgument, "grid must be a JSON object")
	}
	grid := NewGrid()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if !IsCellKey(key) {
			return NewApplicationError(InvalidArgument, fmt.Sprintf("invalid cell key %q", key))
		}
		var cell CellData
		if err := dec.Decode(&cell); err != nil {
			return WrapApplicationError(InvalidArgument, "decode cell "+key, err)
		}
		grid.Set(CellKey(key), cell)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = *grid
	return nil
}
