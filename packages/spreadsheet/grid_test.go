package spreadsheet

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGridOrder(t *testing.T) {
	grid := NewGrid()
	grid.SetContent("C3", "3")
	grid.SetContent("A1", "1")
	grid.SetContent("B2", "2")
	grid.SetContent("A1", "one")

	assert.Equal(t, []CellKey{"C3", "A1", "B2"}, grid.Keys())
	assert.Equal(t, 3, grid.Len())

	cell, ok := grid.Get("A1")
	require.True(t, ok)
	assert.Equal(t, "one", cell.Content)

	_, ok = grid.Get("Z1")
	assert.False(t, ok)
	assert.Nil(t, grid.ComputedValue("Z1"))
}

func TestGridClone(t *testing.T) {
	grid := NewGrid()
	grid.Set("A1", CellData{Content: "1", ComputedValue: 1.0, DataType: DataTypeNumber})

	clone := grid.Clone()
	clone.SetContent("A1", "2")
	clone.SetContent("B1", "x")

	cell, _ := grid.Get("A1")
	assert.Equal(t, "1", cell.Content)
	assert.Equal(t, []CellKey{"A1"}, grid.Keys())
	assert.Equal(t, []CellKey{"A1", "B1"}, clone.Keys())

	var nilGrid *Grid
	assert.Equal(t, 0, nilGrid.Clone().Len())
}

func TestGridYAML(t *testing.T) {
	grid := NewGrid()
	grid.Set("B2", CellData{Content: "=A1*2", ComputedValue: 10.0, DataType: DataTypeText})
	grid.Set("A1", CellData{Content: "5", Format: CellFormat{Bold: true, FontSize: 14}, ComputedValue: 5.0, DataType: DataTypeNumber})

	out, err := yaml.Marshal(grid)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "computedValue")
	assert.Contains(t, string(out), "bold: true")
	assert.Less(t, strings.Index(string(out), "B2:"), strings.Index(string(out), "A1:"))

	loaded := NewGrid()
	require.NoError(t, yaml.Unmarshal(out, loaded))
	assert.Equal(t, []CellKey{"B2", "A1"}, loaded.Keys())

	cell, _ := loaded.Get("A1")
	assert.Equal(t, CellData{Content: "5", Format: CellFormat{Bold: true, FontSize: 14}}, cell)

	recalculated := Recalculate(loaded)
	assert.Equal(t, 10.0, recalculated.ComputedValue("B2"))
}

func TestGridYAMLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a mapping", "- A1\n- B1\n"},
		{"bad key", "a1:\n  content: x\n"},
		{"bad cell", "A1: [1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := yaml.Unmarshal([]byte(tt.input), NewGrid())
			require.Error(t, err)
			assert.Equal(t, InvalidArgument, CodeOf(err))
		})
	}
}

func TestGridJSON(t *testing.T) {
	grid := NewGrid()
	grid.Set("B1", CellData{Content: "=A1*2", ComputedValue: 10.0, DataType: DataTypeText})
	grid.Set("A1", CellData{Content: "5", ComputedValue: 5.0, DataType: DataTypeNumber})

	out, err := json.Marshal(grid)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"B1": {"content": "=A1*2", "format": {}, "computedValue": 10, "dataType": "text"},
		"A1": {"content": "5", "format": {}, "computedValue": 5, "dataType": "number"}
	}`, string(out))
	assert.Less(t, strings.Index(string(out), `"B1"`), strings.Index(string(out), `"A1"`))

	decoded := NewGrid()
	require.NoError(t, json.Unmarshal(out, decoded))
	assert.Equal(t, grid, decoded)

	err = json.Unmarshal([]byte(`{"bogus": {"content": ""}}`), NewGrid())
	assert.Equal(t, InvalidArgument, CodeOf(err))
}

func TestGridJSONNonFinite(t *testing.T) {
	grid := Propagate("A1", "x", NewGrid())
	grid = Propagate("A2", "y", grid)
	grid = Propagate("B1", "=MIN(A1:A2)", grid)
	grid = Propagate("B2", "=MAX(A1:A2)", grid)
	require.Equal(t, math.Inf(1), grid.ComputedValue("B1"))

	out, err := json.Marshal(grid)
	require.NoError(t, err)

	decoded := NewGrid()
	require.NoError(t, json.Unmarshal(out, decoded))
	assert.Equal(t, "Infinity", decoded.ComputedValue("B1"))
	assert.Equal(t, "-Infinity", decoded.ComputedValue("B2"))

	// the grid itself keeps the number
	assert.Equal(t, math.Inf(-1), grid.ComputedValue("B2"))
}
