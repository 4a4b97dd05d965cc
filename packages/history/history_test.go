package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

func update(key spreadsheet.CellKey, before, after string) Action {
	return Action{
		Kind:     CellUpdate,
		CellKey:  key,
		Previous: &spreadsheet.CellData{Content: before},
		New:      &spreadsheet.CellData{Content: after},
	}
}

func TestUndoRedo(t *testing.T) {
	m := NewManager()
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())

	_, ok := m.Undo()
	assert.False(t, ok)
	_, ok = m.Redo()
	assert.False(t, ok)

	m.Push(update("A1", "", "1"))
	m.Push(update("A1", "1", "2"))
	assert.True(t, m.CanUndo())

	action, ok := m.Undo()
	assert.True(t, ok)
	assert.Equal(t, "2", action.New.Content)
	assert.True(t, m.CanRedo())

	action, ok = m.Undo()
	assert.True(t, ok)
	assert.Equal(t, "1", action.New.Content)
	assert.False(t, m.CanUndo())

	action, ok = m.Redo()
	assert.True(t, ok)
	assert.Equal(t, "1", action.New.Content)
	assert.True(t, m.CanUndo())
	assert.True(t, m.CanRedo())
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager()
	m.Push(update("A1", "", "1"))
	m.Undo()
	assert.True(t, m.CanRedo())

	m.Push(Action{Kind: FormatUpdate, CellKey: "B1"})
	assert.False(t, m.CanRedo())

	action, ok := m.Undo()
	assert.True(t, ok)
	assert.Equal(t, FormatUpdate, action.Kind)
	assert.False(t, m.CanUndo())
}
