// Package history records reversible edits in undo and redo stacks
package history

import (
	"github.com/vogtb/sheetcalc/packages/comments"
	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

type ActionKind string

const (
	CellUpdate    ActionKind = "CELL_UPDATE"
	FormatUpdate  ActionKind = "FORMAT_UPDATE"
	CommentAdd    ActionKind = "COMMENT_ADD"
	CommentDelete ActionKind = "COMMENT_DELETE"
)

// Action is one reversible edit. Previous and New hold the cell around a
// cell or format update, Comment the comment that was added or deleted.
type Action struct {
	Kind     ActionKind
	CellKey  spreadsheet.CellKey
	Previous *spreadsheet.CellData
	New      *spreadsheet.CellData
	Comment  *comments.Comment
}

// Manager holds the undo and redo stacks. it is not safe for concurrent use.
type Manager struct {
	undo []Action
	redo []Action
}

func NewManager() *Manager {
	return &Manager{}
}

// Push records a new action. any redo history is discarded.
func (m *Manager) Push(action Action) {
	m.undo = append(m.undo, action)
	m.redo = m.redo[:0]
}

// Undo pops the latest action and moves it onto the redo stack
func (m *Manager) Undo() (Action, bool) {
	if len(m.undo) == 0 {
		return Action{}, false
	}
	action := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, action)
	return action, true
}

// Redo pops the latest undone action and moves it back onto the undo stack
func (m *Manager) Redo() (Action, bool) {
	if len(m.redo) == 0 {
		return Action{}, false
	}
	action := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, action)
	return action, true
}

func (m *Manager) CanUndo() bool {
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	return len(m.redo) > 0
}
