package server

import (
	"context"
	"fmt"
	"sync"

	"go.alis.build/alog"

	"github.com/vogtb/sheetcalc/packages/comments"
	"github.com/vogtb/sheetcalc/packages/history"
	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

// Action names accepted in a Request. an empty action is ActionSet.
const (
	ActionSet           = "set"
	ActionFormat        = "format"
	ActionUndo          = "undo"
	ActionRedo          = "redo"
	ActionCommentAdd    = "comment_add"
	ActionCommentDelete = "comment_delete"
	ActionComments      = "comments"
)

// Response types
const (
	TypeCells    = "cells"
	TypeComments = "comments"
	TypeError    = "error"
)

// Request is one message sent by a client, e.g. {"cell":"A1","text":"5"}
type Request struct {
	Action    string                  `json:"action,omitempty"`
	Cell      spreadsheet.CellKey     `json:"cell,omitempty"`
	Text      string                  `json:"text,omitempty"`
	Format    *spreadsheet.CellFormat `json:"format,omitempty"`
	Author    string                  `json:"author,omitempty"`
	CommentID string                  `json:"commentId,omitempty"`
}

// Response is sent back to clients. cell changes and comment changes are
// broadcast, errors and comment listings go to the requesting client only.
type Response struct {
	Type     string              `json:"type"`
	Cells    *spreadsheet.Grid   `json:"cells,omitempty"`
	Cell     spreadsheet.CellKey `json:"cell,omitempty"`
	Comments []comments.Comment  `json:"comments,omitempty"`
	Error    string              `json:"error,omitempty"`

	broadcast bool
}

// Session is the shared document behind the websocket hub. all edits go
// through Apply, which serializes them.
type Session struct {
	mu       sync.Mutex
	engine   *spreadsheet.Engine
	grid     *spreadsheet.Grid
	history  *history.Manager
	comments *comments.Manager
}

// NewSession wraps grid, which is recalculated with engine first
func NewSession(engine *spreadsheet.Engine, grid *spreadsheet.Grid, opts ...comments.Option) *Session {
	return &Session{
		engine:   engine,
		grid:     engine.Recalculate(grid),
		history:  history.NewManager(),
		comments: comments.NewManager(opts...),
	}
}

// Snapshot returns a copy of the current grid
func (s *Session) Snapshot() *spreadsheet.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Clone()
}

// Apply runs req against the document
func (s *Session) Apply(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Action {
	case "", ActionSet:
		if err := checkKey(req.Cell); err != nil {
			return Response{}, err
		}
		previous := s.cellPtr(req.Cell)
		changed := s.propagate(req.Cell, req.Text)
		s.history.Push(history.Action{
			Kind:     history.CellUpdate,
			CellKey:  req.Cell,
			Previous: previous,
			New:      s.cellPtr(req.Cell),
		})
		alog.Debugf(ctx, "session: set %s, %d cells changed", req.Cell, changed.Len())
		return cellsResponse(changed), nil

	case ActionFormat:
		if err := checkKey(req.Cell); err != nil {
			return Response{}, err
		}
		if req.Format == nil {
			return Response{}, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, "format is missing")
		}
		previous := s.cellPtr(req.Cell)
		changed := s.setFormat(req.Cell, *req.Format)
		s.history.Push(history.Action{
			Kind:     history.FormatUpdate,
			CellKey:  req.Cell,
			Previous: previous,
			New:      s.cellPtr(req.Cell),
		})
		return cellsResponse(changed), nil

	case ActionCommentAdd:
		if err := checkKey(req.Cell); err != nil {
			return Response{}, err
		}
		comment := s.comments.Add(req.Cell, req.Text, req.Author)
		s.history.Push(history.Action{Kind: history.CommentAdd, CellKey: req.Cell, Comment: &comment})
		return s.commentsResponse(req.Cell, true), nil

	case ActionCommentDelete:
		comment, ok := s.comments.Delete(req.Cell, req.CommentID)
		if !ok {
			return Response{}, spreadsheet.NewApplicationError(spreadsheet.NotFound,
				fmt.Sprintf("comment %q not found on %s", req.CommentID, req.Cell))
		}
		s.history.Push(history.Action{Kind: history.CommentDelete, CellKey: req.Cell, Comment: &comment})
		return s.commentsResponse(req.Cell, true), nil

	case ActionComments:
		if err := checkKey(req.Cell); err != nil {
			return Response{}, err
		}
		return s.commentsResponse(req.Cell, false), nil

	case ActionUndo:
		action, ok := s.history.Undo()
		if !ok {
			return Response{}, spreadsheet.NewApplicationError(spreadsheet.FailedPrecondition, "nothing to undo")
		}
		alog.Debugf(ctx, "session: undo %s on %s", action.Kind, action.CellKey)
		return s.revert(action, true), nil

	case ActionRedo:
		action, ok := s.history.Redo()
		if !ok {
			return Response{}, spreadsheet.NewApplicationError(spreadsheet.FailedPrecondition, "nothing to redo")
		}
		alog.Debugf(ctx, "session: redo %s on %s", action.Kind, action.CellKey)
		return s.revert(action, false), nil
	}

	return Response{}, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, fmt.Sprintf("unknown action %q", req.Action))
}

// revert replays action without touching the history stacks. undo restores
// the previous side of the action, redo the new side.
func (s *Session) revert(action history.Action, undo bool) Response {
	switch action.Kind {
	case history.CellUpdate:
		target := action.New
		if undo {
			target = action.Previous
		}
		return cellsResponse(s.propagate(action.CellKey, contentOf(target)))

	case history.FormatUpdate:
		target := action.New
		if undo {
			target = action.Previous
		}
		var format spreadsheet.CellFormat
		if target != nil {
			format = target.Format
		}
		return cellsResponse(s.setFormat(action.CellKey, format))

	case history.CommentAdd, history.CommentDelete:
		remove := (action.Kind == history.CommentAdd) == undo
		if remove {
			s.comments.Delete(action.CellKey, action.Comment.ID)
		} else {
			s.comments.Restore(action.CellKey, *action.Comment)
		}
		return s.commentsResponse(action.CellKey, true)
	}
	return Response{Type: TypeCells, Cells: spreadsheet.NewGrid(), broadcast: true}
}

// propagate applies an edit and returns the cells that changed
func (s *Session) propagate(key spreadsheet.CellKey, text string) *spreadsheet.Grid {
	next := s.engine.Propagate(key, text, s.grid)
	changed := diff(s.grid, next)
	s.grid = next
	return changed
}

func (s *Session) setFormat(key spreadsheet.CellKey, format spreadsheet.CellFormat) *spreadsheet.Grid {
	next := s.grid.Clone()
	cell, ok := next.Get(key)
	if !ok {
		cell.DataType = s.engine.Classify("").DataType
		cell.ComputedValue = ""
	}
	cell.Format = format
	next.Set(key, cell)
	changed := diff(s.grid, next)
	s.grid = next
	return changed
}

func (s *Session) cellPtr(key spreadsheet.CellKey) *spreadsheet.CellData {
	cell, ok := s.grid.Get(key)
	if !ok {
		return nil
	}
	return &cell
}

func (s *Session) commentsResponse(key spreadsheet.CellKey, broadcast bool) Response {
	return Response{Type: TypeComments, Cell: key, Comments: s.comments.List(key), broadcast: broadcast}
}

func cellsResponse(changed *spreadsheet.Grid) Response {
	return Response{Type: TypeCells, Cells: changed, broadcast: true}
}

func errorResponse(err error) Response {
	return Response{Type: TypeError, Error: err.Error()}
}

// diff returns the cells of next that are new or differ from before, in
// next's order
func diff(before, next *spreadsheet.Grid) *spreadsheet.Grid {
	changed := spreadsheet.NewGrid()
	for _, key := range next.Keys() {
		cell, _ := next.Get(key)
		old, ok := before.Get(key)
		if !ok || old != cell {
			changed.Set(key, cell)
		}
	}
	return changed
}

func contentOf(cell *spreadsheet.CellData) string {
	if cell == nil {
		return ""
	}
	return cell.Content
}

func checkKey(key spreadsheet.CellKey) error {
	if !spreadsheet.IsCellKey(string(key)) {
		return spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, fmt.Sprintf("invalid cell key %q", key))
	}
	return nil
}
