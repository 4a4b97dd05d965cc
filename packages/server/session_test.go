package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/sheetcalc/packages/comments"
	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	grid := spreadsheet.NewGrid()
	grid.SetContent("A1", "5")
	grid.SetContent("B1", "=A1*2")
	n := 0
	return NewSession(spreadsheet.NewEngine(spreadsheet.Options{}), grid,
		comments.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("c%d", n)
		}))
}

func apply(t *testing.T, s *Session, req Request) Response {
	t.Helper()
	resp, err := s.Apply(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestSessionRecalculatesOnCreate(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, 10.0, s.Snapshot().ComputedValue("B1"))
}

func TestSessionSet(t *testing.T) {
	s := newTestSession(t)

	resp := apply(t, s, Request{Cell: "A1", Text: "7"})
	assert.Equal(t, TypeCells, resp.Type)
	assert.True(t, resp.broadcast)
	assert.Equal(t, []spreadsheet.CellKey{"A1", "B1"}, resp.Cells.Keys())
	assert.Equal(t, 14.0, resp.Cells.ComputedValue("B1"))

	// unchanged cells are not reported
	resp = apply(t, s, Request{Action: ActionSet, Cell: "C1", Text: "hello"})
	assert.Equal(t, []spreadsheet.CellKey{"C1"}, resp.Cells.Keys())
}

func TestSessionUndoRedo(t *testing.T) {
	s := newTestSession(t)
	apply(t, s, Request{Cell: "A1", Text: "7"})
	apply(t, s, Request{Cell: "C1", Text: "new"})

	resp := apply(t, s, Request{Action: ActionUndo})
	assert.Equal(t, []spreadsheet.CellKey{"C1"}, resp.Cells.Keys())
	cell, _ := s.Snapshot().Get("C1")
	assert.Equal(t, "", cell.Content)

	apply(t, s, Request{Action: ActionUndo})
	assert.Equal(t, 10.0, s.Snapshot().ComputedValue("B1"))

	_, err := s.Apply(context.Background(), Request{Action: ActionUndo})
	assert.Equal(t, spreadsheet.FailedPrecondition, spreadsheet.CodeOf(err))

	apply(t, s, Request{Action: ActionRedo})
	assert.Equal(t, 14.0, s.Snapshot().ComputedValue("B1"))

	// a new edit clears redo
	apply(t, s, Request{Cell: "A1", Text: "1"})
	_, err = s.Apply(context.Background(), Request{Action: ActionRedo})
	assert.Equal(t, spreadsheet.FailedPrecondition, spreadsheet.CodeOf(err))
}

func TestSessionFormat(t *testing.T) {
	s := newTestSession(t)

	resp := apply(t, s, Request{Action: ActionFormat, Cell: "A1", Format: &spreadsheet.CellFormat{Bold: true}})
	require.Equal(t, []spreadsheet.CellKey{"A1"}, resp.Cells.Keys())
	cell, _ := resp.Cells.Get("A1")
	assert.Equal(t, spreadsheet.CellFormat{Bold: true}, cell.Format)
	assert.Equal(t, 5.0, cell.ComputedValue)

	apply(t, s, Request{Action: ActionUndo})
	cell, _ = s.Snapshot().Get("A1")
	assert.Equal(t, spreadsheet.CellFormat{}, cell.Format)

	// formatting an empty cell creates it
	apply(t, s, Request{Action: ActionFormat, Cell: "D4", Format: &spreadsheet.CellFormat{Color: "red"}})
	cell, ok := s.Snapshot().Get("D4")
	require.True(t, ok)
	assert.Equal(t, spreadsheet.DataTypeText, cell.DataType)

	_, err := s.Apply(context.Background(), Request{Action: ActionFormat, Cell: "A1"})
	assert.Equal(t, spreadsheet.InvalidArgument, spreadsheet.CodeOf(err))
}

func TestSessionComments(t *testing.T) {
	s := newTestSession(t)

	resp := apply(t, s, Request{Action: ActionCommentAdd, Cell: "A1", Text: "check"})
	assert.Equal(t, TypeComments, resp.Type)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "c1", resp.Comments[0].ID)
	assert.Equal(t, comments.DefaultAuthor, resp.Comments[0].Author)

	resp = apply(t, s, Request{Action: ActionComments, Cell: "A1"})
	assert.False(t, resp.broadcast)
	assert.Len(t, resp.Comments, 1)

	resp = apply(t, s, Request{Action: ActionCommentDelete, Cell: "A1", CommentID: "c1"})
	assert.Empty(t, resp.Comments)

	resp = apply(t, s, Request{Action: ActionUndo})
	assert.Len(t, resp.Comments, 1)

	resp = apply(t, s, Request{Action: ActionUndo})
	assert.Empty(t, resp.Comments)

	resp = apply(t, s, Request{Action: ActionRedo})
	assert.Len(t, resp.Comments, 1)

	_, err := s.Apply(context.Background(), Request{Action: ActionCommentDelete, Cell: "A1", CommentID: "nope"})
	assert.Equal(t, spreadsheet.NotFound, spreadsheet.CodeOf(err))
}

func TestSessionInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"missing cell", Request{Text: "1"}},
		{"bad cell", Request{Cell: "1A", Text: "1"}},
		{"unknown action", Request{Action: "explode", Cell: "A1"}},
	}

	s := newTestSession(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Apply(context.Background(), tt.req)
			assert.Equal(t, spreadsheet.InvalidArgument, spreadsheet.CodeOf(err))
		})
	}
}
