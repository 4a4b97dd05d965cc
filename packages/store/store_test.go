package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "grids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGrid() *spreadsheet.Grid {
	grid := spreadsheet.NewGrid()
	grid.Set("B1", spreadsheet.CellData{
		Content:       "=A1*2",
		Format:        spreadsheet.CellFormat{Italic: true, Color: "#00ff00"},
		ComputedValue: 10.0,
		DataType:      spreadsheet.DataTypeText,
	})
	grid.Set("A1", spreadsheet.CellData{Content: "5", ComputedValue: 5.0, DataType: spreadsheet.DataTypeNumber})
	return grid
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "budget", sampleGrid()))

	loaded, err := s.Load(ctx, "budget")
	require.NoError(t, err)
	assert.Equal(t, []spreadsheet.CellKey{"B1", "A1"}, loaded.Keys())

	cell, _ := loaded.Get("B1")
	assert.Equal(t, spreadsheet.CellData{
		Content: "=A1*2",
		Format:  spreadsheet.CellFormat{Italic: true, Color: "#00ff00"},
	}, cell)

	recalculated := spreadsheet.Recalculate(loaded)
	assert.Equal(t, 10.0, recalculated.ComputedValue("B1"))
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "budget", sampleGrid()))

	smaller := spreadsheet.NewGrid()
	smaller.SetContent("C3", "x")
	require.NoError(t, s.Save(ctx, "budget", smaller))

	loaded, err := s.Load(ctx, "budget")
	require.NoError(t, err)
	assert.Equal(t, []spreadsheet.CellKey{"C3"}, loaded.Keys())
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	require.NoError(t, s.Save(ctx, "old", sampleGrid()))
	at = at.Add(time.Hour)
	require.NoError(t, s.Save(ctx, "new", spreadsheet.NewGrid()))

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Summary{
		{Name: "new", Cells: 0, UpdatedAt: at},
		{Name: "old", Cells: 2, UpdatedAt: at.Add(-time.Hour)},
	}, summaries)

	require.NoError(t, s.Delete(ctx, "old"))
	err = s.Delete(ctx, "old")
	assert.Equal(t, spreadsheet.NotFound, spreadsheet.CodeOf(err))

	summaries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Load(ctx, "missing")
	assert.Equal(t, spreadsheet.NotFound, spreadsheet.CodeOf(err))

	err = s.Save(ctx, "", sampleGrid())
	assert.Equal(t, spreadsheet.InvalidArgument, spreadsheet.CodeOf(err))
}
