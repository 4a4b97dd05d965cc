// Package store persists raw grids (content and format) in SQLite. derived
// state is never stored, loaded grids go through spreadsheet.Recalculate.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.alis.build/alog"
	_ "modernc.org/sqlite"

	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

const schema = `
CREATE TABLE IF NOT EXISTS grids (
	name       TEXT PRIMARY KEY,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cells (
	grid     TEXT NOT NULL REFERENCES grids(name) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	cell_key TEXT NOT NULL,
	content  TEXT NOT NULL,
	format   TEXT NOT NULL,
	PRIMARY KEY (grid, cell_key)
);`

// timeLayout sorts lexically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Summary describes a saved grid
type Summary struct {
	Name      string
	Cells     int
	UpdatedAt time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "open "+path, err)
	}
	// one writer at a time, and a single connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "ping "+path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "enable foreign keys", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "apply schema", err)
	}

	alog.Debugf(ctx, "store: opened %s", path)
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the grid stored under name
func (s *Store) Save(ctx context.Context, name string, grid *spreadsheet.Grid) (err error) {
	if name == "" {
		return spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, "grid name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "begin save", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	updatedAt := s.now().UTC().Format(timeLayout)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO grids (name, updated_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
		name, updatedAt); err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "save grid "+name, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM cells WHERE grid = ?`, name); err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "clear grid "+name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cells (grid, position, cell_key, content, format) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "prepare cells", err)
	}
	defer stmt.Close()

	for i, key := range grid.Keys() {
		cell, _ := grid.Get(key)
		format, jsonErr := json.Marshal(cell.Format)
		if jsonErr != nil {
			err = spreadsheet.WrapApplicationError(spreadsheet.Internal, "encode format "+string(key), jsonErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, name, i, string(key), cell.Content, string(format)); err != nil {
			return spreadsheet.WrapApplicationError(spreadsheet.Internal, fmt.Sprintf("save cell %s", key), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "commit grid "+name, err)
	}
	alog.Infof(ctx, "store: saved %q with %d cells", name, grid.Len())
	return nil
}

// Load returns the raw grid stored under name, cells in their saved order
func (s *Store) Load(ctx context.Context, name string) (*spreadsheet.Grid, error) {
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM grids WHERE name = ?`, name).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, spreadsheet.NewApplicationError(spreadsheet.NotFound, fmt.Sprintf("grid %q not found", name))
	}
	if err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "load grid "+name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cell_key, content, format FROM cells WHERE grid = ? ORDER BY position`, name)
	if err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "load cells "+name, err)
	}
	defer rows.Close()

	grid := spreadsheet.NewGrid()
	for rows.Next() {
		var key, content, format string
		if err := rows.Scan(&key, &content, &format); err != nil {
			return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "scan cell", err)
		}
		var cellFormat spreadsheet.CellFormat
		if err := json.Unmarshal([]byte(format), &cellFormat); err != nil {
			return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "decode format "+key, err)
		}
		grid.Set(spreadsheet.CellKey(key), spreadsheet.CellData{Content: content, Format: cellFormat})
	}
	if err := rows.Err(); err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "load cells "+name, err)
	}
	return grid, nil
}

// List returns every saved grid, most recently updated first
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name, g.updated_at, COUNT(c.cell_key)
		FROM grids g LEFT JOIN cells c ON c.grid = g.name
		GROUP BY g.name, g.updated_at
		ORDER BY g.updated_at DESC, g.name`)
	if err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "list grids", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		var updatedAt string
		if err := rows.Scan(&summary.Name, &updatedAt, &summary.Cells); err != nil {
			return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "scan grid", err)
		}
		summary.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
		if err != nil {
			return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "parse updated_at", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.Internal, "list grids", err)
	}
	return summaries, nil
}

// Delete removes the grid stored under name
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cells WHERE grid = ?`, name); err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "delete cells "+name, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM grids WHERE name = ?`, name)
	if err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "delete grid "+name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return spreadsheet.WrapApplicationError(spreadsheet.Internal, "delete grid "+name, err)
	}
	if n == 0 {
		return spreadsheet.NewApplicationError(spreadsheet.NotFound, fmt.Sprintf("grid %q not found", name))
	}
	alog.Infof(ctx, "store: deleted %q", name)
	return nil
}
