package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/croc-sightings/internal/sightings"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			max_rows INTEGER PRIMARY KEY,
			columns TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			loaded_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sightings (
			max_rows INTEGER NOT NULL,
			row_index INTEGER NOT NULL,
			day TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			fields TEXT NOT NULL,
			PRIMARY KEY (max_rows, row_index),
			FOREIGN KEY (max_rows) REFERENCES snapshots(max_rows)
		);

		CREATE INDEX IF NOT EXISTS idx_sightings_day ON sightings(max_rows, day);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ReplaceSnapshot stores ds under its row limit, replacing any earlier copy.
func (s *SQLiteDB) ReplaceSnapshot(ctx context.Context, ds *sightings.Dataset) error {
	columns, err := json.Marshal(ds.Columns())
	if err != nil {
		return fmt.Errorf("error encoding columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sightings WHERE max_rows = ?`, ds.MaxRows()); err != nil {
		return fmt.Errorf("error clearing sightings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (max_rows, columns, row_count, loaded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(max_rows) DO UPDATE SET
			columns = excluded.columns,
			row_count = excluded.row_count,
			loaded_at = excluded.loaded_at`,
		ds.MaxRows(), string(columns), ds.Len(), ds.LoadedAt().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sightings (max_rows, row_index, day, timestamp, latitude, longitude, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ds.Records() {
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("error encoding fields of row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ds.MaxRows(), i, r.Day().String(), r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Latitude, r.Longitude, string(fields),
		); err != nil {
			return fmt.Errorf("error inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetSnapshot(ctx context.Context, maxRows int) (*Snapshot, error) {
	var (
		columns  string
		loadedAt string
		snap     = Snapshot{MaxRows: maxRows}
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT columns, row_count, loaded_at FROM snapshots WHERE max_rows = ?`, maxRows,
	).Scan(&columns, &snap.Rows, &loadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(columns), &snap.Columns); err != nil {
		return nil, fmt.Errorf("error decoding columns: %w", err)
	}
	if snap.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
		return nil, fmt.Errorf("error parsing loaded_at: %w", err)
	}
	return &snap, nil
}

func (s *SQLiteDB) ListSightings(ctx context.Context, opts Filter) ([]StoredSighting, error) {
	where, args := buildWhere(opts)
	query := `SELECT row_index, timestamp, latitude, longitude, fields FROM sightings` + where + ` ORDER BY row_index`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying sightings: %w", err)
	}
	defer rows.Close()

	results := make([]StoredSighting, 0)
	for rows.Next() {
		var (
			rec    StoredSighting
			ts     string
			fields string
		)
		if err := rows.Scan(&rec.Index, &ts, &rec.Latitude, &rec.Longitude, &fields); err != nil {
			return nil, fmt.Errorf("error scanning sighting: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("error parsing timestamp of row %d: %w", rec.Index, err)
		}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("error decoding fields of row %d: %w", rec.Index, err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sightings: %w", err)
	}
	return results, nil
}

// CountSightings ignores Limit and Offset.
func (s *SQLiteDB) CountSightings(ctx context.Context, opts Filter) (int, error) {
	where, args := buildWhere(opts)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting sightings: %w", err)
	}
	return n, nil
}

func buildWhere(opts Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	clauses = append(clauses, "max_rows = ?")
	args = append(args, opts.MaxRows)
	if opts.Day != nil {
		clauses = append(clauses, "day = ?")
		args = append(args, opts.Day.String())
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

var _ SightingRepository = (*SQLiteDB)(nil)
