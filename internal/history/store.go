// Package history keeps a SQLite log of evaluation runs and their per-class
// Dice means so that models can be compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	model      TEXT NOT NULL,
	threshold  REAL NOT NULL,
	samples    INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS class_scores (
	run_id      TEXT NOT NULL,
	position    INTEGER NOT NULL,
	class_index INTEGER NOT NULL,
	mean_dice   REAL NOT NULL,
	PRIMARY KEY (run_id, position),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS runs_source_created ON runs (source, created_at);
`

// timeLayout is fixed-width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("history: run not found")

// ClassScore is the mean Dice of one class in a run.
type ClassScore struct {
	Class int
	Mean  float64
}

// Run is one recorded evaluation of one data source.
type Run struct {
	ID        string
	Source    string
	Model     string
	Threshold float32
	Samples   int
	CreatedAt time.Time
	Classes   []ClassScore
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Store manages run history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and its class scores in one transaction. An empty ID is
// replaced with a new one; a zero CreatedAt with the current time.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // No-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, model, threshold, samples, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Model, float64(run.Threshold), run.Samples, run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	for i, c := range run.Classes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO class_scores (run_id, position, class_index, mean_dice) VALUES (?, ?, ?, ?)`,
			run.ID, i, c.Class, c.Mean,
		)
		if err != nil {
			return Run{}, fmt.Errorf("insert class %d: %w", c.Class, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// Get loads one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, source, model, threshold, samples, created_at FROM runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	run.Classes, err = s.classScores(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// Runs lists the most recent runs for source, newest first. An empty source
// lists all sources; limit <= 0 means no limit.
func (s *Store) Runs(ctx context.Context, source string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source, model, threshold, samples, created_at FROM runs
		 WHERE ? = '' OR source = ?
		 ORDER BY created_at DESC LIMIT ?`, source, source, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		runs[i].Classes, err = s.classScores(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) classScores(ctx context.Context, id string) ([]ClassScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT class_index, mean_dice FROM class_scores WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query class scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ClassScore
	for rows.Next() {
		var c ClassScore
		if err := rows.Scan(&c.Class, &c.Mean); err != nil {
			return nil, fmt.Errorf("scan class score: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		threshold float64
		created   string
	)
	if err := sc.Scan(&run.ID, &run.Source, &run.Model, &threshold, &run.Samples, &created); err != nil {
		return Run{}, err
	}
	run.Threshold = float32(threshold)
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t
	return run, nil
}
