// Package store persists optimization runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	// pure-Go sqlite driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/copyleftdev/icemaze/internal/errors"
	"github.com/copyleftdev/icemaze/internal/maze"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found").WithComponent("store")

// Run is one optimization as persisted.
type Run struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Layout      string       `json:"layout"`
	WallCount   int          `json:"wall_count"`
	Walls       []maze.Point `json:"walls,omitempty"`
	BestFitness int          `json:"best_fitness"`
	Path        maze.Route   `json:"path,omitempty"`
	Generations int          `json:"generations"`
	Evaluations int          `json:"evaluations"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Store is a run repository backed by database/sql.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	layout       TEXT NOT NULL,
	wall_count   INTEGER NOT NULL,
	walls        TEXT NOT NULL DEFAULT '[]',
	best_fitness INTEGER NOT NULL DEFAULT 0,
	path         TEXT NOT NULL DEFAULT '[]',
	generations  INTEGER NOT NULL DEFAULT 0,
	evaluations  INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Open connects to dsn and applies the schema. ":memory:" is accepted.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database").WithComponent("store").WithOperation("open")
	}
	// sqlite allows a single writer; an in-memory database is also per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema").WithComponent("store").WithOperation("open")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts run or replaces the stored row with the same id. Zero
// timestamps are set to now; CreatedAt is kept from the first save.
func (s *Store) Save(ctx context.Context, run Run) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}

	walls, err := json.Marshal(nonNil(run.Walls))
	if err != nil {
		return errors.Wrap(err, "encode walls").WithComponent("store").WithOperation("save")
	}
	path, err := json.Marshal(nonNil(run.Path))
	if err != nil {
		return errors.Wrap(err, "encode path").WithComponent("store").WithOperation("save")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, layout, wall_count, walls, best_fitness, path,
			generations, evaluations, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			layout = excluded.layout,
			wall_count = excluded.wall_count,
			walls = excluded.walls,
			best_fitness = excluded.best_fitness,
			path = excluded.path,
			generations = excluded.generations,
			evaluations = excluded.evaluations,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		run.ID, run.Status, run.Layout, run.WallCount, string(walls), run.BestFitness, string(path),
		run.Generations, run.Evaluations, run.Error, run.CreatedAt.UnixNano(), run.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return errors.Wrapf(err, "save run %s", run.ID).WithComponent("store").WithOperation("save")
	}
	return nil
}

const selectRun = `SELECT id, status, layout, wall_count, walls, best_fitness, path,
	generations, evaluations, error, created_at, updated_at FROM runs`

// Get loads one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+" WHERE id = ? LIMIT 1", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "run %s", id).WithOperation("get")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load run %s", id).WithComponent("store").WithOperation("get")
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRun + " ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs").WithComponent("store").WithOperation("list")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run").WithComponent("store").WithOperation("list")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list runs").WithComponent("store").WithOperation("list")
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run              Run
		walls, path      string
		created, updated int64
	)
	err := row.Scan(&run.ID, &run.Status, &run.Layout, &run.WallCount, &walls, &run.BestFitness, &path,
		&run.Generations, &run.Evaluations, &run.Error, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(walls), &run.Walls); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(path), &run.Path); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	run.UpdatedAt = time.Unix(0, updated).UTC()
	return &run, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
