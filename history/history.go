// Package history records program runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// Status is the outcome of a run.
type Status string

const (
	StatusOK    Status = "ok"    // entry function returned
	StatusEnded Status = "ended" // program executed end
	StatusError Status = "error" // fatal interpreter error
)

// Run is one recorded execution.
type Run struct {
	ID        string
	Program   string // file name or "-" for programs received over the network
	Entry     string
	Status    Status
	Value     int
	ErrorKind string
	Error     string
	Output    string
	Steps     int
	Started   time.Time
	Duration  time.Duration
}

// Store is the run history database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	program    TEXT NOT NULL,
	entry      TEXT NOT NULL,
	status     TEXT NOT NULL,
	value      INTEGER NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	output     TEXT NOT NULL DEFAULT '',
	steps      INTEGER NOT NULL,
	started    INTEGER NOT NULL,
	duration   INTEGER NOT NULL
)`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a run, assigning an ID and start time if unset. It returns
// the stored run.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Started.IsZero() {
		r.Started = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, program, entry, status, value, error_kind, error, output, steps, started, duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Program, r.Entry, string(r.Status), r.Value, r.ErrorKind, r.Error, r.Output,
		r.Steps, r.Started.UnixNano(), int64(r.Duration),
	)
	if err != nil {
		return Run{}, fmt.Errorf("saving run: %w", err)
	}
	return r, nil
}

const selectRuns = `SELECT id, program, entry, status, value, error_kind, error, output, steps, started, duration FROM runs`

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}
	return r, nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY started DESC, rowid DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		status            string
		started, duration int64
	)
	err := sc.Scan(&r.ID, &r.Program, &r.Entry, &status, &r.Value, &r.ErrorKind, &r.Error, &r.Output,
		&r.Steps, &started, &duration)
	if err != nil {
		return Run{}, err
	}
	r.Status = Status(status)
	r.Started = time.Unix(0, started)
	r.Duration = time.Duration(duration)
	return r, nil
}
