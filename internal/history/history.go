// Package history stores seeing measurements in a SQLite database so that
// conditions can be compared across a night or between nights.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"seeingmetrics/internal/report"
)

// DBName is the file name of the database inside its directory.
const DBName = "history.db"

// timeLayout is fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store is the run history database.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one stored measurement.
type Run struct {
	ID         string
	Image      string
	CreatedAt  time.Time
	FWHM       float64
	FWHMArcsec float64
	Used       int
	Detected   int
	OK         bool
	Error      string
}

// Open opens the database in dir, creating the directory and schema when
// needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	path := filepath.Join(dir, DBName)

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		image TEXT NOT NULL,
		created_at TEXT NOT NULL,
		fwhm REAL,
		fwhm_arcsec REAL,
		used INTEGER NOT NULL DEFAULT 0,
		detected INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_image ON runs(image);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record stores the report. Reports without a seeing estimate are stored
// with a NULL FWHM.
func (s *Store) Record(ctx context.Context, r *report.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	var fwhm, arcsec sql.NullFloat64
	used := 0
	if r.Seeing != nil {
		fwhm = sql.NullFloat64{Float64: r.Seeing.FWHM, Valid: true}
		used = r.Seeing.Used
		if r.FWHMArcsec > 0 {
			arcsec = sql.NullFloat64{Float64: r.FWHMArcsec, Valid: true}
		}
	}

	query := `
	INSERT INTO runs (id, image, created_at, fwhm, fwhm_arcsec, used, detected, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.Image,
		r.CreatedAt.UTC().Format(timeLayout),
		fwhm,
		arcsec,
		used,
		r.Detected,
		r.Error,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	return nil
}

// List returns the most recent runs first. A limit of 0 or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, image, created_at, fwhm, fwhm_arcsec, used, detected, error
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run          Run
			created      string
			fwhm, arcsec sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &run.Image, &created, &fwhm, &arcsec, &run.Used, &run.Detected, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("run %s: invalid timestamp %q: %w", run.ID, created, err)
		}
		run.FWHM = fwhm.Float64
		run.FWHMArcsec = arcsec.Float64
		run.OK = fwhm.Valid
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the full report of a stored run.
func (s *Store) Get(ctx context.Context, id string) (*report.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT report_json FROM runs WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	var r report.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &r, nil
}
