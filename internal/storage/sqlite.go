package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hazz-dev/shipcheck/internal/probe"
	"github.com/hazz-dev/shipcheck/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT    NOT NULL UNIQUE,
    primary_ep  TEXT    NOT NULL,
    passed      INTEGER NOT NULL CHECK(passed IN (0, 1)),
    started_at  TEXT    NOT NULL,
    finished_at TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS probes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    endpoint    TEXT    NOT NULL,
    kind        TEXT    NOT NULL,
    probe       TEXT    NOT NULL CHECK(probe IN ('health', 'functional')),
    success     INTEGER NOT NULL CHECK(success IN (0, 1)),
    status_code INTEGER NOT NULL DEFAULT 0,
    error_kind  TEXT    NOT NULL DEFAULT '',
    detail      TEXT    NOT NULL DEFAULT '',
    snippet     TEXT    NOT NULL DEFAULT '',
    response_ms INTEGER NOT NULL,
    checked_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_run ON probes(run_id);
CREATE INDEX IF NOT EXISTS idx_probes_endpoint_probe ON probes(endpoint, probe, id DESC);
`

// Fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is a stored verification run.
type Run struct {
	ID         string    `json:"id"`
	Primary    string    `json:"primary"`
	Passed     bool      `json:"passed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Probes     []Probe   `json:"probes,omitempty"`
}

// Probe is a stored probe result.
type Probe struct {
	Endpoint   string    `json:"endpoint"`
	Kind       string    `json:"kind"`
	Probe      string    `json:"probe"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	ErrorKind  string    `json:"error_kind"`
	Detail     string    `json:"detail"`
	Snippet    string    `json:"snippet"`
	ResponseMs int64     `json:"response_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertRun persists a verification report with all its probe results and
// returns the new run ID.
func (d *DB) InsertRun(ctx context.Context, r *report.Report) (string, error) {
	id := uuid.NewString()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning run insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, primary_ep, passed, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		r.Primary,
		boolInt(r.Passed()),
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, o := range r.Outcomes {
		for _, res := range []probe.Result{o.Health, o.Functional} {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO probes (run_id, endpoint, kind, probe, success, status_code, error_kind, detail, snippet, response_ms, checked_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id,
				res.Endpoint,
				o.Endpoint.Kind,
				string(res.Probe),
				boolInt(res.Success),
				res.StatusCode,
				string(res.Error),
				res.Detail,
				res.Snippet,
				res.Duration.Milliseconds(),
				formatTime(res.CheckedAt),
			)
			if err != nil {
				return "", fmt.Errorf("inserting %s probe for %q: %w", res.Probe, res.Endpoint, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// LatestRun returns the most recent run with its probes, or nil if none.
func (d *DB) LatestRun(ctx context.Context) (*Run, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, primary_ep, passed, started_at, finished_at FROM runs ORDER BY seq DESC LIMIT 1`,
	)
	return d.loadRun(ctx, row)
}

// GetRun returns the run with the given ID and its probes, or nil if unknown.
func (d *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, primary_ep, passed, started_at, finished_at FROM runs WHERE id = ?`, id,
	)
	return d.loadRun(ctx, row)
}

func (d *DB) loadRun(ctx context.Context, row scanner) (*Run, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	probes, err := d.RunProbes(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Probes = probes
	return run, nil
}

// RecentRuns returns paginated runs, newest first, plus the total count.
// Probes are not loaded.
func (d *DB) RecentRuns(ctx context.Context, limit, offset int) ([]Run, int, error) {
	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, primary_ep, passed, started_at, finished_at FROM runs ORDER BY seq DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, total, nil
}

// RunProbes returns the probe results of a run in the order they were stored.
func (d *DB) RunProbes(ctx context.Context, runID string) ([]Probe, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT endpoint, kind, probe, success, status_code, error_kind, detail, snippet, response_ms, checked_at
		FROM probes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying probes for run %q: %w", runID, err)
	}
	defer rows.Close()

	var probes []Probe
	for rows.Next() {
		var p Probe
		var success int
		var checkedAt string
		if err := rows.Scan(&p.Endpoint, &p.Kind, &p.Probe, &success, &p.StatusCode, &p.ErrorKind, &p.Detail, &p.Snippet, &p.ResponseMs, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning probe row: %w", err)
		}
		p.Success = success == 1
		if p.CheckedAt, err = parseTime(checkedAt); err != nil {
			return nil, err
		}
		probes = append(probes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating probe rows: %w", err)
	}
	return probes, nil
}

// PassRate returns the percentage of successful probes of the given kind in
// the last N stored results for an endpoint.
func (d *DB) PassRate(ctx context.Context, endpoint, probeKind string, last int) (float64, error) {
	var total int
	var passed sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(success)
		FROM (
			SELECT success FROM probes WHERE endpoint = ? AND probe = ? ORDER BY id DESC LIMIT ?
		)
	`, endpoint, probeKind, last).Scan(&total, &passed)
	if err != nil {
		return 0, fmt.Errorf("calculating pass rate for %q: %w", endpoint, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(passed.Int64) / float64(total) * 100, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var passed int
	var startedAt, finishedAt string
	if err := row.Scan(&r.ID, &r.Primary, &passed, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.Passed = passed == 1

	var err error
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
