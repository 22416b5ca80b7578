// Package runlog is the job-run ledger: one SQLite table recording the
// outcome of every scheduled coverage run, kept for operator visibility.
package runlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"satcoverage/internal/logger"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection holding the job_runs ledger.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the ledger database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("runlog: open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("runlog: ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("runlog: migrate db: %w", err)
	}
	logger.Success("runlog", fmt.Sprintf("opened %s", path))
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS job_runs (
				run_id            TEXT PRIMARY KEY,
				job_name          TEXT NOT NULL,
				started_at        TEXT NOT NULL,
				finished_at       TEXT,
				strategy          TEXT NOT NULL,
				solver_type       TEXT,
				num_candidates    INTEGER NOT NULL DEFAULT 0,
				num_selected      INTEGER NOT NULL DEFAULT 0,
				coverage_fraction REAL,
				success           INTEGER NOT NULL DEFAULT 0,
				message           TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_job_runs_job_name ON job_runs(job_name);
			CREATE INDEX IF NOT EXISTS idx_job_runs_started_at ON job_runs(started_at);

			INSERT INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return err
		}
	}
	return nil
}

// Run is one recorded job execution.
type Run struct {
	RunID            string
	JobName          string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Strategy         string
	SolverType       string
	NumCandidates    int
	NumSelected      int
	CoverageFraction *float64
	Success          bool
	Message          string
}

// Start inserts a new in-progress run row and returns its ID.
func (d *DB) Start(jobName, strategy string) (string, error) {
	id := uuid.NewString()
	_, err := d.sql.Exec(
		`INSERT INTO job_runs (run_id, job_name, started_at, strategy) VALUES (?, ?, ?, ?)`,
		id, jobName, time.Now().UTC().Format(time.RFC3339), strategy,
	)
	if err != nil {
		return "", fmt.Errorf("runlog: start run: %w", err)
	}
	return id, nil
}

// Finish records the terminal state of a run.
func (d *DB) Finish(runID string, r Run) error {
	_, err := d.sql.Exec(
		`UPDATE job_runs SET finished_at = ?, solver_type = ?, num_candidates = ?,
		 num_selected = ?, coverage_fraction = ?, success = ?, message = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), r.SolverType, r.NumCandidates,
		r.NumSelected, r.CoverageFraction, boolToInt(r.Success), r.Message, runID,
	)
	if err != nil {
		return fmt.Errorf("runlog: finish run %s: %w", runID, err)
	}
	return nil
}

// RecentByJob returns up to limit most recent runs for a job, newest first.
func (d *DB) RecentByJob(jobName string, limit int) ([]Run, error) {
	rows, err := d.sql.Query(
		`SELECT run_id, job_name, started_at, finished_at, strategy, solver_type,
		 num_candidates, num_selected, coverage_fraction, success, message
		 FROM job_runs WHERE job_name = ? ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		jobName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("runlog: query runs for %s: %w", jobName, err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			started    string
			finished   sql.NullString
			solverType sql.NullString
			coverage   sql.NullFloat64
			success    int
			message    sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.JobName, &started, &finished, &r.Strategy, &solverType,
			&r.NumCandidates, &r.NumSelected, &coverage, &success, &message); err != nil {
			return nil, fmt.Errorf("runlog: scan run row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished.Valid {
			t, _ := time.Parse(time.RFC3339, finished.String)
			r.FinishedAt = &t
		}
		r.SolverType = solverType.String
		if coverage.Valid {
			v := coverage.Float64
			r.CoverageFraction = &v
		}
		r.Success = success != 0
		r.Message = message.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
