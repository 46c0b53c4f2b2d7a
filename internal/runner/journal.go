package runner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// Entry is one journaled run: everything needed to reproduce the
// external invocation without the log file.
type Entry struct {
	RunID   int64
	Command string
	// Args is the space-joined argument vector, matching the "started"
	// log line.
	Args string
	// ExitCode is nil when no exit code was observed (spawn failure,
	// wait failure).
	ExitCode *int64
	// Failure is the run error string, empty for successful runs and
	// for allowed failures.
	Failure    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Journal persists one row per run into a SQLite database next to the
// cluster log. It is an optional complement to the log sink: the log is
// the authoritative chronological record, the journal is the queryable
// one.
type Journal struct {
	path string
	db   *sql.DB
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      INTEGER NOT NULL,
	command     TEXT    NOT NULL,
	args        TEXT    NOT NULL,
	exit_code   INTEGER,
	failure     TEXT    NOT NULL DEFAULT '',
	started_at  TEXT    NOT NULL,
	finished_at TEXT    NOT NULL
);
`

// OpenJournal opens (creating if absent) the run journal at path.
func OpenJournal(ctx context.Context, path string) (*Journal, error) {
	// WAL with a busy timeout: the journal may be read (e.g. by a test
	// harness) while runs are being recorded. NORMAL synchronous is
	// enough for ephemeral test data.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run journal %s: %w", path, err)
	}
	// Short-lived single sessions, not a pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, journalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init run journal %s: %w", path, err)
	}
	return &Journal{path: path, db: db}, nil
}

// Record appends one run to the journal.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	var exitCode sql.NullInt64
	if e.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: *e.ExitCode, Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, command, args, exit_code, failure, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Command, e.Args, exitCode, e.Failure,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run %d in %s: %w", e.RunID, j.path, err)
	}
	return nil
}

// Runs returns all journaled runs in run-id order.
func (j *Journal) Runs(ctx context.Context) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, command, args, exit_code, failure, started_at, finished_at
		 FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query run journal %s: %w", j.path, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			exitCode   sql.NullInt64
			startedAt  string
			finishedAt string
		)
		if err := rows.Scan(&e.RunID, &e.Command, &e.Args, &exitCode, &e.Failure, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run journal %s: %w", j.path, err)
		}
		if exitCode.Valid {
			c := exitCode.Int64
			e.ExitCode = &c
		}
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at in %s: %w", j.path, err)
		}
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at in %s: %w", j.path, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run journal %s: %w", j.path, err)
	}
	return out, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close run journal %s: %w", j.path, err)
	}
	return nil
}
