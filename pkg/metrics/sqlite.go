package metrics

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// SQLiteSink persists metrics to a local SQLite database, one row per
// observation, tagged with the run identifier so several runs can share a
// database file.
type SQLiteSink struct {
	db    *sql.DB
	runID string
}

const metricsSchema = `
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	key TEXT NOT NULL,
	step INTEGER NOT NULL,
	value REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_run_key ON metrics(run_id, key);
`

// NewSQLiteSink opens (creating if needed) the metrics database at path.
func NewSQLiteSink(path, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "open metrics database")
	}

	// Single writer per run; WAL keeps concurrent readers cheap.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageFailed, "enable WAL mode")
	}
	if _, err := db.Exec(metricsSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageFailed, "initialize metrics schema")
	}

	return &SQLiteSink{db: db, runID: runID}, nil
}

// Log inserts one observation row.
func (s *SQLiteSink) Log(ctx context.Context, key string, step int, value float64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metrics (run_id, key, step, value, created_at) VALUES (?, ?, ?, ?, ?)",
		s.runID, key, step, value, time.Now().UTC(),
	)
	return errors.Wrap(err, errors.StorageFailed, "insert metric")
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// RunID returns the identifier rows are tagged with.
func (s *SQLiteSink) RunID() string {
	return s.runID
}
