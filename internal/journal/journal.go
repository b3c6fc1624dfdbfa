// Package journal keeps a local history of sync runs in SQLite: one row per
// candidate file per run. It is write-only from the engine's point of view;
// nothing in it changes what gets uploaded.
package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/ibroadcast/ibsync/internal/sync"
	"github.com/ibroadcast/ibsync/internal/utils"
	"github.com/jmoiron/sqlx"
)

const lockSuffix = ".lock"

var ErrJournalLocked = errors.New("journal locked by another process")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS upload_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_upload_history_run_id ON upload_history(run_id);
CREATE INDEX IF NOT EXISTS idx_upload_history_fingerprint ON upload_history(fingerprint);
`

const runsSQL = `
SELECT
	run_id,
	MIN(recorded_at) AS started_at,
	MAX(recorded_at) AS finished_at,
	SUM(CASE WHEN outcome = 'UPLOADED' THEN 1 ELSE 0 END) AS uploaded,
	SUM(CASE WHEN outcome = 'SKIPPED' THEN 1 ELSE 0 END) AS skipped,
	SUM(CASE WHEN outcome = 'FAILED' THEN 1 ELSE 0 END) AS failed,
	SUM(CASE WHEN outcome = 'UPLOADED' THEN size ELSE 0 END) AS bytes_uploaded
FROM upload_history
GROUP BY run_id
ORDER BY MAX(id) DESC
LIMIT ?
`

// Entry is one recorded file result
type Entry struct {
	ID          int64     `db:"id"`
	RunID       string    `db:"run_id"`
	Path        string    `db:"path"`
	Fingerprint string    `db:"fingerprint"`
	Outcome     string    `db:"outcome"`
	Size        int64     `db:"size"`
	Error       string    `db:"error"`
	RecordedAt  time.Time `db:"-"`

	RecordedAtMs int64 `db:"recorded_at"`
}

// RunSummary aggregates the entries of one run
type RunSummary struct {
	RunID         string    `db:"run_id"`
	StartedAt     time.Time `db:"-"`
	FinishedAt    time.Time `db:"-"`
	Uploaded      int       `db:"uploaded"`
	Skipped       int       `db:"skipped"`
	Failed        int       `db:"failed"`
	BytesUploaded int64     `db:"bytes_uploaded"`

	StartedAtMs  int64 `db:"started_at"`
	FinishedAtMs int64 `db:"finished_at"`
}

func (r RunSummary) Total() int {
	return r.Uploaded + r.Skipped + r.Failed
}

// Journal records sync results. Only one process may hold a journal open.
type Journal struct {
	db   *sqlx.DB
	lock *flock.Flock
	now  func() time.Time
}

var _ sync.Recorder = (*Journal)(nil)

// Open locks and opens the journal at path, creating it if needed
func Open(path string) (*Journal, error) {
	path, err := utils.ResolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}
	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	lock := flock.New(path + lockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return nil, ErrJournalLocked
	}

	db, err := NewSqliteDB(WithPath(path), WithMaxOpenConns(1))
	if err != nil {
		unlock(lock)
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		unlock(lock)
		return nil, fmt.Errorf("initialize journal: %w", err)
	}

	slog.Debug("journal", "path", path)
	return &Journal{db: db, lock: lock, now: time.Now}, nil
}

// Close releases the database and the lock
func (j *Journal) Close() error {
	err := j.db.Close()
	if uerr := unlock(j.lock); uerr != nil {
		err = errors.Join(err, uerr)
	}
	return err
}

func unlock(lock *flock.Flock) error {
	if !lock.Locked() {
		return nil
	}
	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("unlock journal: %w", err)
	}
	if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Record appends one file result to the history of runID
func (j *Journal) Record(runID string, res sync.FileResult) error {
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}

	_, err := j.db.Exec(
		`INSERT INTO upload_history (run_id, path, fingerprint, outcome, size, error, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, res.File.Path, res.Fingerprint, res.Outcome.String(), res.Size, errText, j.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", res.File.Path, err)
	}
	return nil
}

// Runs returns the most recent runs first
func (j *Journal) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	var runs []RunSummary
	if err := j.db.Select(&runs, runsSQL, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for i := range runs {
		runs[i].StartedAt = time.UnixMilli(runs[i].StartedAtMs)
		runs[i].FinishedAt = time.UnixMilli(runs[i].FinishedAtMs)
	}
	return runs, nil
}

// Entries returns the results of one run in the order they were recorded
func (j *Journal) Entries(runID string) ([]Entry, error) {
	var entries []Entry
	err := j.db.Select(&entries,
		`SELECT id, run_id, path, fingerprint, outcome, size, error, recorded_at FROM upload_history WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", runID, err)
	}
	for i := range entries {
		entries[i].RecordedAt = time.UnixMilli(entries[i].RecordedAtMs)
	}
	return entries, nil
}
