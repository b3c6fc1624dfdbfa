package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibroadcast/ibsync/internal/catalog"
	"github.com/ibroadcast/ibsync/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func result(path string, outcome sync.Outcome, size int64, err error) sync.FileResult {
	return sync.FileResult{
		File:        catalog.CandidateFile{Path: path, Extension: filepath.Ext(path)},
		Fingerprint: "md5-" + filepath.Base(path),
		Size:        size,
		Outcome:     outcome,
		Err:         err,
	}
}

func TestNewSqliteDB_Memory(t *testing.T) {
	db, err := NewSqliteDB()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t (v) VALUES ('x')")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, 1, n)
}

func TestNewSqliteDB_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "x.db")

	db, err := NewSqliteDB(WithPath(path), WithPragmas("PRAGMA busy_timeout=1000;"))
	require.NoError(t, err)
	defer db.Close()

	assert.DirExists(t, filepath.Dir(path))
}

func TestOpen_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	first, err := Open(path)
	require.NoError(t, err)
	assert.FileExists(t, path+lockSuffix)

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrJournalLocked)

	require.NoError(t, first.Close())
	assert.NoFileExists(t, path+lockSuffix)

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestRecordAndEntries(t *testing.T) {
	j := openTemp(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return base }

	require.NoError(t, j.Record("run-1", result("/m/a.mp3", sync.Uploaded, 100, nil)))
	require.NoError(t, j.Record("run-1", result("/m/b.mp3", sync.Skipped, 50, nil)))
	require.NoError(t, j.Record("run-1", result("/m/c.mp3", sync.Failed, 0, errors.New("rejected"))))
	require.NoError(t, j.Record("run-2", result("/m/d.mp3", sync.Uploaded, 1, nil)))

	entries, err := j.Entries("run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "/m/a.mp3", entries[0].Path)
	assert.Equal(t, "UPLOADED", entries[0].Outcome)
	assert.Equal(t, "md5-a.mp3", entries[0].Fingerprint)
	assert.Equal(t, int64(100), entries[0].Size)
	assert.Empty(t, entries[0].Error)
	assert.True(t, base.Equal(entries[0].RecordedAt))

	assert.Equal(t, "SKIPPED", entries[1].Outcome)
	assert.Equal(t, "FAILED", entries[2].Outcome)
	assert.Equal(t, "rejected", entries[2].Error)

	none, err := j.Entries("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRuns(t *testing.T) {
	j := openTemp(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	require.NoError(t, j.Record("old", result("/m/a.mp3", sync.Uploaded, 10, nil)))
	require.NoError(t, j.Record("old", result("/m/b.mp3", sync.Uploaded, 20, nil)))
	require.NoError(t, j.Record("new", result("/m/a.mp3", sync.Skipped, 10, nil)))
	require.NoError(t, j.Record("new", result("/m/b.mp3", sync.Skipped, 20, nil)))
	require.NoError(t, j.Record("new", result("/m/c.mp3", sync.Failed, 5, errors.New("x"))))

	runs, err := j.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, 0, runs[0].Uploaded)
	assert.Equal(t, 2, runs[0].Skipped)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 3, runs[0].Total())
	assert.Zero(t, runs[0].BytesUploaded)
	assert.Equal(t, 2*time.Second, runs[0].FinishedAt.Sub(runs[0].StartedAt))

	assert.Equal(t, "old", runs[1].RunID)
	assert.Equal(t, 2, runs[1].Uploaded)
	assert.Equal(t, int64(30), runs[1].BytesUploaded)

	limited, err := j.Runs(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].RunID)
}

func TestJournalPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record("run", result("/m/a.mp3", sync.Uploaded, 1, nil)))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Uploaded)
}
