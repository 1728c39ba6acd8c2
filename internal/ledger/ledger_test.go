package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleRun(id string) Run {
	return Run{
		RunID:             id,
		TargetPath:        "vault.kdbx",
		TargetFingerprint: "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc",
		Status:            "exhausted",
		Attempts:          42,
		StartedAt:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:        time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestRecordRun_Roundtrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	run := sampleRun("run-1")
	run.Status = "succeeded"
	run.WinnerIdentity = "abc123"
	run.WinnerDesc = "passphrase=*** keyfile=backup.key"
	require.NoError(t, l.RecordRun(ctx, run))

	runs, err := l.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0])
}

func TestRecordRun_Idempotent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	run := sampleRun("run-1")
	require.NoError(t, l.RecordRun(ctx, run))

	// Same run ID again, even with different fields: the first record
	// wins and no duplicate row appears.
	dup := run
	dup.Attempts = 999
	require.NoError(t, l.RecordRun(ctx, dup))

	runs, err := l.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 42, runs[0].Attempts)
}

func TestListRuns_MostRecentFirst(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	older := sampleRun("run-old")
	newer := sampleRun("run-new")
	newer.FinishedAt = older.FinishedAt.Add(time.Hour)
	require.NoError(t, l.RecordRun(ctx, older))
	require.NoError(t, l.RecordRun(ctx, newer))

	runs, err := l.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, "run-old", runs[1].RunID)
}

func TestListRuns_Empty(t *testing.T) {
	l := openTestLedger(t)

	runs, err := l.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.RecordRun(ctx, sampleRun("run-1")))
	require.NoError(t, l.Close())

	// Reopening applies the schema idempotently and sees prior rows.
	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	runs, err := l2.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
