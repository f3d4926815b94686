package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('operations','source_updates','snapshots')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["operations"])
	assert.True(t, found["source_updates"])
	assert.True(t, found["snapshots"])
}

func TestSQLiteRecordAndQueryOperations(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	recs := []OperationRecord{
		{
			ID: "01A", EventID: "ev-1", Kind: OpDeposit,
			User: "alice", Asset: "TOKN",
			Amount: "100000000000000000000", Value: "100000000",
			BalanceBefore: "0", BalanceAfter: "100000000000000000000",
			Total: "100000000", At: at,
		},
		{
			ID: "01B", EventID: "ev-2", Kind: OpWithdrawal,
			User: "alice", Asset: "TOKN",
			Amount: "40000000000000000000", Value: "40000000",
			BalanceBefore: "100000000000000000000", BalanceAfter: "60000000000000000000",
			Total: "60000000", At: at.Add(time.Minute),
		},
		{
			ID: "01C", EventID: "ev-3", Kind: OpDeposit,
			User: "bob", Asset: "NATIVE",
			Amount: "5", Value: "5",
			BalanceBefore: "0", BalanceAfter: "5",
			Total: "60000005", At: at.Add(2 * time.Minute),
		},
	}
	for _, rec := range recs {
		require.NoError(t, j.RecordOperation(rec))
	}

	got, err := j.GetOperation("01B")
	require.NoError(t, err)
	assert.Equal(t, OpWithdrawal, got.Kind)
	assert.Equal(t, "40000000", got.Value)
	assert.Equal(t, "60000000000000000000", got.BalanceAfter)
	assert.True(t, got.At.Equal(at.Add(time.Minute)))

	_, err = j.GetOperation("nope")
	assert.Error(t, err)

	byUser, err := j.ListOperationsByUser("alice")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "01A", byUser[0].ID)
	assert.Equal(t, "01B", byUser[1].ID)

	window, err := j.ListOperationsBetween(at, at.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "01A", window[0].ID)
}

func TestSQLiteRecordSourceUpdate(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	rec := SourceUpdateRecord{
		ID: "01X", EventID: "ev-9",
		Asset: "TOKN", SourceName: "static:2.00@8", NativeDecimals: 18,
		Caller: "ops", At: time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, j.RecordSourceUpdate(rec))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		asset, sourceName, caller string
		decimals                  uint32
	)
	err = db.QueryRow(`SELECT asset, source_name, native_decimals, caller FROM source_updates LIMIT 1`).
		Scan(&asset, &sourceName, &decimals, &caller)
	require.NoError(t, err)
	assert.Equal(t, "TOKN", asset)
	assert.Equal(t, "static:2.00@8", sourceName)
	assert.Equal(t, uint32(18), decimals)
	assert.Equal(t, "ops", caller)
}

func TestSQLiteSnapshots(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordSnapshot(TotalSnapshot{
			At:    base.Add(time.Duration(i) * time.Hour),
			Total: "600000000",
		}))
	}

	snaps, err := j.ListSnapshotsBetween(base, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
	assert.Equal(t, "600000000", snaps[0].Total)
}
