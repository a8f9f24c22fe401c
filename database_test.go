package kvsql

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal"
	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/executor"
)

func testConfig(t *testing.T, mode string) *internal.Config {
	t.Helper()
	cfg := internal.DefaultConfig()
	cfg.Storage.Mode = mode
	cfg.Storage.Workdir = t.TempDir()
	return cfg
}

func TestOpen_Modes(t *testing.T) {
	for _, mode := range []string{internal.StorageMemory, internal.StorageLog, internal.StorageLevelDB} {
		t.Run(mode, func(t *testing.T) {
			db, err := Open(testConfig(t, mode))
			require.NoError(t, err)
			defer db.Close()

			_, err = db.Execute("CREATE TABLE t (a INT, b TEXT NULL);")
			require.NoError(t, err)
			_, err = db.Execute("INSERT INTO t VALUES (1, 'x'), (2, NULL);")
			require.NoError(t, err)

			rs, err := db.Execute("SELECT * FROM t;")
			require.NoError(t, err)
			assert.Equal(t, executor.ScanResult{
				Columns: []string{"a", "b"},
				Rows: []record.Row{
					{record.Int(1), record.String("x")},
					{record.Int(2), record.Null()},
				},
			}, rs)
		})
	}
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(testConfig(t, "tape"))
	assert.ErrorContains(t, err, `unknown storage mode "tape"`)
}

func TestDB_Reopen(t *testing.T) {
	for _, mode := range []string{internal.StorageLog, internal.StorageLevelDB} {
		t.Run(mode, func(t *testing.T) {
			cfg := testConfig(t, mode)

			db, err := Open(cfg)
			require.NoError(t, err)
			_, err = db.Execute("CREATE TABLE t (a INT);")
			require.NoError(t, err)
			_, err = db.Execute("INSERT INTO t VALUES (1);")
			require.NoError(t, err)

			// Left active by a "crash".
			txn, err := db.Begin()
			require.NoError(t, err)
			require.NoError(t, txn.CreateRow("t", record.Row{record.Int(2)}))
			require.NoError(t, db.Close())

			db, err = Open(cfg)
			require.NoError(t, err)
			defer db.Close()

			rs, err := db.Execute("SELECT * FROM t;")
			require.NoError(t, err)
			assert.Equal(t, []record.Row{{record.Int(1)}}, rs.(executor.ScanResult).Rows)

			st, err := db.Status()
			require.NoError(t, err)
			assert.Zero(t, st.ActiveTxns)
			assert.Equal(t, []string{"t"}, st.Tables)
		})
	}
}

func TestDB_Status(t *testing.T) {
	db, err := Open(testConfig(t, internal.StorageMemory))
	require.NoError(t, err)
	defer db.Close()

	for _, sql := range []string{"CREATE TABLE b (x INT);", "CREATE TABLE a (x INT);"} {
		_, err := db.Execute(sql)
		require.NoError(t, err)
	}

	st, err := db.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, st.Tables)
	assert.Equal(t, "memory", st.Store.Name)
	assert.Zero(t, st.ActiveTxns)
	assert.Positive(t, st.Versions)
}

func TestDB_Closed(t *testing.T) {
	db, err := Open(testConfig(t, internal.StorageMemory))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Execute("CREATE TABLE t (a INT);")
	assert.True(t, errors.Is(err, errs.ErrInternal))
	assert.ErrorContains(t, err, "database is closed")

	_, err = db.Status()
	assert.ErrorIs(t, err, ErrDatabaseClosed)

	// Parse errors are reported before the closed check.
	_, err = db.Execute("nonsense")
	assert.True(t, errors.Is(err, errs.ErrParse))
}
