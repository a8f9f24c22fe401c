package engine

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/mvcc"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/executor"
	"github.com/tuannm99/kvsql/internal/storage/memory"
)

func newSession(t *testing.T) (*Session, *KV) {
	t.Helper()
	kv := NewKV(mvcc.New(memory.New()))
	return NewSession(kv), kv
}

func mustExecute(t *testing.T, s *Session, sql string) executor.ResultSet {
	t.Helper()
	rs, err := s.Execute(sql)
	require.NoError(t, err, sql)
	return rs
}

func scanRows(t *testing.T, s *Session, table string) []record.Row {
	t.Helper()
	rs := mustExecute(t, s, "SELECT * FROM "+table+";")
	scan, ok := rs.(executor.ScanResult)
	require.True(t, ok, "want ScanResult, got %T", rs)
	return scan.Rows
}

func TestSession_RoundTrip(t *testing.T) {
	s, _ := newSession(t)

	rs := mustExecute(t, s, "CREATE TABLE t (a INT, b TEXT DEFAULT 'd', c FLOAT NULL, d BOOLEAN DEFAULT TRUE);")
	assert.Equal(t, executor.CreateTableResult{TableName: "t"}, rs)

	rs = mustExecute(t, s, "INSERT INTO t VALUES (1, 'one', 1.5, FALSE);")
	assert.Equal(t, executor.InsertResult{Count: 1}, rs)

	rs = mustExecute(t, s, "SELECT * FROM t;")
	assert.Equal(t, executor.ScanResult{
		Columns: []string{"a", "b", "c", "d"},
		Rows:    []record.Row{{record.Int(1), record.String("one"), record.Float(1.5), record.Bool(false)}},
	}, rs)
}

func TestSession_ColumnReordering(t *testing.T) {
	s, _ := newSession(t)
	mustExecute(t, s, "CREATE TABLE t (a INT, b TEXT, c BOOL);")
	mustExecute(t, s, "INSERT INTO t (c, a, b) VALUES (TRUE, 1, 'x');")

	assert.Equal(t, []record.Row{
		{record.Int(1), record.String("x"), record.Bool(true)},
	}, scanRows(t, s, "t"))
}

func TestSession_DefaultFill(t *testing.T) {
	s, _ := newSession(t)
	mustExecute(t, s, "CREATE TABLE t (a INT, b TEXT DEFAULT 'd', c FLOAT NULL);")
	mustExecute(t, s, "INSERT INTO t VALUES (1);")
	mustExecute(t, s, "INSERT INTO t (a) VALUES (2);")

	assert.Equal(t, []record.Row{
		{record.Int(1), record.String("d"), record.Null()},
		{record.Int(2), record.String("d"), record.Null()},
	}, scanRows(t, s, "t"))
}

func TestSession_MissingDefaultFails(t *testing.T) {
	s, _ := newSession(t)
	mustExecute(t, s, "CREATE TABLE t (a INT, b TEXT);")

	_, err := s.Execute("INSERT INTO t VALUES (1);")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInternal))

	_, err = s.Execute("INSERT INTO t (a) VALUES (1);")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value given for column b")

	assert.Empty(t, scanRows(t, s, "t"))
}

func TestSession_FailedStatementLeavesNoRows(t *testing.T) {
	s, kv := newSession(t)
	mustExecute(t, s, "CREATE TABLE t (a INT NOT NULL);")

	// The second tuple fails after the first was written.
	_, err := s.Execute("INSERT INTO t VALUES (1), (NULL), (3);")
	require.Error(t, err)
	assert.Empty(t, scanRows(t, s, "t"))

	st, err := kv.mvcc.Status()
	require.NoError(t, err)
	assert.Zero(t, st.ActiveTxns)
}

func TestSession_ErrorsBeforeBegin(t *testing.T) {
	s, kv := newSession(t)

	_, err := s.Execute("SELEKT * FROM t;")
	assert.True(t, errors.Is(err, errs.ErrParse))

	st, err := kv.mvcc.Status()
	require.NoError(t, err)
	assert.Zero(t, st.Versions, "parse errors must not begin a transaction")
}

func TestSession_UnknownTable(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.Execute("SELECT * FROM nope;")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	_, err = s.Execute("INSERT INTO nope VALUES (1);")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestSession_DuplicateTable(t *testing.T) {
	s, _ := newSession(t)
	mustExecute(t, s, "CREATE TABLE t (a INT);")

	_, err := s.Execute("CREATE TABLE t (b INT);")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInternal))
	assert.Contains(t, err.Error(), "table t already exists")
}

func TestSession_ConcurrentInserts(t *testing.T) {
	s, _ := newSession(t)
	mustExecute(t, s, "CREATE TABLE t (a INT);")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.Execute("INSERT INTO t VALUES (1), (2);")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, scanRows(t, s, "t"), 8*10*2)
}

// ---- rollback failure ----

type failingEngine struct {
	Engine
	rollbackErr error
}

func (f failingEngine) Begin() (Transaction, error) {
	txn, err := f.Engine.Begin()
	if err != nil {
		return nil, err
	}
	return failingRollback{Transaction: txn, err: f.rollbackErr}, nil
}

type failingRollback struct {
	Transaction
	err error
}

func (f failingRollback) Rollback() error { return f.err }

func TestSession_RollbackFailureIsReported(t *testing.T) {
	kv := NewKV(mvcc.New(memory.New()))
	s := NewSession(failingEngine{Engine: kv, rollbackErr: errors.New("disk gone")})

	_, err := s.Execute("SELECT * FROM missing;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound), "cause kind is kept")
	assert.Contains(t, err.Error(), "disk gone")
}
