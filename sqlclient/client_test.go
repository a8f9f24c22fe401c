package sqlclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/mvcc"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/engine"
	"github.com/tuannm99/kvsql/internal/sql/executor"
	"github.com/tuannm99/kvsql/internal/storage/memory"
	"github.com/tuannm99/kvsql/server/kvsqlwire"
)

func dialServer(t *testing.T) *Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := kvsqlwire.NewServer(engine.NewKV(mvcc.New(memory.New())))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()

	c, err := Dial(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	c.SetRWTimeout(5 * time.Second)

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-done
	})
	return c
}

func TestClient_Exec(t *testing.T) {
	c := dialServer(t)

	rs, err := c.Exec("CREATE TABLE users (id INT, name TEXT DEFAULT 'anon');")
	require.NoError(t, err)
	assert.Equal(t, executor.CreateTableResult{TableName: "users"}, rs)

	rs, err = c.Exec("INSERT INTO users (id) VALUES (1), (2);")
	require.NoError(t, err)
	assert.Equal(t, executor.InsertResult{Count: 2}, rs)

	rs, err = c.Exec("SELECT * FROM users;")
	require.NoError(t, err)
	assert.Equal(t, executor.ScanResult{
		Columns: []string{"id", "name"},
		Rows: []record.Row{
			{record.Int(1), record.String("anon")},
			{record.Int(2), record.String("anon")},
		},
	}, rs)
}

func TestClient_RemoteErrors(t *testing.T) {
	c := dialServer(t)

	_, err := c.Exec("CREATE TABLE;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrParse))

	var remote *kvsqlwire.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "parse", remote.Kind)

	_, err = c.Exec("INSERT INTO ghosts VALUES (1);")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	// The connection is still usable after statement errors.
	_, err = c.Exec("CREATE TABLE t (a INT);")
	assert.NoError(t, err)
}

func TestClient_ExecContext(t *testing.T) {
	c := dialServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ExecContext(ctx, "CREATE TABLE t (a INT);")
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = c.ExecContext(ctx, "CREATE TABLE t (a INT);")
	assert.NoError(t, err)
}

func TestClient_Nil(t *testing.T) {
	var c *Client
	_, err := c.Exec("SELECT * FROM t;")
	assert.ErrorIs(t, err, ErrNilClient)
	assert.NoError(t, c.Close())
	c.SetRWTimeout(time.Second)
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(addr, time.Second)
	assert.ErrorContains(t, err, "sqlclient: dial")
}
