package kvsqlwire

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/kvsql/internal/mvcc"
	"github.com/tuannm99/kvsql/internal/record"
	"github.com/tuannm99/kvsql/internal/sql/engine"
	"github.com/tuannm99/kvsql/internal/storage/memory"
)

// startServer serves a fresh in-memory engine. stop cancels Serve and
// returns its result; it is safe to call more than once.
func startServer(t *testing.T) (srv *Server, addr string, stop func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv = NewServer(engine.NewKV(mvcc.New(memory.New())))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	stop = sync.OnceValue(func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("Serve did not return after cancel")
		}
	})
	t.Cleanup(func() { _ = stop() })
	return srv, ln.Addr().String(), stop
}

func roundTrip(t *testing.T, conn net.Conn, id uint64, sql string) ExecuteResponse {
	t.Helper()
	require.NoError(t, WriteFrame(conn, ExecuteRequest{ID: id, SQL: sql}))
	var resp ExecuteResponse
	require.NoError(t, ReadFrame(conn, &resp))
	require.Equal(t, id, resp.ID)
	return resp
}

func TestServer_Execute(t *testing.T) {
	srv, addr, _ := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	resp := roundTrip(t, conn, 1, "CREATE TABLE t (a INT, b TEXT NULL);")
	require.NoError(t, resp.Err())
	assert.Equal(t, &ResultPayload{Type: ResultCreateTable, TableName: "t"}, resp.Result)

	resp = roundTrip(t, conn, 2, "INSERT INTO t VALUES (1, 'x'), (2, NULL);")
	require.NoError(t, resp.Err())
	assert.Equal(t, 2, resp.Result.Count)

	resp = roundTrip(t, conn, 3, "SELECT * FROM t;")
	require.NoError(t, resp.Err())
	assert.Equal(t, []string{"a", "b"}, resp.Result.Columns)
	assert.Equal(t, []record.Row{
		{record.Int(1), record.String("x")},
		{record.Int(2), record.Null()},
	}, resp.Result.Rows)

	resp = roundTrip(t, conn, 4, "SELECT FROM;")
	assert.Equal(t, "parse", resp.Kind)
	assert.Nil(t, resp.Result)

	resp = roundTrip(t, conn, 5, "SELECT * FROM missing;")
	assert.Equal(t, "not_found", resp.Kind)
	assert.Contains(t, resp.Error, "table missing does not exist")

	st := srv.Stats()
	assert.Equal(t, uint64(5), st.Requests)
	assert.Equal(t, uint64(1), st.TotalConns)
}

func TestServer_SharedState(t *testing.T) {
	_, addr, _ := startServer(t)

	a, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer a.Close()
	b, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer b.Close()

	created := roundTrip(t, a, 1, "CREATE TABLE t (a INT);")
	require.NoError(t, created.Err())
	inserted := roundTrip(t, a, 2, "INSERT INTO t VALUES (42);")
	require.NoError(t, inserted.Err())

	resp := roundTrip(t, b, 1, "SELECT * FROM t;")
	require.NoError(t, resp.Err())
	assert.Equal(t, []record.Row{{record.Int(42)}}, resp.Result.Rows)
}

func TestServer_Shutdown(t *testing.T) {
	srv, addr, stop := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	created := roundTrip(t, conn, 1, "CREATE TABLE t (a INT);")
	require.NoError(t, created.Err())

	require.NoError(t, stop())

	var resp ExecuteResponse
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	assert.Error(t, ReadFrame(conn, &resp), "connection is closed by the server")
	assert.Zero(t, srv.Stats().ActiveConns)
}

func TestServer_BadFrameClosesConnection(t *testing.T) {
	_, addr, _ := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0, 0, 0, 0})
	require.NoError(t, err)

	var resp ExecuteResponse
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	assert.Error(t, ReadFrame(conn, &resp))
}
