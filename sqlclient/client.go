// Package sqlclient is a synchronous client for the kvsqlwire protocol.
package sqlclient

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/tuannm99/kvsql/internal/sql/executor"
	"github.com/tuannm99/kvsql/server/kvsqlwire"
)

var ErrNilClient = errors.New("sqlclient: nil client")

// Client is a simple synchronous client.
// It locks send/recv so Exec can be called concurrently, but requests are
// serialized on the connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	// Optional per-request timeout (0 = no timeout).
	rwTimeout atomic.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	return DialContext(context.Background(), addr, timeout)
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlclient: dial %s", addr)
	}
	return &Client{conn: c}, nil
}

// SetRWTimeout sets a per-Exec read/write deadline.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout.Store(d)
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Exec(sql string) (executor.ResultSet, error) {
	return c.ExecContext(context.Background(), sql)
}

// ExecContext runs one statement. Server-side failures are returned as
// *kvsqlwire.RemoteError, which matches the errs kinds with errors.Is.
func (c *Client) ExecContext(ctx context.Context, sql string) (executor.ResultSet, error) {
	if c == nil || c.conn == nil {
		return nil, ErrNilClient
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqID := c.id.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, errors.Wrap(err, "sqlclient: set deadline")
	}
	// Clear the deadline so an idle connection doesn't expire.
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	req := kvsqlwire.ExecuteRequest{ID: reqID, SQL: sql}
	if err := kvsqlwire.WriteFrame(c.conn, req); err != nil {
		return nil, errors.Wrap(err, "sqlclient: send")
	}

	var resp kvsqlwire.ExecuteResponse
	if err := kvsqlwire.ReadFrame(c.conn, &resp); err != nil {
		return nil, errors.Wrap(err, "sqlclient: receive")
	}

	if resp.ID != reqID {
		return nil, errors.Errorf("sqlclient: response id mismatch: got=%d want=%d", resp.ID, reqID)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, errors.Errorf("sqlclient: response %d has no result", reqID)
	}
	return resp.Result.ResultSet()
}

func (c *Client) applyDeadline(ctx context.Context) error {
	// Prefer the context deadline; otherwise use rwTimeout.
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if d := c.rwTimeout.Load(); d > 0 {
		return c.conn.SetDeadline(time.Now().Add(d))
	}
	return nil
}
