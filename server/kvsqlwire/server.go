// Package kvsqlwire is the TCP protocol of kvsql: length-prefixed JSON frames
// carrying one SQL statement per request.
package kvsqlwire

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"

	"github.com/tuannm99/kvsql/internal/errs"
	"github.com/tuannm99/kvsql/internal/sql/engine"
)

// Stats are the server's lifetime counters.
type Stats struct {
	ActiveConns int64  `json:"active_conns"`
	TotalConns  uint64 `json:"total_conns"`
	Requests    uint64 `json:"requests"`
}

// Server serves SQL over TCP. Each connection gets its own session; every
// request runs in its own transaction.
type Server struct {
	engine engine.Engine

	active   atomic.Int64
	total    atomic.Uint64
	requests atomic.Uint64

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(e engine.Engine) *Server {
	return &Server{engine: e, conns: make(map[net.Conn]struct{})}
}

func (s *Server) Stats() Stats {
	return Stats{
		ActiveConns: s.active.Load(),
		TotalConns:  s.total.Load(),
		Requests:    s.requests.Load(),
	}
}

// Serve accepts connections on ln until ctx is done or ln is closed, then
// closes open connections and waits for their handlers. It returns nil on
// shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg conc.WaitGroup
	defer func() {
		s.closeConns()
		wg.Wait()
	}()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	slog.Info("kvsqlwire: listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				slog.Info("kvsqlwire: shutting down", "active", s.active.Load())
				return nil
			}
			slog.Warn("kvsqlwire: accept", "err", err)
			continue
		}
		s.track(conn)
		wg.Go(func() { s.handleConn(conn) })
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.active.Inc()
	s.total.Inc()
	connGauge.Inc()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.active.Dec()
	connGauge.Dec()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()

	remote := conn.RemoteAddr().String()
	slog.Info("kvsqlwire: connection opened", "remote", remote)
	session := engine.NewSession(s.engine)

	for {
		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				slog.Info("kvsqlwire: connection closed", "remote", remote)
			} else {
				slog.Warn("kvsqlwire: read request", "remote", remote, "err", err)
			}
			return
		}

		resp := s.execute(session, req)
		if err := WriteFrame(conn, resp); err != nil {
			slog.Warn("kvsqlwire: write response", "remote", remote, "id", req.ID, "err", err)
			return
		}
	}
}

func (s *Server) execute(session *engine.Session, req ExecuteRequest) ExecuteResponse {
	s.requests.Inc()

	rs, err := session.Execute(req.SQL)
	if err == nil {
		var payload *ResultPayload
		if payload, err = NewResultPayload(rs); err == nil {
			requestCounter.WithLabelValues("ok").Inc()
			return ExecuteResponse{ID: req.ID, Result: payload}
		}
	}

	kind := errs.KindName(err)
	if kind == "" {
		kind = "internal"
	}
	requestCounter.WithLabelValues(kind).Inc()
	slog.Debug("kvsqlwire: statement failed", "id", req.ID, "kind", kind, "err", err)
	return ExecuteResponse{ID: req.ID, Error: err.Error(), Kind: kind}
}
