// Package tcpsh serves the shell over TCP connections. Every accepted
// connection gets its own shell instance, so line buffers and token state
// are never shared between clients.
package tcpsh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sandevgo/streamsh/internal/config"
	"github.com/sandevgo/streamsh/internal/shell"
	"github.com/sandevgo/streamsh/pkg/log"
	"github.com/sandevgo/streamsh/pkg/retry"
)

type Server struct {
	cfg   *config.AppConfig
	table *shell.Table

	retrier *retry.Retrier
	closed  atomic.Bool
	wg      sync.WaitGroup

	mu     sync.Mutex
	ln     net.Listener
	shells map[net.Conn]*shell.Shell
}

func NewServer(cfg *config.AppConfig, table *shell.Table) *Server {
	return &Server{
		cfg:     cfg,
		table:   table,
		retrier: retry.NewDefaultRetrier(),
		shells:  make(map[net.Conn]*shell.Shell),
	}
}

// Start listens on the configured address and accepts connections until
// Shutdown closes the listener. It blocks for the server's lifetime.
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	logger.Info().Str("addr", ln.Addr().String()).Msg("shell listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// Transient accept failure (fd exhaustion and the like):
			// back off before giving up on the listener.
			logger.Warn().Err(err).Msg("accept failed, retrying")
			err = s.retrier.Do(ctx, func() error {
				var rerr error
				conn, rerr = ln.Accept()
				if rerr != nil && errors.Is(rerr, net.ErrClosed) {
					// Listener closed mid-retry; backing off is pointless.
					return retry.Permanent(rerr)
				}
				return rerr
			})
			if err != nil {
				if s.closed.Load() || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.serve(ctx, conn)
	}
}

// serve attaches a fresh shell to conn. The shell loop owns the connection
// until the client disconnects or the server shuts down.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	logger := log.FromCtx(ctx)
	logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	sh := shell.New(s.table, shell.Options{
		LineMax:     s.cfg.LineMax,
		ArgMax:      s.cfg.ArgMax,
		Prompt:      s.cfg.Prompt,
		ReadTimeout: s.cfg.ReadTimeout(),
	})

	// Register, count and start under one critical section so a concurrent
	// Shutdown either sees this shell (and stops it) or this path sees
	// closed (and drops the connection). A shell started after Shutdown's
	// snapshot would outlive Shutdown otherwise.
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.shells[conn] = sh
	s.wg.Add(1)
	sh.Begin(ctx, conn)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		sh.Wait()
		conn.Close()

		s.mu.Lock()
		delete(s.shells, conn)
		s.mu.Unlock()
		logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("client disconnected")
	}()
}

// Addr returns the listener's address, or nil before Start has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown closes the listener, stops every connected shell and waits for
// their loops to terminate.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.mu.Lock()
	ln := s.ln
	shells := make([]*shell.Shell, 0, len(s.shells))
	for _, sh := range s.shells {
		shells = append(shells, sh)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, sh := range shells {
		sh.End()
	}
	s.wg.Wait()
	return nil
}
