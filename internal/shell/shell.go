// Package shell implements an interactive command interpreter over a
// serial-like byte stream, useful for debugging.
//
// The shell mimics the command-line interfaces shipped with desktops and
// servers: a command is a sentence, each word separated by a space, and the
// first word names the command to run. Parsing is deliberately simple —
// there is no quoting, no history and the entire command has to be on a
// single line.
package shell

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultLineMax is the line buffer capacity in bytes.
	DefaultLineMax = 2048
	// DefaultArgMax is the maximum number of tokens per command line.
	DefaultArgMax = 32
	// DefaultPrompt is printed at startup and after each completed command.
	DefaultPrompt = "shell> "
	// DefaultReadTimeout bounds each transport read so the loop observes
	// stop requests promptly.
	DefaultReadTimeout = 20 * time.Millisecond
)

// Options tune a Shell. Zero values fall back to the defaults above.
type Options struct {
	LineMax     int
	ArgMax      int
	Prompt      string
	ReadTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.LineMax <= 0 {
		o.LineMax = DefaultLineMax
	}
	if o.ArgMax <= 0 {
		o.ArgMax = DefaultArgMax
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	return o
}

// Shell owns one read/tokenize/dispatch loop and its lifecycle.
//
// Begin spawns the loop as a goroutine exactly once; End requests stop and
// blocks until the loop has fully exited. The two stop/handle fields are the
// only state shared between the controlling caller and the loop goroutine:
// the line buffer and token slots are private to the loop, and the command
// table is read-only after construction.
type Shell struct {
	table *Table
	opts  Options

	stop atomic.Bool

	mu   sync.Mutex
	done chan struct{} // non-nil while the loop goroutine is live
}

// New creates a shell accepting the given command table. See Table for the
// sortedness precondition.
func New(table *Table, opts Options) *Shell {
	return &Shell{table: table, opts: opts.withDefaults()}
}

// Begin starts the shell listening on t and returns immediately. If the
// shell is already running the call is a no-op; call End first to change
// transports. The context carries the logger and is not used for
// cancellation — stopping goes through End.
func (s *Shell) Begin(ctx context.Context, t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.stop.Store(false)
	done := make(chan struct{})
	s.done = done
	go s.run(ctx, t, done)
}

// End stops accepting commands. It returns only after the loop goroutine
// has fully terminated; if the shell is idle it returns immediately. The
// transport read deadline bounds how long the loop takes to notice the
// request.
func (s *Shell) End() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	s.stop.Store(true)
	<-done
}

// Wait blocks until the loop exits on its own (transport closed) or via
// End. It returns immediately when the shell is idle.
func (s *Shell) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

// Running reports whether the loop goroutine is live.
func (s *Shell) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Close stops the shell. It implements io.Closer so a shell can be handed
// to cleanup helpers; the error is always nil.
func (s *Shell) Close() error {
	s.End()
	return nil
}

// exit restores the idle state. Runs on the loop goroutine, last.
func (s *Shell) exit(done chan struct{}) {
	s.mu.Lock()
	if s.done == done {
		s.done = nil
	}
	s.stop.Store(false)
	s.mu.Unlock()
	close(done)
}
