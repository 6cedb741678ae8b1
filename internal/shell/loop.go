package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sandevgo/streamsh/pkg/log"
)

// run is the shell's event loop. It executes on its own goroutine between
// Begin and End.
func (s *Shell) run(ctx context.Context, t Transport, done chan struct{}) {
	defer s.exit(done)
	logger := log.FromCtx(ctx)

	buf := newLineBuffer(s.opts.LineMax)
	deadlineWarned := false
	closing := false

	s.prompt(t)

	for !s.stop.Load() {
		line, ok := buf.takeLine()
		if !ok {
			// The transport is gone and no complete line remains.
			if closing {
				return
			}

			// Discard the buffer if overrun.
			if buf.full() {
				io.WriteString(t, "\nshell: Command line too long; discarding\n")
				buf.reset()
				s.prompt(t)
				continue
			}

			// Continue to wait for input. The short deadline keeps the
			// loop responsive to End.
			if err := t.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil && !deadlineWarned {
				logger.Warn().Err(err).Msg("transport does not support read deadlines; stop may be delayed")
				deadlineWarned = true
			}
			n, err := t.Read(buf.free())
			buf.advance(n)
			if err != nil && !isTimeout(err) {
				// io.Reader permits data alongside io.EOF, so dispatch
				// any complete lines already buffered before exiting.
				logger.Debug().Err(err).Msg("transport closed, shell loop draining")
				closing = true
			}
			continue
		}

		// Echo for operator feedback before the line is taken apart.
		fmt.Fprintf(t, "%s\n", line)

		argv, truncated := tokenize(line, s.opts.ArgMax)
		if truncated {
			fmt.Fprintf(t, "Too many arguments; discarding arguments after #%d\n", s.opts.ArgMax-1)
		}
		if len(argv) > 0 {
			s.dispatch(argv, t, logger)
		}

		// Recycle leftover bytes after the newline and prepare for the
		// next command.
		buf.consumeLine()
		s.prompt(t)
	}
}

func (s *Shell) dispatch(argv []string, t Transport, logger *zerolog.Logger) {
	cmd, ok := s.table.Lookup(argv[0])
	if !ok {
		fmt.Fprintf(t, "shell: No such command: %s\n", argv[0])
		return
	}
	// A non-zero status is informational only, never fatal to the loop.
	if status := cmd.Run(argv, t); status != 0 {
		logger.Debug().Str("command", cmd.Name).Int("status", status).Msg("command exited non-zero")
	}
}

func (s *Shell) prompt(t Transport) {
	io.WriteString(t, s.opts.Prompt)
}

// isTimeout reports whether a read failed only because its deadline
// expired, in which case the loop just polls again.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
