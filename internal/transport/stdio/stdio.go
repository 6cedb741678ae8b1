// Package stdio runs the shell over the process's own stdin and stdout,
// for a local interactive session.
package stdio

import (
	"context"
	"os"
	"time"

	"github.com/sandevgo/streamsh/internal/config"
	"github.com/sandevgo/streamsh/internal/shell"
	"github.com/sandevgo/streamsh/pkg/log"
)

// Transport adapts a pair of files to shell.Transport. Deadlines work when
// the input file is pollable (terminals and pipes); otherwise the shell
// logs a warning and stop requests take effect on the next read.
type Transport struct {
	in  *os.File
	out *os.File
}

func NewTransport(in, out *os.File) *Transport {
	return &Transport{in: in, out: out}
}

func (t *Transport) Read(p []byte) (int, error) {
	return t.in.Read(p)
}

func (t *Transport) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

func (t *Transport) SetReadDeadline(d time.Time) error {
	return t.in.SetReadDeadline(d)
}

// Service runs one shell over stdio under the srv lifecycle.
type Service struct {
	sh *shell.Shell
	t  *Transport
}

func NewService(cfg *config.AppConfig, table *shell.Table) *Service {
	return &Service{
		sh: shell.New(table, shell.Options{
			LineMax:     cfg.LineMax,
			ArgMax:      cfg.ArgMax,
			Prompt:      cfg.Prompt,
			ReadTimeout: cfg.ReadTimeout(),
		}),
		t: NewTransport(os.Stdin, os.Stdout),
	}
}

// Start blocks until stdin is closed or Shutdown stops the shell.
func (s *Service) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("shell attached to stdio")
	s.sh.Begin(ctx, s.t)
	s.sh.Wait()
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.sh.End()
	return nil
}
