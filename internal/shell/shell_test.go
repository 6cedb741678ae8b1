package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptTransport is an in-memory Transport. Reads drain the scripted
// input; an empty input behaves like a serial port with nothing to say and
// reports a deadline timeout.
type scriptTransport struct {
	mu  sync.Mutex
	in  bytes.Buffer
	out bytes.Buffer
	eof bool
}

func (p *scriptTransport) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.in.Len() > 0 {
		n, _ := p.in.Read(b)
		p.mu.Unlock()
		return n, nil
	}
	eof := p.eof
	p.mu.Unlock()
	if eof {
		return 0, io.EOF
	}
	time.Sleep(time.Millisecond)
	return 0, os.ErrDeadlineExceeded
}

func (p *scriptTransport) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *scriptTransport) SetReadDeadline(time.Time) error { return nil }

func (p *scriptTransport) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in.WriteString(s)
}

func (p *scriptTransport) closeInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eof = true
}

func (p *scriptTransport) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

// eofTransport delivers its whole payload together with io.EOF from a
// single Read, the way a connection that sends a command and closes in one
// segment looks to the loop.
type eofTransport struct {
	scriptTransport
	payload string
	served  bool
}

func (p *eofTransport) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.served {
		return 0, io.EOF
	}
	p.served = true
	return copy(b, p.payload), io.EOF
}

// recorder captures handler invocations.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) handler(argv []string, rw io.ReadWriter) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, argv)
	return 0
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func waitForOutput(t *testing.T, tr *scriptTransport, substr string) {
	t.Helper()
	waitFor(t, func() bool {
		return strings.Contains(tr.output(), substr)
	}, fmt.Sprintf("output to contain %q", substr))
}

func TestShellDispatchesCommand(t *testing.T) {
	var h1, h2 recorder
	table := NewTable([]Command{
		{Name: "echo", Run: h1.handler},
		{Name: "help", Run: h2.handler},
	})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed("help\n")
	waitFor(t, func() bool { return h2.count() == 1 }, "help to be dispatched")

	assert.Equal(t, []string{"help"}, h2.last())
	assert.Zero(t, h1.count(), "echo handler must not run")
}

func TestShellUnknownCommand(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "help", Run: h.handler}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed("foo\n")
	waitForOutput(t, tr, "shell: No such command: foo\n")

	// Never fatal: the loop keeps accepting commands.
	tr.feed("help\n")
	waitFor(t, func() bool { return h.count() == 1 }, "loop to continue after unknown command")
}

func TestShellEchoesLineBeforeHandlerOutput(t *testing.T) {
	table := NewTable([]Command{{
		Name: "greet",
		Run: func(argv []string, rw io.ReadWriter) int {
			io.WriteString(rw, "hello\n")
			return 0
		},
	}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed("greet op\n")
	waitForOutput(t, tr, "hello\n")

	out := tr.output()
	echoAt := strings.Index(out, "greet op\n")
	helloAt := strings.Index(out, "hello\n")
	require.GreaterOrEqual(t, echoAt, 0)
	assert.Less(t, echoAt, helloAt, "line echo must precede handler output")
}

func TestShellEmptyLineIsNoOp(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "help", Run: h.handler}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed("\n")
	// A fresh prompt follows the no-op command.
	waitFor(t, func() bool {
		return strings.Count(tr.output(), DefaultPrompt) >= 2
	}, "prompt after empty line")

	assert.NotContains(t, tr.output(), "No such command")
	assert.Zero(t, h.count())
}

func TestShellOverflowDiscardsAndRecovers(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "help", Run: h.handler}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	// More than the buffer holds, no newline anywhere.
	tr.feed(strings.Repeat("a", DefaultLineMax+100))
	waitForOutput(t, tr, "shell: Command line too long; discarding\n")
	assert.Zero(t, h.count(), "no dispatch may occur on overflow")

	// Accumulation restarts from empty.
	tr.feed("\nhelp\n")
	waitFor(t, func() bool { return h.count() == 1 }, "dispatch after overflow recovery")
}

func TestShellOverflowAtExactCapacity(t *testing.T) {
	table := NewTable([]Command{{Name: "help", Run: nop}})

	tr := &scriptTransport{}
	sh := New(table, Options{LineMax: 16})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed(strings.Repeat("x", 16))
	waitForOutput(t, tr, "shell: Command line too long; discarding\n")
}

func TestShellTooManyArguments(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "many", Run: h.handler}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	line := "many" + strings.Repeat(" w", 39)
	tr.feed(line + "\n")
	waitForOutput(t, tr, "Too many arguments; discarding arguments after #31\n")

	// Dispatch still occurs on the first 32 tokens.
	waitFor(t, func() bool { return h.count() == 1 }, "truncated dispatch")
	assert.Len(t, h.last(), 32)
	assert.Equal(t, "many", h.last()[0])
}

// Truncation discards the rest of the line but not the bytes after its
// newline, which already belong to the next command.
func TestShellTruncationPreservesNextLine(t *testing.T) {
	var many, ping recorder
	table := NewTable([]Command{
		{Name: "many", Run: many.handler},
		{Name: "ping", Run: ping.handler},
	})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	burst := "many" + strings.Repeat(" w", 39) + "\nping\n"
	tr.feed(burst)

	waitFor(t, func() bool { return ping.count() == 1 }, "next line to survive truncation")
	assert.Equal(t, 1, many.count())
	assert.Equal(t, []string{"ping"}, ping.last())
}

func TestShellBeginIsIdempotent(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "help", Run: h.handler}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	// A second Begin while running must not spawn a second loop.
	sh.Begin(context.Background(), tr)

	tr.feed("help\n")
	waitFor(t, func() bool { return h.count() == 1 }, "dispatch")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.count(), "command dispatched by more than one loop")
}

func TestShellEndReturns(t *testing.T) {
	table := NewTable([]Command{{Name: "help", Run: nop}})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)

	finished := make(chan struct{})
	go func() {
		sh.End()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("End did not return")
	}
	assert.False(t, sh.Running())
}

func TestShellEndOnIdleShellIsNoOp(t *testing.T) {
	sh := New(NewTable(nil), Options{})
	sh.End() // must not block or panic
	assert.False(t, sh.Running())
}

func TestShellRestartsAfterEnd(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "help", Run: h.handler}})

	tr := &scriptTransport{}
	sh := New(table, Options{})

	sh.Begin(context.Background(), tr)
	sh.End()
	require.False(t, sh.Running())

	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed("help\n")
	waitFor(t, func() bool { return h.count() == 1 }, "dispatch after restart")
}

func TestShellExitsWhenTransportCloses(t *testing.T) {
	sh := New(NewTable(nil), Options{})
	tr := &scriptTransport{}

	sh.Begin(context.Background(), tr)
	tr.closeInput()

	finished := make(chan struct{})
	go func() {
		sh.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on transport EOF")
	}
	assert.False(t, sh.Running())
}

// Complete lines that arrive in the same Read as the terminal error must
// still be dispatched before the loop exits.
func TestShellDispatchesLinesDeliveredWithEOF(t *testing.T) {
	var h recorder
	table := NewTable([]Command{{Name: "help", Run: h.handler}})

	tr := &eofTransport{payload: "help\nhelp\n"}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)

	waitFor(t, func() bool { return h.count() == 2 }, "lines delivered with EOF to be dispatched")

	finished := make(chan struct{})
	go func() {
		sh.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after draining")
	}
	assert.False(t, sh.Running())
}

func TestShellPromptsAtStartupAndAfterCommands(t *testing.T) {
	table := NewTable([]Command{{Name: "help", Run: nop}})

	tr := &scriptTransport{}
	sh := New(table, Options{Prompt: "dbg> "})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	waitForOutput(t, tr, "dbg> ")

	tr.feed("help\n")
	waitFor(t, func() bool {
		return strings.Count(tr.output(), "dbg> ") >= 2
	}, "prompt after completed command")
}

func TestShellHandlerStatusIsNotFatal(t *testing.T) {
	var h recorder
	table := NewTable([]Command{
		{Name: "fail", Run: func(argv []string, rw io.ReadWriter) int { return 1 }},
		{Name: "help", Run: h.handler},
	})

	tr := &scriptTransport{}
	sh := New(table, Options{})
	sh.Begin(context.Background(), tr)
	defer sh.End()

	tr.feed("fail\nhelp\n")
	waitFor(t, func() bool { return h.count() == 1 }, "loop to continue after failing handler")
}
