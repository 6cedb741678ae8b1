// Package builtin holds the commands every streamsh instance accepts.
package builtin

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sandevgo/streamsh/internal/shell"
)

// Table builds the built-in command table. Entries are listed sorted by
// name, as the shell's lookup requires; Table is the place to keep that
// order when adding commands.
func Table(started time.Time) *shell.Table {
	var t *shell.Table
	t = shell.NewTable([]shell.Command{
		{Name: "echo", Help: "print the arguments back to the stream", Run: echo},
		{Name: "help", Help: "list available commands", Run: func(argv []string, rw io.ReadWriter) int {
			return help(t, rw)
		}},
		{Name: "uptime", Help: "print time since the shell started", Run: uptime(started)},
	})
	return t
}

func echo(argv []string, rw io.ReadWriter) int {
	fmt.Fprintf(rw, "%s\n", strings.Join(argv[1:], " "))
	return 0
}

func help(t *shell.Table, rw io.ReadWriter) int {
	for _, cmd := range t.Commands() {
		fmt.Fprintf(rw, "  %-10s %s\n", cmd.Name, cmd.Help)
	}
	return 0
}

func uptime(started time.Time) shell.Handler {
	return func(argv []string, rw io.ReadWriter) int {
		fmt.Fprintf(rw, "up %s\n", time.Since(started).Round(time.Second))
		return 0
	}
}
