package shell

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Handler is the entry point of a command.
//
// The calling convention mirrors a main function: argv holds the tokens of
// the command line, including the command name at argv[0]. The shell's
// transport is exposed as rw; output should be written there and further
// user input may be read from it. The returned status is observed by the
// loop but a non-zero value is informational only.
type Handler func(argv []string, rw io.ReadWriter) int

// Command is a single entry in a shell's command table.
//
// Any byte other than NUL is acceptable in a name, but non-ASCII characters
// should be avoided to prevent issues with terminal control sequences or
// text encodings.
type Command struct {
	Name string
	Help string
	Run  Handler
}

// Table is an immutable set of commands with ordered lookup.
//
// The command list handed to NewTable must be sorted by name in ascending
// byte order with no duplicates, or lookups silently misbehave. The shell
// never checks this on the hot path; integrators should call Validate once
// at startup (at least in debug builds).
type Table struct {
	cmds []Command
}

func NewTable(cmds []Command) *Table {
	return &Table{cmds: cmds}
}

// Validate checks the sortedness precondition and the per-command name
// rules. It reports the first violation found.
func (t *Table) Validate() error {
	for i, cmd := range t.cmds {
		if cmd.Name == "" {
			return fmt.Errorf("command #%d has an empty name", i)
		}
		if strings.IndexByte(cmd.Name, 0) >= 0 {
			return fmt.Errorf("command %q contains a NUL byte", cmd.Name)
		}
		if cmd.Run == nil {
			return fmt.Errorf("command %q has no handler", cmd.Name)
		}
		if i > 0 && t.cmds[i-1].Name >= cmd.Name {
			return fmt.Errorf("command table not strictly sorted: %q before %q",
				t.cmds[i-1].Name, cmd.Name)
		}
	}
	return nil
}

// Lookup finds a command by exact name via binary search.
func (t *Table) Lookup(name string) (*Command, bool) {
	i := sort.Search(len(t.cmds), func(i int) bool {
		return t.cmds[i].Name >= name
	})
	if i < len(t.cmds) && t.cmds[i].Name == name {
		return &t.cmds[i], true
	}
	return nil, false
}

// Commands returns a copy of the table entries in order, for listings.
func (t *Table) Commands() []Command {
	out := make([]Command, len(t.cmds))
	copy(out, t.cmds)
	return out
}

func (t *Table) Len() int {
	return len(t.cmds)
}
