package shell

import (
	"io"
	"testing"
)

func nop(argv []string, rw io.ReadWriter) int { return 0 }

func sortedTable() *Table {
	return NewTable([]Command{
		{Name: "echo", Run: nop},
		{Name: "help", Run: nop},
		{Name: "reboot", Run: nop},
		{Name: "uptime", Run: nop},
	})
}

func TestTableLookup(t *testing.T) {
	tbl := sortedTable()

	for _, name := range []string{"echo", "help", "reboot", "uptime"} {
		cmd, ok := tbl.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) missed", name)
		}
		if cmd.Name != name {
			t.Fatalf("Lookup(%q) returned %q", name, cmd.Name)
		}
	}

	for _, name := range []string{"", "foo", "echoo", "ech", "zzz"} {
		if _, ok := tbl.Lookup(name); ok {
			t.Errorf("Lookup(%q) unexpectedly matched", name)
		}
	}
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmds    []Command
		wantErr bool
	}{
		{
			name: "sorted table is valid",
			cmds: []Command{{Name: "a", Run: nop}, {Name: "b", Run: nop}},
		},
		{
			name: "empty table is valid",
			cmds: nil,
		},
		{
			name:    "unsorted",
			cmds:    []Command{{Name: "b", Run: nop}, {Name: "a", Run: nop}},
			wantErr: true,
		},
		{
			name:    "duplicate name",
			cmds:    []Command{{Name: "a", Run: nop}, {Name: "a", Run: nop}},
			wantErr: true,
		},
		{
			name:    "empty name",
			cmds:    []Command{{Name: "", Run: nop}},
			wantErr: true,
		},
		{
			name:    "NUL byte in name",
			cmds:    []Command{{Name: "a\x00b", Run: nop}},
			wantErr: true,
		},
		{
			name:    "missing handler",
			cmds:    []Command{{Name: "a"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTable(tt.cmds).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTableCommandsIsACopy(t *testing.T) {
	tbl := sortedTable()
	cmds := tbl.Commands()
	cmds[0].Name = "mutated"

	if cmd, ok := tbl.Lookup("echo"); !ok || cmd.Name != "echo" {
		t.Fatal("Commands() exposed internal state")
	}
}
