package shell

import "bytes"

// tokenize splits a completed line into at most max whitespace-separated
// tokens. Only single space bytes act as separators: consecutive spaces
// yield empty tokens and there is no quoting mechanism whatsoever. A
// trailing separator produces no empty trailing token.
//
// When the limit is hit the remainder of the line is discarded and
// truncated is true; the caller emits the diagnostic.
//
// The returned strings are copies, so they stay valid after the line
// buffer is recycled for the next read.
func tokenize(line []byte, max int) (argv []string, truncated bool) {
	for i := 0; i < len(line); {
		if len(argv) == max {
			return argv, true
		}
		rest := line[i:]
		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			argv = append(argv, string(rest))
			break
		}
		argv = append(argv, string(rest[:sp]))
		i += sp + 1
	}
	return argv, false
}
