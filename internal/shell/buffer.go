package shell

import "bytes"

// lineBuffer accumulates transport reads until a full newline-terminated
// line is present. It is owned by the loop goroutine for its entire
// lifetime and never shared.
type lineBuffer struct {
	buf  []byte // fixed capacity, allocated once
	head int    // write cursor, 0 <= head <= len(buf)
	nl   int    // newline index of the line returned by takeLine
}

func newLineBuffer(capacity int) *lineBuffer {
	return &lineBuffer{buf: make([]byte, capacity), nl: -1}
}

// free returns the unused region reads should fill.
func (b *lineBuffer) free() []byte {
	return b.buf[b.head:]
}

// advance records n bytes appended by a read into free().
func (b *lineBuffer) advance(n int) {
	b.head += n
}

func (b *lineBuffer) full() bool {
	return b.head == len(b.buf)
}

// takeLine scans the populated region for a newline and, if found, returns
// the line up to (excluding) it. The slice is a view into the buffer and is
// only valid until consumeLine or reset. Scanning the whole region rather
// than just the latest read covers the case where one read delivered more
// than one line.
func (b *lineBuffer) takeLine() ([]byte, bool) {
	i := bytes.IndexByte(b.buf[:b.head], '\n')
	if i < 0 {
		return nil, false
	}
	b.nl = i
	return b.buf[:i], true
}

// consumeLine drops the line returned by the last takeLine and compacts the
// leftover bytes after its newline to the front of the buffer. Those bytes
// are the start of the next line.
func (b *lineBuffer) consumeLine() {
	rest := b.head - (b.nl + 1)
	if rest > 0 {
		copy(b.buf, b.buf[b.nl+1:b.head])
	}
	b.head = rest
	b.nl = -1
}

// reset discards everything, used on overflow.
func (b *lineBuffer) reset() {
	b.head = 0
	b.nl = -1
}
