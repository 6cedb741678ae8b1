package shell

import (
	"io"
	"time"
)

// Transport is the byte stream the shell listens on.
//
// The shell sets a short read deadline before every read so the loop stays
// responsive to End; an implementation whose SetReadDeadline is a no-op will
// delay shutdown until the next read returns. net.Conn satisfies Transport
// directly.
type Transport interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
}
