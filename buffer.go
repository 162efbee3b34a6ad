package mysql

import (
	"io"
)

// buffer is a small buffered reader/writer over the transport. It is
// reconstructed from its call sites in the teacher's packets.go
// (conn.buf.readNext, takeSmallBuffer, takeBuffer, conn.buf.rd) since
// buffer.go itself was not part of the retrieved slice. readNext
// blocks until exactly n bytes are available or the transport
// errors/closes — this package's "suspension point" for an
// in-progress read (spec section 5) is this call, not a manual select
// loop, matching the teacher's synchronous style.
//
// The teacher's takeCompleteBuffer backs client-side query-arg
// interpolation (growing a recycled buffer while substituting `?`
// placeholders into SQL text). This core never does that — parameters
// go over COM_STMT_EXECUTE, never substituted into SQL text — so that
// method has no home here and isn't reconstructed.
type buffer struct {
	buf []byte // recycled write buffer
	rd  io.Reader
}

func newBuffer(rd io.Reader) buffer {
	return buffer{buf: make([]byte, 4096), rd: rd}
}

// readNext reads and returns exactly n bytes from the transport.
func (b *buffer) readNext(n int) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(b.rd, data); err != nil {
		return nil, err
	}
	return data, nil
}

// takeSmallBuffer returns a slice of length n backed by the recycled
// buffer, growing it (and replacing the recycled buffer with the
// larger one) only when the current one is too small.
func (b *buffer) takeSmallBuffer(n int) []byte {
	if cap(b.buf) >= n {
		return b.buf[:n]
	}
	b.buf = make([]byte, n)
	return b.buf
}

// takeBuffer is an alias of takeSmallBuffer kept distinct for
// call-site clarity (ports of the teacher's two-name split between
// small and general-purpose buffers): `readPacket` uses
// takeSmallBuffer for the fixed 4-byte packet header, `writePacket`
// uses takeBuffer for the header-plus-body frame it writes in one
// syscall.
func (b *buffer) takeBuffer(n int) []byte {
	return b.takeSmallBuffer(n)
}
