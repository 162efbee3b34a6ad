package mysql

import "io"

// Packet Framer: splits/combines the byte stream into protocol
// packets (3-byte little-endian length + 1-byte sequence id +
// payload), and tracks the sequence id across a request/response
// exchange. Grounded on
// _examples/julienschmidt-gmysql/packets.go readPacket/writePacket,
// generalized off of Conn-specific fields (maxPacketAllowed,
// sequence) so the same code backs both the plain-socket and
// TLS-upgraded transport.

// readPacket reads one logical packet, transparently reassembling
// 0xFFFFFF-length continuation frames (spec 4.2). It verifies the
// sequence id against conn.seq and transitions the connection to
// Closed on any framing fault, per spec 4.4's sequence-id discipline.
func (conn *Conn) readPacket() ([]byte, error) {
	var payload []byte
	for {
		// The header is parsed and discarded before anything else
		// touches conn.buf, so it's safe to read it into the
		// recycled scratch array rather than allocating fresh.
		header := conn.buf.takeSmallBuffer(4)
		if _, err := io.ReadFull(conn.buf.rd, header); err != nil {
			conn.fail(wrapErr(KindInvalidPacket, err, "reading packet header"))
			return nil, conn.lastErr
		}

		pktLen := int(readUint24(header[:3]))
		seq := header[3]

		if seq != conn.seq {
			err := newErr(KindInvalidPacket, "sequence id mismatch")
			conn.fail(err)
			return nil, err
		}
		conn.seq++

		body, err := conn.buf.readNext(pktLen)
		if err != nil {
			conn.fail(wrapErr(KindInvalidPacket, err, "reading packet body"))
			return nil, conn.lastErr
		}

		isLast := pktLen < maxPacketSize
		if isLast && payload == nil {
			return body, nil
		}
		payload = append(payload, body...)
		if isLast {
			return payload, nil
		}
	}
}

// writePacket writes payload as one or more frames, splitting at
// maxPacketSize and incrementing the sequence id for every frame
// (including the zero-length terminator frame a length that's an
// exact multiple of maxPacketSize requires).
func (conn *Conn) writePacket(payload []byte) error {
	for {
		var frameLen int
		if len(payload) >= maxPacketSize {
			frameLen = maxPacketSize
		} else {
			frameLen = len(payload)
		}

		// Built header-and-body in one recycled buffer and written
		// with a single syscall, the way the teacher's writePacket
		// takes a buffer that already reserves its first 4 bytes for
		// the header instead of writing header and body separately.
		frame := conn.buf.takeBuffer(4 + frameLen)
		putUint24(frame[:3], uint32(frameLen))
		frame[3] = conn.seq
		copy(frame[4:], payload[:frameLen])

		if _, err := conn.netConn.Write(frame); err != nil {
			return wrapErr(KindInvalidPacket, err, "writing packet")
		}
		conn.seq++

		if frameLen != maxPacketSize {
			return nil
		}
		payload = payload[frameLen:]
	}
}

// resetSequence starts a new client-initiated command; spec 3
// requires the sequence id to reset to 0 here.
func (conn *Conn) resetSequence() {
	conn.seq = 0
}
