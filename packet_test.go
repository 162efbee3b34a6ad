package mysql

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConn wires a Conn directly onto one end of a net.Pipe,
// bypassing Dial/authenticate so the Packet Framer and state machine
// can be exercised against a scripted peer.
func newTestConn(nc net.Conn) *Conn {
	return &Conn{
		netConn:         nc,
		buf:             newBuffer(nc),
		m:               newMachine(0),
		logger:          pkgLog,
		ownedStatements: make(map[uint32]*PreparedStatement),
	}
}

func TestPacketRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newTestConn(client)

	done := make(chan []byte, 1)
	go func() {
		header := make([]byte, 4)
		n, _ := server.Read(header)
		require.Equal(t, 4, n)
		pktLen := int(readUint24(header[:3]))
		body := make([]byte, pktLen)
		readFull(server, body)
		done <- body
	}()

	payload := []byte("hello server")
	require.NoError(t, conn.writePacket(payload))
	assert.Equal(t, payload, <-done)
	assert.EqualValues(t, 1, conn.seq)
}

func TestPacketSequenceMismatchFailsConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newTestConn(client)

	go func() {
		// Header declares sequence id 5 when the client expects 0.
		server.Write([]byte{0x01, 0x00, 0x00, 0x05})
		server.Write([]byte{0x42})
	}()

	_, err := conn.readPacket()
	require.Error(t, err)
	assert.Equal(t, StateClosed, conn.m.state)
}

func TestPacketContinuationFrameReassembly(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newTestConn(client)

	first := bytes.Repeat([]byte{0x41}, maxPacketSize)
	second := []byte("tail")

	go func() {
		h1 := make([]byte, 4)
		putUint24(h1[:3], uint32(len(first)))
		h1[3] = 0
		server.Write(h1)
		server.Write(first)

		h2 := make([]byte, 4)
		putUint24(h2[:3], uint32(len(second)))
		h2[3] = 1
		server.Write(h2)
		server.Write(second)
	}()

	got, err := conn.readPacket()
	require.NoError(t, err)
	assert.Equal(t, len(first)+len(second), len(got))
	assert.True(t, bytes.Equal(got[:len(first)], first))
	assert.True(t, bytes.Equal(got[len(first):], second))
	assert.EqualValues(t, 2, conn.seq)
}

func readFull(r net.Conn, buf []byte) {
	for n := 0; n < len(buf); {
		k, err := r.Read(buf[n:])
		if err != nil {
			return
		}
		n += k
	}
}
