package mysql

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idleTestConn() (*Conn, net.Conn) {
	client, server := net.Pipe()
	conn := newTestConn(client)
	conn.m.state = StateIdle
	return conn, server
}

func TestConnectionInUseRejectsOverlappingCommand(t *testing.T) {
	conn, server := idleTestConn()
	defer server.Close()

	go func() {
		buf := make([]byte, 4)
		readFull(server, buf) // drain the COM_QUERY header
		body := make([]byte, readUint24(buf[:3]))
		readFull(server, body)
		// Deliberately never reply, holding the connection busy.
	}()

	_, err := conn.Query("SELECT 1")
	require.NoError(t, err)

	_, err = conn.Query("SELECT 2")
	assert.ErrorIs(t, err, ErrConnectionInUse)
}

func TestConnectionInUseSendsNoBytesForRejectedCommand(t *testing.T) {
	conn, server := idleTestConn()
	defer server.Close()

	readDone := make(chan struct{})
	go func() {
		buf := make([]byte, 4)
		readFull(server, buf)
		body := make([]byte, readUint24(buf[:3]))
		readFull(server, body)
		close(readDone)
	}()

	_, err := conn.Query("SELECT 1")
	require.NoError(t, err)
	<-readDone

	server.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := server.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.Error(t, err, "the rejected second command must not have written anything")
}

func TestConnClosedRejectsCommandsAfterFailure(t *testing.T) {
	conn, server := idleTestConn()
	defer server.Close()

	conn.fail(newErr(KindInvalidPacket, "boom"))

	_, err := conn.Query("SELECT 1")
	assert.ErrorIs(t, err, ErrConnClosed)
}

// TestQueryTimeoutArmsTransportDeadline exercises Config.QueryTimeout:
// a server that never replies must make the read fail once the
// configured deadline elapses, instead of hanging forever.
func TestQueryTimeoutArmsTransportDeadline(t *testing.T) {
	conn, server := idleTestConn()
	defer server.Close()
	conn.cfg = &Config{QueryTimeout: 50 * time.Millisecond}

	drained := make(chan struct{})
	go func() {
		buf := make([]byte, 4)
		readFull(server, buf) // drain the COM_QUERY header
		body := make([]byte, readUint24(buf[:3]))
		readFull(server, body)
		close(drained)
		// Deliberately never reply.
	}()

	_, err := conn.Query("SELECT 1")
	require.NoError(t, err)
	<-drained

	_, err = conn.readPacket()
	assert.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.True(t, netErr.Timeout())
	}
}

// TestQueryTimeoutZeroLeavesTransportWithoutDeadline confirms a
// zero-value QueryTimeout (the default) never touches the transport
// deadline, so a command may block indefinitely as before.
func TestQueryTimeoutZeroLeavesTransportWithoutDeadline(t *testing.T) {
	conn, server := idleTestConn()
	defer server.Close()
	conn.cfg = &Config{}

	drained := make(chan struct{})
	go func() {
		buf := make([]byte, 4)
		readFull(server, buf)
		body := make([]byte, readUint24(buf[:3]))
		readFull(server, body)
		close(drained)
	}()

	_, err := conn.Query("SELECT 1")
	assert.NoError(t, err)
	<-drained
}
