package mysql

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFakeHandshakeV10 encodes a minimal but complete HandshakeV10
// greeting, the inverse of parseHandshakeV10, so a plain net.Listener
// can stand in for a server in pool-level integration tests.
func buildFakeHandshakeV10(connID uint32, serverCaps uint32) []byte {
	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = byte(i + 1)
	}

	buf := []byte{minProtocolVersion}
	buf = append(buf, []byte("8.0.32-fake")...)
	buf = append(buf, 0x00)
	buf = appendUint32(buf, connID)
	buf = append(buf, salt[:8]...)
	buf = append(buf, 0x00) // filler
	buf = appendUint16(buf, uint16(serverCaps))
	buf = append(buf, defaultCharset)
	buf = appendUint16(buf, uint16(statusAutocommit))
	buf = appendUint16(buf, uint16(serverCaps>>16))
	buf = append(buf, 21) // auth_plugin_data_len
	buf = append(buf, make([]byte, 10)...)
	buf = append(buf, salt[8:20]...)
	buf = append(buf, 0x00)
	buf = append(buf, []byte(authNativePassword)...)
	buf = append(buf, 0x00)
	return buf
}

// serveFakeMySQLConn greets nc as a real server would, accepts one
// HandshakeResponse41 without checking its credentials, replies with
// OK, then answers every subsequent COM_QUERY with a single-row
// result set until nc is closed by the client.
func serveFakeMySQLConn(nc net.Conn, connID uint32) {
	serverCaps := uint32(baseClientFlags)
	writePacketTo(nc, 0, buildFakeHandshakeV10(connID, serverCaps))

	header := make([]byte, 4)
	readFull(nc, header)
	body := make([]byte, readUint24(header[:3]))
	readFull(nc, body) // drain HandshakeResponse41

	// The greeting is seq 0 and HandshakeResponse41 is seq 1 (the
	// sequence counter is never reset mid-handshake), so the auth
	// result is seq 2.
	writePacketTo(nc, 2, okPacketBytes(0, 0, statusAutocommit))

	for {
		h := make([]byte, 4)
		n, err := nc.Read(h)
		if err != nil || n < 4 {
			return
		}
		remaining := int(readUint24(h[:3]))
		body := make([]byte, remaining)
		readFull(nc, body) // drain COM_QUERY

		writePacketTo(nc, 1, appendLengthEncodedInteger(nil, 1))
		writePacketTo(nc, 2, columnDefPacket("n", fieldTypeLong))
		writePacketTo(nc, 3, appendLengthEncodedString(nil, []byte("1")))
		writePacketTo(nc, 4, okPacketBytes(0, 0, statusAutocommit))
	}
}

// TestPoolFairnessUnderLoad exercises S6: with a small max pool size
// and many more concurrent callers than that, the pool never opens
// more physical connections than the configured maximum, and every
// caller still completes with its expected row.
func TestPoolFairnessUnderLoad(t *testing.T) {
	const maxConns = 4
	const callers = 100

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var nextConnID uint32
	var acceptWG sync.WaitGroup
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			nextConnID++
			acceptWG.Add(1)
			go func(nc net.Conn, id uint32) {
				defer acceptWG.Done()
				serveFakeMySQLConn(nc, id)
			}(nc, nextConnID)
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	p := NewPool(Config{
		Hostname:       host,
		Port:           port,
		MaxPoolSize:    maxConns,
		ConnectTimeout: 2 * time.Second,
	})

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			conn, err := p.Acquire(ctx)
			if !assert.NoError(t, err) {
				return
			}
			defer p.Release(conn)

			rows, err := conn.Query("SELECT 1")
			if !assert.NoError(t, err) {
				return
			}
			if assert.True(t, rows.Next()) {
				v, ok := rows.Row().Get("n")
				assert.True(t, ok)
				assert.Equal(t, "1", v.String())
			}
			assert.False(t, rows.Next())
			assert.NoError(t, rows.Err())
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.EqualValues(t, maxConns, stats.Created, "never more than max_pool_size physical connections")
	assert.EqualValues(t, callers, stats.Acquired)
	assert.EqualValues(t, callers, stats.Released)

	require.NoError(t, p.Close())
	ln.Close()
	acceptWG.Wait()
}
