package mysql

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeIdleConn() *Conn {
	client, _ := net.Pipe()
	c := &Conn{
		netConn:         client,
		buf:             newBuffer(client),
		m:               newMachine(0),
		logger:          pkgLog,
		ownedStatements: make(map[uint32]*PreparedStatement),
	}
	c.m.state = StateIdle
	return c
}

func TestPoolReleaseWakesWaitersFIFO(t *testing.T) {
	p := NewPool(Config{MaxPoolSize: 1})

	chs := make([]chan acquireResult, 3)
	for i := range chs {
		chs[i] = make(chan acquireResult, 1)
		p.waiters.PushBack(chs[i])
	}

	conns := []*Conn{fakeIdleConn(), fakeIdleConn(), fakeIdleConn()}
	for _, c := range conns {
		p.Release(c)
	}

	for i, ch := range chs {
		select {
		case res := <-ch:
			assert.Same(t, conns[i], res.conn, "waiter %d should receive the %dth released connection", i, i)
		default:
			t.Fatalf("waiter %d was never woken", i)
		}
	}
	assert.Equal(t, 0, p.waiters.Len())
}

func TestPoolReleaseDropsClosedConnection(t *testing.T) {
	p := NewPool(Config{MaxPoolSize: 2})
	p.total = 2

	c := fakeIdleConn()
	c.m.state = StateClosed
	p.Release(c)

	assert.Equal(t, 1, p.total)
	assert.Equal(t, 0, p.idle.Len())
	assert.EqualValues(t, 1, p.Stats().Broken)
}

func TestPoolReleaseReturnsHealthyConnectionToIdle(t *testing.T) {
	p := NewPool(Config{MaxPoolSize: 2})
	c := fakeIdleConn()
	p.Release(c)

	assert.Equal(t, 1, p.idle.Len())
	stats := p.Stats()
	assert.Equal(t, 1, stats.Idle)
}

func TestPoolAcquireAfterCloseFails(t *testing.T) {
	p := NewPool(Config{MaxPoolSize: 1})
	require.NoError(t, p.Close())

	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolAcquireEvictsUnhealthyIdleConnection(t *testing.T) {
	p := NewPool(Config{MaxPoolSize: 1, ConnectTimeout: 50 * time.Millisecond})
	p.total = 1

	client, server := net.Pipe()
	bad := &Conn{
		netConn:         client,
		buf:             newBuffer(client),
		m:               newMachine(0),
		logger:          pkgLog,
		ownedStatements: make(map[uint32]*PreparedStatement),
	}
	bad.m.state = StateIdle
	p.idle.PushBack(bad)

	go func() {
		// Read the COM_PING header+body, reply with an ERR packet.
		header := make([]byte, 4)
		readFull(server, header)
		body := make([]byte, readUint24(header[:3]))
		readFull(server, body)

		errPkt := []byte{iERR, 0x01, 0x00, '#'}
		errPkt = append(errPkt, []byte("HY000")...)
		errPkt = append(errPkt, []byte("gone away")...)
		h := make([]byte, 4)
		putUint24(h[:3], uint32(len(errPkt)))
		h[3] = 1
		server.Write(h)
		server.Write(errPkt)

		// Eviction closes the connection, which sends COM_QUIT; drain
		// it so that write doesn't block on the unbuffered pipe.
		quitHeader := make([]byte, 4)
		readFull(server, quitHeader)
		quitBody := make([]byte, readUint24(quitHeader[:3]))
		readFull(server, quitBody)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := p.Acquire(ctx)

	// The idle connection is evicted; the subsequent Dial to fill its
	// slot fails in this sandboxed test environment (no real server),
	// which is still a deterministic, typed error rather than a hang.
	assert.Error(t, err)
	assert.EqualValues(t, 1, p.Stats().Broken)
}
