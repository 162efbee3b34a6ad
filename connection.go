package mysql

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"sync"
	"time"
)

// Conn is one physical connection to a server: a transport, the byte
// sequence id that frames it, and the state machine that interprets
// what flows over it. Grounded on
// _examples/julienschmidt-gmysql/connection.go's mysqlConn, reworked
// from a database/sql driver.Conn implementation into the protocol
// core's own Request API (spec 4.5).
type Conn struct {
	cfg     *Config
	netConn net.Conn
	buf     buffer
	seq     uint8
	lastErr error

	m      *machine
	logger Logger

	mu   sync.Mutex
	busy bool

	ownedStatements map[uint32]*PreparedStatement
}

// Dial opens a transport to cfg's address, performs the protocol
// handshake (including an optional TLS upgrade and AuthSwitchRequest
// round trip), and returns a Conn in the Idle state.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()

	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.address())
	if err != nil {
		return nil, wrapErr(KindInvalidResponse, err, "dialing %s", cfg.address())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = pkgLog
	}

	conn := &Conn{
		cfg:             &cfg,
		netConn:         nc,
		buf:             newBuffer(nc),
		m:               newMachine(0),
		logger:          logger,
		ownedStatements: make(map[uint32]*PreparedStatement),
	}

	if err := conn.authenticate(); err != nil {
		nc.Close()
		return nil, err
	}
	return conn, nil
}

// fail records err as the terminal cause and forces the connection
// (and its state machine) to Closed. Every framing/protocol fault
// routes through here so "one fault fails the whole connection"
// (spec 4.4, 7) holds regardless of which layer noticed it.
func (conn *Conn) fail(err error) {
	if conn.lastErr != nil {
		return
	}
	conn.lastErr = err
	conn.m.state = StateClosed
	conn.netConn.Close()
}

func (conn *Conn) acquireBusy() error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.m.state == StateClosed {
		return ErrConnClosed
	}
	if conn.busy {
		return ErrConnectionInUse
	}
	conn.busy = true
	return nil
}

func (conn *Conn) releaseBusy() {
	conn.mu.Lock()
	conn.busy = false
	conn.mu.Unlock()
}

// armQueryDeadline applies cfg.QueryTimeout to the underlying
// transport for the command about to be sent, covering its write and
// every read (including a Rows cursor's later drain) until the next
// command rearms it. A zero QueryTimeout leaves the transport without
// a deadline, same as the teacher's driver.
func (conn *Conn) armQueryDeadline() {
	if conn.cfg != nil && conn.cfg.QueryTimeout > 0 {
		conn.netConn.SetDeadline(time.Now().Add(conn.cfg.QueryTimeout))
	}
}

// State reports the connection's current position in the state
// machine, mainly useful for tests and diagnostics.
func (conn *Conn) State() State { return conn.m.state }

// authenticate runs the handshake: read HandshakeV10, optionally
// upgrade to TLS, send HandshakeResponse41, and resolve whatever the
// server sends back, including an AuthSwitchRequest or a
// caching_sha2_password fast-auth AuthMoreData packet.
func (conn *Conn) authenticate() error {
	data, err := conn.readPacket()
	if err != nil {
		return err
	}
	ev, err := conn.m.onHandshake(data)
	if err != nil {
		return err
	}
	if ev.Kind == EventError {
		return ev.Err
	}
	hs := ev.Handshake

	wantSSL := false
	switch conn.cfg.TLS.Mode {
	case TLSPrefer:
		wantSSL = hs.Capabilities&clientSSL != 0
	case TLSRequire:
		if hs.Capabilities&clientSSL == 0 {
			return unsupportedErr("server does not advertise TLS support, required by config")
		}
		wantSSL = true
	}

	caps := negotiatedCapabilities(hs.Capabilities, wantSSL, conn.cfg.Database != "", conn.cfg.AllowMultipleStatements)
	conn.m.caps = caps

	if wantSSL {
		if err := conn.upgradeTLS(caps); err != nil {
			return err
		}
	}

	plugin := hs.AuthPluginName
	authResponse, err := authResponseFor(plugin, hs.AuthPluginData, conn.cfg.Password)
	if err != nil {
		return err
	}

	resp := buildHandshakeResponse41(caps, defaultCharset, conn.cfg.Username, conn.cfg.Database, authResponse, plugin)
	if err := conn.writePacket(resp); err != nil {
		return err
	}

	return conn.resolveAuthResult()
}

// upgradeTLS sends a bare SSLRequest packet (a HandshakeResponse41
// prefix with no username/auth data) and swaps the transport for a
// TLS connection, per spec 4.3's handshake sequencing.
func (conn *Conn) upgradeTLS(caps capabilityFlag) error {
	buf := make([]byte, 0, 32)
	buf = appendUint32(buf, uint32(caps))
	buf = appendUint32(buf, maxPacketSize)
	buf = append(buf, defaultCharset)
	buf = append(buf, make([]byte, 23)...)

	if err := conn.writePacket(buf); err != nil {
		return err
	}

	tlsConfig, err := conn.buildTLSConfig()
	if err != nil {
		return err
	}
	tlsConn := tls.Client(conn.netConn, tlsConfig)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return wrapErr(KindInvalidHandshake, err, "TLS handshake")
	}
	conn.netConn = tlsConn
	conn.buf = newBuffer(tlsConn)
	return nil
}

func (conn *Conn) buildTLSConfig() (*tls.Config, error) {
	t := conn.cfg.TLS
	if t.Config != nil {
		return t.Config.Clone(), nil
	}
	cfg := &tls.Config{ServerName: t.ServerName}
	if t.Verify == TLSVerifyNone {
		cfg.InsecureSkipVerify = true
	}
	if t.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return nil, wrapErr(KindInvalidHandshake, err, "loading client certificate")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if t.CAFile != "" {
		pool, err := loadCertPool(t.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(KindInvalidHandshake, err, "reading CA file %s", path)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, newErr(KindInvalidHandshake, "no certificates found in "+path)
	}
	return pool, nil
}

// resolveAuthResult reads the server's reply to HandshakeResponse41
// and loops through AuthSwitchRequest/AuthMoreData exchanges until a
// terminal OK or ERR arrives.
func (conn *Conn) resolveAuthResult() error {
	for {
		data, err := conn.readPacket()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return newErr(KindInvalidHandshake, "empty auth response")
		}

		switch data[0] {
		case iAuthMoreData:
			if len(data) < 2 {
				return newErr(KindInvalidHandshake, "truncated AuthMoreData")
			}
			if err := cachingSHA2FastAuthResult(data[1]); err != nil {
				return err
			}
			continue

		case iEOF:
			plugin, newSalt, err := parseAuthSwitchRequest(data)
			if err != nil {
				return err
			}
			authResponse, err := authResponseFor(plugin, newSalt, conn.cfg.Password)
			if err != nil {
				return err
			}
			if err := conn.writePacket(authResponse); err != nil {
				return err
			}
			continue

		default:
			ev, err := conn.m.onAuthResult(data)
			if err != nil {
				return err
			}
			if ev.Kind == EventError {
				return ev.Err
			}
			return nil
		}
	}
}

// parseAuthSwitchRequest decodes an AuthSwitchRequest: status 0xfe,
// a null-terminated plugin name, then the new scramble data.
func parseAuthSwitchRequest(data []byte) (plugin string, salt []byte, err error) {
	if len(data) < 1 || data[0] != iEOF {
		return "", nil, newErr(KindInvalidHandshake, "not an AuthSwitchRequest")
	}
	name, n, ok := readNullTerminatedString(data[1:])
	if !ok {
		return "", nil, newErr(KindInvalidHandshake, "truncated AuthSwitchRequest plugin name")
	}
	rest := data[1+n:]
	// The trailing NUL on the scramble is optional depending on server
	// version; trim it if present.
	if len(rest) > 0 && rest[len(rest)-1] == 0x00 {
		rest = rest[:len(rest)-1]
	}
	return string(name), rest, nil
}

// query issues COM_QUERY and returns a Rows cursor the caller pulls
// from on demand (spec 4.5, 5).
func (conn *Conn) Query(sql string) (*Rows, error) {
	if err := conn.acquireBusy(); err != nil {
		return nil, err
	}
	conn.armQueryDeadline()
	conn.resetSequence()
	if err := conn.writePacket(buildComQuery(sql)); err != nil {
		conn.releaseBusy()
		return nil, err
	}
	if err := conn.m.beginTextCommand(false); err != nil {
		conn.releaseBusy()
		return nil, err
	}
	return newRows(conn), nil
}

// ping issues COM_PING, a zero-payload liveness probe the pool uses
// before handing a connection back out (spec 4.5 expansion).
func (conn *Conn) Ping() error {
	if err := conn.acquireBusy(); err != nil {
		return err
	}
	defer conn.releaseBusy()

	conn.armQueryDeadline()
	conn.resetSequence()
	if err := conn.writePacket(buildComPing()); err != nil {
		return err
	}
	data, err := conn.readPacket()
	if err != nil {
		return err
	}
	if len(data) > 0 && data[0] == iERR {
		return parseERR(data)
	}
	_, err = parseOK(data)
	return err
}

// prepare issues COM_STMT_PREPARE and reads back the parameter and
// result column metadata (spec 4.5).
func (conn *Conn) Prepare(sql string) (*PreparedStatement, error) {
	if err := conn.acquireBusy(); err != nil {
		return nil, err
	}
	defer conn.releaseBusy()

	conn.armQueryDeadline()
	conn.resetSequence()
	if err := conn.writePacket(buildComStmtPrepare(sql)); err != nil {
		return nil, err
	}
	if err := conn.m.beginStmtPrepare(); err != nil {
		return nil, err
	}

	for {
		data, err := conn.readPacket()
		if err != nil {
			return nil, err
		}
		events := conn.m.step(data)
		for _, ev := range events {
			switch ev.Kind {
			case EventError:
				return nil, ev.Err
			case EventPreparedStatement:
				stmt := &PreparedStatement{
					conn:    conn,
					id:      ev.Statement.id,
					params:  ev.Statement.params,
					columns: ev.Statement.columns,
				}
				conn.ownedStatements[stmt.id] = stmt
				return stmt, nil
			}
		}
	}
}

// closeStatement issues COM_STMT_CLOSE, which the protocol does not
// acknowledge with a response packet.
func (conn *Conn) CloseStatement(id uint32) error {
	if err := conn.acquireBusy(); err != nil {
		return err
	}
	defer conn.releaseBusy()

	delete(conn.ownedStatements, id)
	conn.armQueryDeadline()
	conn.resetSequence()
	return conn.writePacket(buildComStmtClose(id))
}

// resetStatement issues COM_STMT_RESET, clearing any buffered
// long-data and cursor state for the statement while keeping it open
// (spec 4.5 expansion).
func (conn *Conn) ResetStatement(id uint32) error {
	if err := conn.acquireBusy(); err != nil {
		return err
	}
	defer conn.releaseBusy()

	conn.armQueryDeadline()
	conn.resetSequence()
	if err := conn.writePacket(buildComStmtReset(id)); err != nil {
		return err
	}
	data, err := conn.readPacket()
	if err != nil {
		return err
	}
	if len(data) > 0 && data[0] == iERR {
		return parseERR(data)
	}
	_, err = parseOK(data)
	return err
}

// executeStatement issues COM_STMT_EXECUTE with the given bound
// values and returns the resulting Rows cursor.
func (conn *Conn) executeStatement(stmt *PreparedStatement, values []Value) (*Rows, error) {
	if err := conn.acquireBusy(); err != nil {
		return nil, err
	}
	payload, err := buildComStmtExecute(stmt.id, stmt.params, values)
	if err != nil {
		conn.releaseBusy()
		return nil, err
	}
	conn.armQueryDeadline()
	conn.resetSequence()
	if err := conn.writePacket(payload); err != nil {
		conn.releaseBusy()
		return nil, err
	}
	if err := conn.m.beginTextCommand(true); err != nil {
		conn.releaseBusy()
		return nil, err
	}
	return newRows(conn), nil
}

// close issues COM_QUIT and tears the transport down. Per spec 4.5,
// close is valid from any state, including one already Closed by a
// prior fault.
func (conn *Conn) Close() error {
	conn.mu.Lock()
	already := conn.m.state == StateClosed
	conn.m.state = StateClosed
	conn.mu.Unlock()

	if already {
		return nil
	}
	conn.resetSequence()
	conn.writePacket(buildComQuit())
	return conn.netConn.Close()
}
