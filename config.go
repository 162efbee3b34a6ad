package mysql

import (
	"crypto/tls"
	"strconv"
	"time"
)

// TLSMode selects how a connection negotiates transport security
// (spec section 6 expansion: "tls{mode, verify, ca_file, client_cert}").
type TLSMode int

const (
	// TLSOff never requests clientSSL.
	TLSOff TLSMode = iota
	// TLSPrefer requests clientSSL when the server advertises it, but
	// falls back to a plaintext connection when it doesn't.
	TLSPrefer
	// TLSRequire requests clientSSL and fails the connection attempt
	// if the server doesn't advertise it.
	TLSRequire
)

// TLSVerify selects certificate validation strictness, independent of
// TLSMode so "encrypt but don't bother verifying the chain" (common in
// front of a trusted private network) is expressible without a custom
// tls.Config.
type TLSVerify int

const (
	TLSVerifyFull TLSVerify = iota
	TLSVerifyNone
)

// TLSConfig groups the transport-security knobs. Grounded on
// _examples/julienschmidt-gmysql's cfg.TLS *tls.Config plus
// RegisterTLSConfig/tlsConfigRegister, generalized into declarative
// fields so callers don't have to build a *tls.Config by hand for the
// common cases.
type TLSConfig struct {
	Mode       TLSMode
	Verify     TLSVerify
	CAFile     string
	ClientCert string
	ClientKey  string
	ServerName string

	// Config, if non-nil, is used verbatim instead of one built from
	// the fields above — an escape hatch for callers with unusual
	// requirements (mirrors RegisterTLSConfig's raw *tls.Config path).
	Config *tls.Config
}

// Config is the protocol core's connection configuration surface
// (spec section 6 expansion). Unlike the teacher, which parses a DSN
// string, this is a plain struct: DSN parsing is an application-level
// concern layered on top, not part of this client core.
type Config struct {
	Hostname string
	Port     int
	Username string
	Password string
	Database string

	TLS TLSConfig

	MaxPoolSize int
	MinIdle     int

	ConnectTimeout time.Duration
	// QueryTimeout, if non-zero, bounds the whole write+read exchange of
	// a command (query_timeout_ms, spec section 6) via a deadline on the
	// underlying net.Conn, rearmed at the start of every command.
	QueryTimeout time.Duration

	AllowMultipleStatements bool

	Logger Logger
}

// withDefaults returns a copy of cfg with zero-valued fields filled
// in, mirroring the teacher's NewConfig()/normalize() defaulting.
func (cfg Config) withDefaults() Config {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return cfg
}

func (cfg Config) address() string {
	host := cfg.Hostname
	if host == "" {
		host = "127.0.0.1"
	}
	return host + ":" + strconv.Itoa(cfg.Port)
}
