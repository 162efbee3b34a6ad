package mysql

import (
	"bytes"
)

// Handshake is the parsed server greeting (spec 4.3, HandshakeV10).
type Handshake struct {
	ServerVersion   string
	ConnectionID    uint32
	AuthPluginData  []byte // 20 usable bytes
	Capabilities    capabilityFlag
	Charset         byte
	Status          statusFlag
	AuthPluginName  string
}

// parseHandshakeV10 decodes a HandshakeV10 packet. Grounded on
// _examples/julienschmidt-gmysql/packets.go readInitPacket, extended
// to also capture capabilities/status/charset/plugin name which that
// reduced driver (it never exposes a Handshake struct to callers)
// discarded.
func parseHandshakeV10(data []byte) (Handshake, error) {
	var hs Handshake
	if len(data) < 1 {
		return hs, newErr(KindInvalidHandshake, "empty handshake packet")
	}
	if data[0] != minProtocolVersion {
		return hs, newErr(KindInvalidHandshake, "unsupported protocol version")
	}
	pos := 1

	version, n, ok := readNullTerminatedString(data[pos:])
	if !ok {
		return hs, newErr(KindInvalidHandshake, "truncated server version")
	}
	hs.ServerVersion = string(version)
	pos += n

	if pos+4 > len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated connection id")
	}
	hs.ConnectionID = readUint32(data[pos : pos+4])
	pos += 4

	if pos+8 > len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated auth plugin data (part 1)")
	}
	salt := append([]byte{}, data[pos:pos+8]...)
	pos += 8

	if pos >= len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated filler")
	}
	pos++ // filler 0x00

	if pos+2 > len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated capabilities (low)")
	}
	capLo := readUint16(data[pos : pos+2])
	pos += 2

	hs.Capabilities = capabilityFlag(capLo)
	if len(data) <= pos {
		if len(salt) < 20 {
			return hs, newErr(KindInvalidHandshake, "usable salt shorter than 20 bytes")
		}
		hs.AuthPluginData = salt[:20]
		return hs, nil
	}

	hs.Charset = data[pos]
	pos++

	if pos+2 > len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated status")
	}
	hs.Status = statusFlag(readUint16(data[pos : pos+2]))
	pos += 2

	if pos+2 > len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated capabilities (high)")
	}
	capHi := readUint16(data[pos : pos+2])
	hs.Capabilities |= capabilityFlag(capHi) << 16
	pos += 2

	if pos >= len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated auth plugin data length")
	}
	authDataLen := int(data[pos])
	pos++

	pos += 10 // reserved

	remaining := authDataLen - 8
	if remaining < 13 {
		remaining = 13
	}
	if pos+remaining > len(data) {
		return hs, newErr(KindInvalidHandshake, "truncated auth plugin data (part 2)")
	}
	rest := data[pos : pos+remaining]
	pos += remaining

	salt = append(salt, rest[:12]...)
	if len(salt) < 20 {
		return hs, newErr(KindInvalidHandshake, "usable salt shorter than 20 bytes")
	}
	hs.AuthPluginData = salt[:20]

	if hs.Capabilities&clientPluginAuth != 0 && pos < len(data) {
		name := data[pos:]
		if i := bytes.IndexByte(name, 0x00); i >= 0 {
			name = name[:i]
		}
		hs.AuthPluginName = string(name)
	}

	return hs, nil
}

// negotiatedCapabilities intersects what the client wants with what
// the server advertised, per spec 3 ("The effective set is the
// intersection ... frozen at end of handshake").
func negotiatedCapabilities(serverCaps capabilityFlag, wantSSL, wantDB, wantMultiStatements bool) capabilityFlag {
	want := baseClientFlags
	if wantSSL {
		want |= clientSSL
	}
	if wantDB {
		want |= clientConnectWithDB
	}
	if wantMultiStatements {
		want |= clientMultiStatements | clientMultiResults
	}
	return want & serverCaps
}

// buildHandshakeResponse41 encodes the HandshakeResponse41 packet
// (spec 4.3). authResponse is the scrambled password (or plugin-
// specific equivalent); authPluginName is echoed back verbatim so the
// server knows which plugin produced it.
func buildHandshakeResponse41(caps capabilityFlag, charset byte, user, db string, authResponse []byte, authPluginName string) []byte {
	buf := make([]byte, 0, 64+len(user)+len(authResponse)+len(db))
	buf = appendUint32(buf, uint32(caps))
	buf = appendUint32(buf, maxPacketSize)
	buf = append(buf, charset)
	buf = append(buf, make([]byte, 23)...)
	buf = append(buf, user...)
	buf = append(buf, 0x00)

	if caps&clientPluginAuthLenencClientData != 0 {
		buf = appendLengthEncodedString(buf, authResponse)
	} else {
		buf = append(buf, byte(len(authResponse)))
		buf = append(buf, authResponse...)
	}

	if caps&clientConnectWithDB != 0 {
		buf = append(buf, db...)
		buf = append(buf, 0x00)
	}

	if caps&clientPluginAuth != 0 {
		buf = append(buf, authPluginName...)
		buf = append(buf, 0x00)
	}

	return buf
}

// authResponseFor computes the auth response bytes for the named
// plugin against the given salt and password.
func authResponseFor(plugin string, salt []byte, password string) ([]byte, error) {
	switch plugin {
	case authNativePassword, "":
		return scramblePassword(salt, []byte(password)), nil
	case authCachingSHA2:
		// The fast-auth path uses its own SHA256-based scramble
		// against the server's nonce; the server replies with
		// AuthMoreData{0x03} on success instead of an immediate OK.
		return scrambleCachingSHA2(salt, []byte(password)), nil
	case authSHA256Password:
		// sha256_password has no fast-auth path at all: the first
		// round trip always demands either an RSA-encrypted password
		// or a plaintext one over TLS, neither of which this core
		// implements.
		return nil, unsupportedErr("auth plugin " + plugin)
	default:
		return nil, unsupportedErr("auth plugin " + plugin)
	}
}
