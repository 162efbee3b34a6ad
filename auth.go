package mysql

import (
	"crypto/sha1"
	"crypto/sha256"
)

// This file implements mysql_native_password scrambling and
// recognizes (without fully implementing) caching_sha2_password, per
// spec 4.3. scramblePassword's signature and call sites are
// reconstructed from
// _examples/julienschmidt-gmysql/packets.go writeAuthPacket
// (scramblePassword(cipher, []byte(conn.cfg.Passwd))); the defining
// auth.go was not part of the retrieved teacher slice.

// scramblePassword computes the mysql_native_password auth response:
// SHA1(password) XOR SHA1(salt || SHA1(SHA1(password))).
// An empty password yields a zero-length response (spec 4.3).
func scramblePassword(salt, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}

	h := sha1.New()
	h.Write(password)
	stage1 := h.Sum(nil)

	h.Reset()
	h.Write(stage1)
	stage2 := h.Sum(nil)

	h.Reset()
	h.Write(salt)
	h.Write(stage2)
	scramble := h.Sum(nil)

	for i := range scramble {
		scramble[i] ^= stage1[i]
	}
	return scramble
}

// scrambleCachingSHA2 computes caching_sha2_password's fast-auth
// response: XOR(SHA256(password), SHA256(SHA256(SHA256(password)) ||
// nonce)). An empty password yields a zero-length response, same as
// mysql_native_password.
func scrambleCachingSHA2(nonce, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}

	h := sha256.New()
	h.Write(password)
	stage1 := h.Sum(nil)

	h.Reset()
	h.Write(stage1)
	stage2 := h.Sum(nil)

	h.Reset()
	h.Write(stage2)
	h.Write(nonce)
	scramble := h.Sum(nil)

	for i := range scramble {
		scramble[i] ^= stage1[i]
	}
	return scramble
}

// cachingSHA2FastAuthResult interprets the single status byte a
// caching_sha2_password server sends in its AuthMoreData packet after
// a cached, successful fast-auth check: 0x03 means "fast auth
// success, an OK packet follows"; anything else means the server
// wants to proceed to full authentication, which this client does not
// support (spec section 9's Open Question, resolved to reject).
func cachingSHA2FastAuthResult(status byte) error {
	const fastAuthSuccess = 0x03
	if status == fastAuthSuccess {
		return nil
	}
	return unsupportedErr("caching_sha2_password full authentication")
}
