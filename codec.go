package mysql

import (
	"encoding/binary"
	"math"
)

// This file is the Byte Codec component: fixed-width integer and
// float encodings, length-encoded integers/strings, and
// null-terminated strings, all operating on an in-memory byte slice
// (the Packet Framer guarantees a codec call always sees a complete
// payload). Grounded on the primitives go-sql-driver/mysql calls from
// packets.go/convert.go (readLengthEncodedInteger,
// appendLengthEncodedInteger, readLengthEncodedString,
// skipLengthEncodedString) — those call sites survived in the
// retrieved teacher slice even though the defining file did not.

func readUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func readUint24(b []byte) uint32 { return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 }
func readUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func readUint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func putUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

func readFloat32(b []byte) float32 { return math.Float32frombits(readUint32(b)) }
func readFloat64(b []byte) float64 { return math.Float64frombits(readUint64(b)) }

func putFloat32(b []byte, v float32) { putUint32(b, math.Float32bits(v)) }
func putFloat64(b []byte, v float64) { putUint64(b, math.Float64bits(v)) }

// readLengthEncodedInteger decodes a lenenc-int per spec 4.1. The
// third return is the number of bytes consumed; the fourth reports
// whether enough bytes were available — false means "need more
// bytes", and b is left untouched (nothing is partially consumed).
func readLengthEncodedInteger(b []byte) (value uint64, isNull bool, n int, ok bool) {
	if len(b) == 0 {
		return 0, false, 0, false
	}
	switch b[0] {
	case 0xfb:
		return 0, true, 1, true
	case 0xfc:
		if len(b) < 3 {
			return 0, false, 0, false
		}
		return uint64(readUint16(b[1:3])), false, 3, true
	case 0xfd:
		if len(b) < 4 {
			return 0, false, 0, false
		}
		return uint64(readUint24(b[1:4])), false, 4, true
	case 0xfe:
		if len(b) < 9 {
			return 0, false, 0, false
		}
		return readUint64(b[1:9]), false, 9, true
	case 0xff:
		// reserved: must error when read (spec 4.1).
		return 0, false, 1, false
	default:
		return uint64(b[0]), false, 1, true
	}
}

// appendLengthEncodedInteger appends the lenenc-int encoding of v.
func appendLengthEncodedInteger(b []byte, v uint64) []byte {
	switch {
	case v < 0xfb:
		return append(b, byte(v))
	case v <= 0xffff:
		return append(b, 0xfc, byte(v), byte(v>>8))
	case v <= 0xffffff:
		return append(b, 0xfd, byte(v), byte(v>>8), byte(v>>16))
	default:
		return append(b, 0xfe, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
			byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
	}
}

// readLengthEncodedString decodes a lenenc-string: a lenenc-int
// length prefix followed by that many raw bytes, or the single byte
// 0xfb standing for SQL NULL. n is the total bytes consumed.
func readLengthEncodedString(b []byte) (data []byte, isNull bool, n int, ok bool) {
	length, isNull, hn, ok := readLengthEncodedInteger(b)
	if !ok {
		return nil, false, 0, false
	}
	if isNull {
		return nil, true, hn, true
	}
	end := hn + int(length)
	if end > len(b) {
		return nil, false, 0, false
	}
	return b[hn:end], false, end, true
}

// skipLengthEncodedString returns the number of bytes a lenenc-string
// occupies without copying its payload out.
func skipLengthEncodedString(b []byte) (n int, ok bool) {
	length, isNull, hn, ok := readLengthEncodedInteger(b)
	if !ok {
		return 0, false
	}
	if isNull {
		return hn, true
	}
	end := hn + int(length)
	if end > len(b) {
		return 0, false
	}
	return end, true
}

// appendLengthEncodedString appends a lenenc-int length prefix
// followed by s.
func appendLengthEncodedString(b []byte, s []byte) []byte {
	b = appendLengthEncodedInteger(b, uint64(len(s)))
	return append(b, s...)
}

// readNullTerminatedString reads up to the first 0x00 byte. n counts
// the terminator.
func readNullTerminatedString(b []byte) (s []byte, n int, ok bool) {
	for i, c := range b {
		if c == 0 {
			return b[:i], i + 1, true
		}
	}
	return nil, 0, false
}
