package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 250, 251, 252, 0xfb, 0xfc, 0xffff, 0x10000, 0xffffff, 0x1000000, 1 << 40, ^uint64(0) >> 1}
	for _, v := range values {
		buf := appendLengthEncodedInteger(nil, v)
		got, isNull, n, ok := readLengthEncodedInteger(buf)
		require.True(t, ok, "v=%d", v)
		assert.False(t, isNull)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestLengthEncodedIntegerNull(t *testing.T) {
	_, isNull, n, ok := readLengthEncodedInteger([]byte{0xfb})
	require.True(t, ok)
	assert.True(t, isNull)
	assert.Equal(t, 1, n)
}

func TestLengthEncodedIntegerReservedByteErrors(t *testing.T) {
	_, _, _, ok := readLengthEncodedInteger([]byte{0xff})
	assert.False(t, ok)
}

func TestLengthEncodedIntegerShortRead(t *testing.T) {
	// 0xfd declares a 3-byte integer but only one is available.
	_, _, _, ok := readLengthEncodedInteger([]byte{0xfd, 0x01})
	assert.False(t, ok)
}

func TestLengthEncodedStringRoundTrip(t *testing.T) {
	s := []byte("hello, mysql")
	buf := appendLengthEncodedString(nil, s)
	got, isNull, n, ok := readLengthEncodedString(buf)
	require.True(t, ok)
	assert.False(t, isNull)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, s, got)
}

func TestLengthEncodedStringNull(t *testing.T) {
	data, isNull, n, ok := readLengthEncodedString([]byte{0xfb, 'x'})
	require.True(t, ok)
	assert.True(t, isNull)
	assert.Equal(t, 1, n)
	assert.Nil(t, data)
}

func TestNullTerminatedStringRoundTrip(t *testing.T) {
	buf := append([]byte("server-5.7.0"), 0x00, 'x')
	s, n, ok := readNullTerminatedString(buf)
	require.True(t, ok)
	assert.Equal(t, "server-5.7.0", string(s))
	assert.Equal(t, 13, n)
}

func TestFixedWidthIntegerRoundTrip(t *testing.T) {
	b2 := make([]byte, 2)
	putUint16(b2, 0xabcd)
	assert.Equal(t, uint16(0xabcd), readUint16(b2))

	b3 := make([]byte, 3)
	putUint24(b3, 0xabcdef)
	assert.Equal(t, uint32(0xabcdef), readUint24(b3))

	b4 := make([]byte, 4)
	putUint32(b4, 0xdeadbeef)
	assert.Equal(t, uint32(0xdeadbeef), readUint32(b4))

	b8 := make([]byte, 8)
	putUint64(b8, 0x0102030405060708)
	assert.Equal(t, uint64(0x0102030405060708), readUint64(b8))
}
