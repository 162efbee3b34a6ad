package mysql

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScramblePasswordReferenceVector(t *testing.T) {
	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = byte(i + 1)
	}
	got := scramblePassword(salt, []byte("secret"))

	want, err := hex.DecodeString("b32bb3a583e1340c0a1108d58b1be49781ad8c2f")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestScramblePasswordEmptyPasswordYieldsEmptyResponse(t *testing.T) {
	salt := make([]byte, 20)
	assert.Empty(t, scramblePassword(salt, nil))
	assert.Empty(t, scramblePassword(salt, []byte("")))
}

func TestScrambleCachingSHA2ReferenceVector(t *testing.T) {
	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = byte(i + 1)
	}
	got := scrambleCachingSHA2(salt, []byte("secret"))

	want, err := hex.DecodeString("746ebe205d56a0707acb3e796e834e0dd7b1d61743b26bd5202c7a623230c7c9")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestScrambleCachingSHA2EmptyPasswordYieldsEmptyResponse(t *testing.T) {
	salt := make([]byte, 20)
	assert.Empty(t, scrambleCachingSHA2(salt, nil))
	assert.Empty(t, scrambleCachingSHA2(salt, []byte("")))
}

func TestCachingSHA2FastAuthResult(t *testing.T) {
	assert.NoError(t, cachingSHA2FastAuthResult(0x03))
	assert.Error(t, cachingSHA2FastAuthResult(0x04))
}
