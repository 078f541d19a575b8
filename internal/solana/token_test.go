package solana

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenAccount(t *testing.T) {
	const (
		mint  = "gMiieh8f3j6VVRaSKqxa2iiznqXCNkY6ocr65YCY7i1"
		owner = "ATdWqQQrwKbwbGv2zmD2nfcXsmTVA62eXWEtundAdwfE"
	)
	data := EncodeTokenAccount(mint, owner, 1_234_567_890)

	acc, err := ParseTokenAccount(data)
	require.NoError(t, err)
	assert.Equal(t, mint, acc.Mint)
	assert.Equal(t, owner, acc.Owner)
	assert.Equal(t, uint64(1_234_567_890), acc.Amount)
}

func TestParseTokenAccount_AmountOffset(t *testing.T) {
	buf := make([]byte, 72)
	// little-endian 0x0102 at offset 64
	buf[64] = 0x02
	buf[65] = 0x01

	acc, err := ParseTokenAccount(base64.StdEncoding.EncodeToString(buf))
	require.NoError(t, err)
	assert.Equal(t, uint64(258), acc.Amount)
}

func TestParseTokenAccount_Invalid(t *testing.T) {
	_, err := ParseTokenAccount("!!!")
	assert.Error(t, err)

	_, err = ParseTokenAccount(base64.StdEncoding.EncodeToString(make([]byte, 71)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
