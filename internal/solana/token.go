package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL token account layout: mint(32) | owner(32) | amount(8) | ...
const (
	tokenAccountMintOffset   = 0
	tokenAccountOwnerOffset  = 32
	tokenAccountAmountOffset = 64
	tokenAccountMinLen       = tokenAccountAmountOffset + 8

	// TokenAccountSize is the full size of an SPL token account.
	TokenAccountSize = 165
)

// TokenAccountData is the decoded head of an SPL token account.
type TokenAccountData struct {
	Mint   string
	Owner  string
	Amount uint64
}

// ParseTokenAccount decodes base64 SPL token account data.
func ParseTokenAccount(data string) (*TokenAccountData, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < tokenAccountMinLen {
		return nil, fmt.Errorf("token account data too short: %d", len(decoded))
	}
	return &TokenAccountData{
		Mint:   base58.Encode(decoded[tokenAccountMintOffset:tokenAccountOwnerOffset]),
		Owner:  base58.Encode(decoded[tokenAccountOwnerOffset:tokenAccountAmountOffset]),
		Amount: binary.LittleEndian.Uint64(decoded[tokenAccountAmountOffset:tokenAccountMinLen]),
	}, nil
}

// EncodeTokenAccount builds base64 account data with the given fields.
// Unknown or invalid keys are left zeroed.
func EncodeTokenAccount(mint, owner string, amount uint64) string {
	buf := make([]byte, TokenAccountSize)
	if m, err := DecodePubkey(mint); err == nil {
		copy(buf[tokenAccountMintOffset:], m)
	}
	if o, err := DecodePubkey(owner); err == nil {
		copy(buf[tokenAccountOwnerOffset:], o)
	}
	binary.LittleEndian.PutUint64(buf[tokenAccountAmountOffset:], amount)
	return base64.StdEncoding.EncodeToString(buf)
}
