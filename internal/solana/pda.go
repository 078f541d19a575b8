package solana

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program ids.
const (
	TokenProgramID                  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenAccountProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

// ErrNoViableBump is returned when every bump seed lands on the curve.
var ErrNoViableBump = errors.New("unable to find a viable program address bump")

// FindProgramAddress derives a program-derived address for seeds under programID.
// It tries bumps from 255 down and returns the first off-curve hash.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", 0, fmt.Errorf("program id: %w", err)
	}
	if len(seeds) > maxSeeds-1 {
		return "", 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return "", 0, fmt.Errorf("seed too long: %d bytes", len(seed))
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// DecodePubkey decodes a base58 public key and checks its length.
func DecodePubkey(key string) ([]byte, error) {
	b, err := base58.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("pubkey %q has %d bytes, want 32", key, len(b))
	}
	return b, nil
}

// VaultAddress derives the vault account for a vault index: ["vault", u64le(index)].
func VaultAddress(vaultProgram string, index uint64) (string, error) {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	addr, _, err := FindProgramAddress([][]byte{[]byte("vault"), idx[:]}, vaultProgram)
	return addr, err
}

// StrategyAddress derives the strategy account at position strategyIndex of vault.
func StrategyAddress(strategyProgram, vault string, strategyIndex uint8) (string, error) {
	v, err := DecodePubkey(vault)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{v, {strategyIndex}}, strategyProgram)
	return addr, err
}

// StrategyUnderlyingAddress derives the token account holding a strategy's underlying.
func StrategyUnderlyingAddress(strategyProgram, strategy string) (string, error) {
	s, err := DecodePubkey(strategy)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{[]byte("underlying"), s}, strategyProgram)
	return addr, err
}

// AssociatedTokenAddress derives owner's associated token account for mint.
func AssociatedTokenAddress(owner, mint string) (string, error) {
	o, err := DecodePubkey(owner)
	if err != nil {
		return "", err
	}
	m, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	tokenProgram, _ := DecodePubkey(TokenProgramID)
	addr, _, err := FindProgramAddress([][]byte{o, tokenProgram, m}, AssociatedTokenAccountProgramID)
	return addr, err
}
