// key.go - Nullifier keys and fixed-width hex parsing.

package resource

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NullifierKey is the 32-byte secret that spends a resource.
type NullifierKey [32]byte

// Hex returns the 0x-prefixed lowercase hex encoding of the key.
func (k NullifierKey) Hex() string { return hexutil.Encode(k[:]) }

// NullifierKeyPair holds a secret key and its commitment.
type NullifierKeyPair struct {
	Secret     NullifierKey
	Commitment common.Hash
}

// GenerateNullifierKey draws a fresh key from rng (crypto/rand when nil) and
// commits to it with the default codec.
func GenerateNullifierKey(rng io.Reader) (*NullifierKeyPair, error) {
	return Default.GenerateKeyPair(rng)
}

// GenerateKeyPair draws a fresh key and commits to it with this codec.
func (c *Codec) GenerateKeyPair(rng io.Reader) (*NullifierKeyPair, error) {
	h, err := randomHash(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to draw nullifier key: %w", err)
	}
	key := NullifierKey(h)
	return &NullifierKeyPair{Secret: key, Commitment: c.KeyCommitment(key)}, nil
}

// ParseNullifierKey decodes a 32-byte hex key with optional 0x prefix.
func ParseNullifierKey(s string) (NullifierKey, error) {
	b, err := ParseFixed("nullifier_key", s, 32)
	if err != nil {
		return NullifierKey{}, err
	}
	return NullifierKey(b), nil
}

// ParseHash decodes a 32-byte hex field with optional 0x prefix.
func ParseHash(field, s string) (common.Hash, error) {
	b, err := ParseFixed(field, s, common.HashLength)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

// ParseFixed decodes hex (optional 0x prefix) that must be exactly width bytes long.
func ParseFixed(field, s string, width int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	} else {
		s = "0x" + s[2:]
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, &MalformedFieldError{Field: field, Want: width, Got: -1, Err: err}
	}
	if len(b) != width {
		return nil, &MalformedFieldError{Field: field, Want: width, Got: len(b)}
	}
	return b, nil
}
