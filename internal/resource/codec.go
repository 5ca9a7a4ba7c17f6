// codec.go - Commitment, nullifier and key commitment derivation.
//
// commitment    = H(serialize(R))
// nullifier     = H(serialize(R) || secretKey)
// keyCommitment = H(secretKey)
//
// A deployment fixes one hash scheme. SHA-256 is the default; MiMC over the BN254
// scalar field is the circuit-friendly alternative.

package resource

import (
	"crypto/sha256"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/ethereum/go-ethereum/common"
)

// Scheme names a hash function used for derivations.
type Scheme string

const (
	SchemeSHA256 Scheme = "sha256"
	SchemeMiMC   Scheme = "mimc-bn254"
)

// limbSize is the number of input bytes absorbed per MiMC field element.
// 16-byte limbs are always below the BN254 modulus, so no input is reduced.
const limbSize = 16

// Codec derives commitments and nullifiers under a fixed hash scheme.
// It is stateless and safe for concurrent use.
type Codec struct {
	scheme Scheme
	sum    func(data []byte) (common.Hash, error)
}

// Default is the SHA-256 codec.
var Default = MustCodec(SchemeSHA256)

// NewCodec returns the codec for scheme. An empty scheme selects SHA-256.
func NewCodec(scheme Scheme) (*Codec, error) {
	switch scheme {
	case "", SchemeSHA256:
		return &Codec{scheme: SchemeSHA256, sum: sha256Sum}, nil
	case SchemeMiMC:
		return &Codec{scheme: SchemeMiMC, sum: mimcSum}, nil
	default:
		return nil, fmt.Errorf("unknown hash scheme %q", scheme)
	}
}

// MustCodec is NewCodec that panics on an unknown scheme.
func MustCodec(scheme Scheme) *Codec {
	c, err := NewCodec(scheme)
	if err != nil {
		panic(err)
	}
	return c
}

// Scheme returns the codec's hash scheme.
func (c *Codec) Scheme() Scheme { return c.scheme }

// Commitment returns H(serialize(r)).
func (c *Codec) Commitment(r *Resource) (common.Hash, error) {
	data, err := r.Serialize()
	if err != nil {
		return common.Hash{}, err
	}
	return c.sum(data)
}

// Nullifier returns H(serialize(r) || key).
func (c *Codec) Nullifier(r *Resource, key NullifierKey) (common.Hash, error) {
	data, err := r.Serialize()
	if err != nil {
		return common.Hash{}, err
	}
	data = append(data, key[:]...)
	return c.sum(data)
}

// KeyCommitment returns H(key).
func (c *Codec) KeyCommitment(key NullifierKey) common.Hash {
	h, err := c.sum(key[:])
	if err != nil {
		// Both schemes accept any 32-byte input.
		panic(err)
	}
	return h
}

// Commitment derives the commitment of r with the default codec.
func Commitment(r *Resource) (common.Hash, error) {
	return Default.Commitment(r)
}

// Nullifier derives the nullifier of r under key with the default codec.
func Nullifier(r *Resource, key NullifierKey) (common.Hash, error) {
	return Default.Nullifier(r, key)
}

// DeriveKeyCommitment derives the commitment of key with the default codec.
func DeriveKeyCommitment(key NullifierKey) common.Hash {
	return Default.KeyCommitment(key)
}

func sha256Sum(data []byte) (common.Hash, error) {
	return common.Hash(sha256.Sum256(data)), nil
}

// mimcSum absorbs data in 16-byte limbs, each left-padded to one field element.
// A short final limb is right-padded with zeros; inputs are fixed width so this is unambiguous.
func mimcSum(data []byte) (common.Hash, error) {
	h := mimc.NewMiMC()
	var block [mimc.BlockSize]byte
	for start := 0; start < len(data); start += limbSize {
		end := start + limbSize
		if end > len(data) {
			end = len(data)
		}
		clear(block[:])
		copy(block[mimc.BlockSize-limbSize:], data[start:end])
		if _, err := h.Write(block[:]); err != nil {
			return common.Hash{}, fmt.Errorf("mimc absorb: %w", err)
		}
	}
	return common.BytesToHash(h.Sum(nil)), nil
}
