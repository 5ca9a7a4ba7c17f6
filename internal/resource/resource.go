// resource.go - Resource type for the shielded actions protocol.
//
// A Resource represents a single unit of private value (token base units of one asset).
// Created resources carry fresh nonce and seed randomness so that two resources created
// by the same key never share a commitment.

package resource

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SerializedSize is the length of a serialized resource: seven 32-byte fields plus the ephemeral flag.
const SerializedSize = 7*common.HashLength + 1

// Resource is a private unit of value. Field order is the serialization order.
type Resource struct {
	LogicRef     common.Hash  // Identifier of the governing forwarder logic
	LabelRef     common.Hash  // Identifier of the asset type
	Quantity     *uint256.Int // Token base units
	ValueRef     common.Hash  // Opaque owner/value binding
	IsEphemeral  bool         // True only for zero-value padding resources
	Nonce        common.Hash  // Fresh per resource
	NkCommitment common.Hash  // Commitment to the spending nullifier key
	RandSeed     common.Hash  // Fresh per resource
}

// New creates a resource with fresh nonce and seed drawn from rng (crypto/rand when nil).
func New(logicRef, labelRef common.Hash, quantity *uint256.Int, valueRef, nkCommitment common.Hash, rng io.Reader) (*Resource, error) {
	nonce, err := randomHash(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to draw nonce: %w", err)
	}
	seed, err := randomHash(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to draw rand seed: %w", err)
	}
	q := new(uint256.Int)
	if quantity != nil {
		q.Set(quantity)
	}
	return &Resource{
		LogicRef:     logicRef,
		LabelRef:     labelRef,
		Quantity:     q,
		ValueRef:     valueRef,
		Nonce:        nonce,
		NkCommitment: nkCommitment,
		RandSeed:     seed,
	}, nil
}

// NewEphemeral creates a zero-quantity padding resource for the given asset.
func NewEphemeral(logicRef, labelRef, valueRef, nkCommitment common.Hash, rng io.Reader) (*Resource, error) {
	r, err := New(logicRef, labelRef, nil, valueRef, nkCommitment, rng)
	if err != nil {
		return nil, err
	}
	r.IsEphemeral = true
	return r, nil
}

// Validate checks that every field is present.
func (r *Resource) Validate() error {
	if r == nil {
		return &MalformedFieldError{Field: "resource", Want: SerializedSize}
	}
	if r.Quantity == nil {
		return &MalformedFieldError{Field: "quantity", Want: 32}
	}
	return nil
}

// Serialize returns the canonical byte encoding:
// logicRef || labelRef || quantity (32-byte big-endian) || valueRef || isEphemeral (1 byte) || nonce || nkCommitment || randSeed.
func (r *Resource) Serialize() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, SerializedSize)
	out = append(out, r.LogicRef[:]...)
	out = append(out, r.LabelRef[:]...)
	q := r.Quantity.Bytes32()
	out = append(out, q[:]...)
	out = append(out, r.ValueRef[:]...)
	if r.IsEphemeral {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, r.Nonce[:]...)
	out = append(out, r.NkCommitment[:]...)
	out = append(out, r.RandSeed[:]...)
	return out, nil
}

// Equal reports whether all eight fields are equal.
func (r *Resource) Equal(o *Resource) bool {
	if r == nil || o == nil {
		return r == o
	}
	if (r.Quantity == nil) != (o.Quantity == nil) {
		return false
	}
	if r.Quantity != nil && !r.Quantity.Eq(o.Quantity) {
		return false
	}
	return r.LogicRef == o.LogicRef &&
		r.LabelRef == o.LabelRef &&
		r.ValueRef == o.ValueRef &&
		r.IsEphemeral == o.IsEphemeral &&
		r.Nonce == o.Nonce &&
		r.NkCommitment == o.NkCommitment &&
		r.RandSeed == o.RandSeed
}

// Copy returns a deep copy of the resource.
func (r *Resource) Copy() *Resource {
	cp := *r
	if r.Quantity != nil {
		cp.Quantity = new(uint256.Int).Set(r.Quantity)
	}
	return &cp
}

// randomHash reads 32 bytes from rng.
func randomHash(rng io.Reader) (common.Hash, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var h common.Hash
	if _, err := io.ReadFull(rng, h[:]); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}
