// unshield.go - Unshield: private resource back into a public ERC-20 balance.

package transactions

import (
	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/resource"
)

// BuildUnshield builds the transaction releasing r's quantity to recipient.
// The forwarder is resolved from r.LogicRef; an unknown logic ref is an error, never a default.
func (b *Builder) BuildUnshield(r *resource.Resource, recipient common.Address, key resource.NullifierKey) (*UnshieldResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := b.checkKey(r, key); err != nil {
		return nil, err
	}
	asset, err := b.assetOf(r)
	if err != nil {
		return nil, err
	}
	if r.IsEphemeral || r.Quantity.IsZero() {
		return nil, &ValidationError{Field: "resource", Reason: "carries no value"}
	}
	if recipient == (common.Address{}) {
		return nil, &ValidationError{Field: "recipient", Reason: "zero address"}
	}

	call := ForwarderCall{
		To:             asset.Forwarder,
		Data:           calldata.Transfer(recipient, r.Quantity),
		ExpectedOutput: calldata.True(),
	}

	padding, err := resource.NewEphemeral(r.LogicRef, r.LabelRef, r.ValueRef, r.NkCommitment, b.rng)
	if err != nil {
		return nil, err
	}
	act, nf, _, err := b.action(r, key, [][]byte{call.Payload()}, padding, nil)
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("token", asset.Symbol).
		Str("quantity", r.Quantity.Dec()).
		Str("nullifier", nf.Hex()).
		Msg("built unshield transaction")

	return &UnshieldResult{
		Nullifier:   nf,
		Transaction: &Transaction{Actions: []Action{*act}},
		Call:        call,
	}, nil
}
