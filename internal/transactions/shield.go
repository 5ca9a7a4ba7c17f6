// shield.go - Shield: public ERC-20 balance into a private resource.
//
// The action consumes an ephemeral zero-quantity padding resource and creates the
// new resource. The created side carries transferFrom(sender, forwarder, amount),
// which the escrow forwarder executes to pull the tokens into escrow.

package transactions

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/resource"
)

// BuildShield builds the transaction shielding amount of token from sender.
// The new resource is spendable by key.
func (b *Builder) BuildShield(token, amount string, sender common.Address, key resource.NullifierKey) (*ShieldResult, error) {
	// 1. Resolve the asset and convert the amount to base units
	asset, ok := b.assets.BySymbol(token)
	if !ok {
		return nil, &UnknownTokenError{Token: token}
	}
	qty, err := ParseAmount(amount, asset.Decimals)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() {
		return nil, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%q rounds to zero base units", amount)}
	}
	if sender == (common.Address{}) {
		return nil, &ValidationError{Field: "sender", Reason: "zero address"}
	}

	// 2. Create the resource and its padding counterpart
	nkCommitment := b.codec.KeyCommitment(key)
	valueRef := common.BytesToHash(sender.Bytes())
	created, err := resource.New(asset.LogicRef, asset.LabelRef, qty, valueRef, nkCommitment, b.rng)
	if err != nil {
		return nil, err
	}
	padding, err := resource.NewEphemeral(asset.LogicRef, asset.LabelRef, valueRef, nkCommitment, b.rng)
	if err != nil {
		return nil, err
	}

	// 3. Deposit call into the asset's escrow forwarder
	call := ForwarderCall{
		To:             asset.Forwarder,
		Data:           calldata.TransferFrom(sender, asset.Forwarder, qty),
		ExpectedOutput: calldata.True(),
	}

	// 4. One action: padding in, new resource out
	act, _, cm, err := b.action(padding, key, nil, created, [][]byte{call.Payload()})
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("token", asset.Symbol).
		Str("quantity", qty.Dec()).
		Str("commitment", cm.Hex()).
		Msg("built shield transaction")

	return &ShieldResult{
		Resource:    created,
		Transaction: &Transaction{Actions: []Action{*act}},
		Call:        call,
	}, nil
}
