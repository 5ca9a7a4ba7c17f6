// swap.go - Swap: one private resource into a resource of another asset.
//
// The consumed input resource carries two calls, executed in order by the adapter:
//   - release: the input escrow forwarder transfers the input quantity to the swap forwarder
//   - swap: the swap forwarder runs exactInputSingle with the output escrow as recipient
//
// The output resource keeps the input's valueRef and key, takes the output asset's refs,
// and holds the minimum accepted output. Any surplus the venue delivers stays in escrow.

package transactions

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/resource"
)

// BuildSwap builds the transaction swapping input into outputToken.
// minAmountOut is a decimal amount in outputToken units.
func (b *Builder) BuildSwap(input *resource.Resource, outputToken string, key resource.NullifierKey, minAmountOut string) (*SwapResult, error) {
	// 1. Validate the input resource and its spending key
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := b.checkKey(input, key); err != nil {
		return nil, err
	}
	if input.IsEphemeral || input.Quantity.IsZero() {
		return nil, &ValidationError{Field: "input_resource", Reason: "carries no value"}
	}

	// 2. Resolve both assets and the venue forwarder
	inAsset, err := b.assetOf(input)
	if err != nil {
		return nil, err
	}
	outAsset, ok := b.assets.BySymbol(outputToken)
	if !ok {
		return nil, &UnknownTokenError{Token: outputToken}
	}
	if inAsset.Symbol == outAsset.Symbol {
		return nil, &ValidationError{Field: "output_token", Reason: fmt.Sprintf("cannot swap %s into itself", inAsset.Symbol)}
	}
	if b.swapForwarder == (common.Address{}) {
		return nil, &ValidationError{Field: "swap_forwarder", Reason: "not configured"}
	}
	minOut, err := ParseAmount(minAmountOut, outAsset.Decimals)
	if err != nil {
		return nil, err
	}
	if minOut.IsZero() {
		return nil, &ValidationError{Field: "min_amount_out", Reason: "must be positive"}
	}

	// 3. Output resource bound to the same owner and key
	output, err := resource.New(outAsset.LogicRef, outAsset.LabelRef, minOut, input.ValueRef, input.NkCommitment, b.rng)
	if err != nil {
		return nil, err
	}

	// 4. Release and swap calls
	release := ForwarderCall{
		To:             inAsset.Forwarder,
		Data:           calldata.Transfer(b.swapForwarder, input.Quantity),
		ExpectedOutput: calldata.True(),
	}
	call := ForwarderCall{
		To: b.swapForwarder,
		Data: calldata.ExactInputSingle(calldata.ExactInputSingleParams{
			TokenIn:           inAsset.Token,
			TokenOut:          outAsset.Token,
			Fee:               b.poolFee,
			Recipient:         outAsset.Forwarder,
			AmountIn:          input.Quantity,
			AmountOutMinimum:  minOut,
			SqrtPriceLimitX96: new(uint256.Int),
		}),
	}

	// 5. One action: input in, output out
	act, nf, cm, err := b.action(input, key, [][]byte{release.Payload(), call.Payload()}, output, nil)
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("from", inAsset.Symbol).
		Str("to", outAsset.Symbol).
		Str("amount_in", input.Quantity.Dec()).
		Str("min_out", minOut.Dec()).
		Str("nullifier", nf.Hex()).
		Str("commitment", cm.Hex()).
		Msg("built swap transaction")

	return &SwapResult{
		Nullifier:   nf,
		Resource:    output,
		Transaction: &Transaction{Actions: []Action{*act}},
		Call:        call,
		Release:     release,
	}, nil
}
