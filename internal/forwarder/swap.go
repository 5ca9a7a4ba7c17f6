// swap.go - Swap forwarder: executes venue swaps with tokens released from escrow.
//
// exactInputSingle  approves the venue for exactly amountIn
// exactOutputSingle approves amountInMaximum and revokes what the venue left unused
// rescue            moves any token held by the forwarder to any address
//
// Approvals are always derived from the decoded parameters, and the venue call is
// re-encoded from those same parameters.

package forwarder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
)

// Swap is the forwarder in front of an external swap venue.
type Swap struct {
	gateway
	venue common.Address
}

// NewSwap creates the swap forwarder at self routing to venue, invocable only by authority.
func NewSwap(self, venue, authority common.Address) *Swap {
	s := &Swap{
		gateway: gateway{self: self, authority: authority, logger: zerolog.Nop()},
		venue:   venue,
	}
	s.paths = map[calldata.Selector]path{
		calldata.ExactInputSingleSelector:  s.exactInput,
		calldata.ExactOutputSingleSelector: s.exactOutput,
		calldata.RescueSelector:            s.rescue,
	}
	return s
}

// SetLogger sets the forwarder's logger.
func (s *Swap) SetLogger(l zerolog.Logger) {
	s.logger = l.With().Str("forwarder", s.self.Hex()).Logger()
}

// Venue returns the venue address.
func (s *Swap) Venue() common.Address { return s.venue }

func (s *Swap) exactInput(st *chain.State, args []byte) ([]byte, error) {
	p, err := calldata.DecodeExactInputSingle(args)
	if err != nil {
		return nil, &MalformedCalldataError{Selector: calldata.ExactInputSingleSelector, Err: err}
	}

	st.Approve(p.TokenIn, s.self, s.venue, p.AmountIn)
	out, err := st.Call(s.self, s.venue, calldata.ExactInputSingle(p))
	if err != nil {
		return nil, err
	}
	amountOut, err := calldata.DecodeUint256(out)
	if err != nil {
		return nil, fmt.Errorf("venue returned malformed output: %w", err)
	}
	if amountOut.Lt(p.AmountOutMinimum) {
		return nil, &chain.InsufficientOutputAmountError{Minimum: p.AmountOutMinimum, Actual: amountOut}
	}

	s.emitSwap(st, p.TokenIn, p.TokenOut, p.AmountIn, amountOut)
	return calldata.Uint256(amountOut), nil
}

func (s *Swap) exactOutput(st *chain.State, args []byte) ([]byte, error) {
	p, err := calldata.DecodeExactOutputSingle(args)
	if err != nil {
		return nil, &MalformedCalldataError{Selector: calldata.ExactOutputSingleSelector, Err: err}
	}

	st.Approve(p.TokenIn, s.self, s.venue, p.AmountInMaximum)
	out, err := st.Call(s.self, s.venue, calldata.ExactOutputSingle(p))
	if err != nil {
		return nil, err
	}
	amountIn, err := calldata.DecodeUint256(out)
	if err != nil {
		return nil, fmt.Errorf("venue returned malformed output: %w", err)
	}
	if amountIn.Gt(p.AmountInMaximum) {
		return nil, &chain.ExcessiveInputAmountError{Maximum: p.AmountInMaximum, Required: amountIn}
	}
	// Revoke whatever the venue did not spend.
	st.Approve(p.TokenIn, s.self, s.venue, new(uint256.Int))

	s.emitSwap(st, p.TokenIn, p.TokenOut, amountIn, p.AmountOut)
	return calldata.Uint256(amountIn), nil
}

func (s *Swap) rescue(st *chain.State, args []byte) ([]byte, error) {
	token, to, amount, err := calldata.DecodeRescue(args)
	if err != nil {
		return nil, &MalformedCalldataError{Selector: calldata.RescueSelector, Err: err}
	}
	if err := st.Transfer(token, s.self, to, amount); err != nil {
		return nil, err
	}
	st.Emit(chain.Log{
		Address: s.self,
		Event:   "Rescued",
		Attrs:   map[string]string{"token": token.Hex(), "to": to.Hex(), "amount": amount.Dec()},
	})
	s.logger.Warn().Str("token", token.Hex()).Str("to", to.Hex()).Str("amount", amount.Dec()).Msg("rescue")
	return calldata.True(), nil
}

func (s *Swap) emitSwap(st *chain.State, tokenIn, tokenOut common.Address, in, out *uint256.Int) {
	st.Emit(chain.Log{
		Address: s.self,
		Event:   "Swapped",
		Attrs: map[string]string{
			"token_in":   tokenIn.Hex(),
			"token_out":  tokenOut.Hex(),
			"amount_in":  in.Dec(),
			"amount_out": out.Dec(),
		},
	})
	s.logger.Info().Str("amount_in", in.Dec()).Str("amount_out", out.Dec()).Msg("swap")
}
