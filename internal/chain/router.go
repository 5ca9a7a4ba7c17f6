// router.go - Fixed-rate swap venue.
//
// Router answers the SwapRouter02 exactInputSingle and exactOutputSingle calls
// against pools with a fixed exchange rate. It pulls the input from the caller with
// transferFrom, so the caller must approve it first, and pays the output from its own
// liquidity. It stands in for a real DEX in demos and tests; pricing is not modelled.

package chain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"shieldedactions/internal/calldata"
)

// Rate prices a pool: amountOut = amountIn * Num / Den.
type Rate struct {
	Num uint64
	Den uint64
}

type poolKey struct {
	tokenIn, tokenOut common.Address
	fee               uint32
}

// Router is a fixed-rate venue contract.
type Router struct {
	addr  common.Address
	pools map[poolKey]Rate
}

// NewRouter creates a router without pools.
func NewRouter(addr common.Address) *Router {
	return &Router{addr: addr, pools: make(map[poolKey]Rate)}
}

// Address implements Contract.
func (r *Router) Address() common.Address { return r.addr }

// SetPool prices tokenIn -> tokenOut at the given fee tier.
func (r *Router) SetPool(tokenIn, tokenOut common.Address, fee uint32, rate Rate) {
	r.pools[poolKey{tokenIn, tokenOut, fee}] = rate
}

// Invoke implements Contract.
func (r *Router) Invoke(st *State, caller common.Address, input []byte) ([]byte, error) {
	sel, args, err := calldata.Split(input)
	if err != nil {
		return nil, err
	}
	switch sel {
	case calldata.ExactInputSingleSelector:
		p, err := calldata.DecodeExactInputSingle(args)
		if err != nil {
			return nil, err
		}
		out, err := r.exactInput(st, caller, p)
		if err != nil {
			return nil, err
		}
		return calldata.Uint256(out), nil
	case calldata.ExactOutputSingleSelector:
		p, err := calldata.DecodeExactOutputSingle(args)
		if err != nil {
			return nil, err
		}
		in, err := r.exactOutput(st, caller, p)
		if err != nil {
			return nil, err
		}
		return calldata.Uint256(in), nil
	default:
		return nil, &UnsupportedCallError{Contract: r.addr, Selector: sel}
	}
}

func (r *Router) pool(tokenIn, tokenOut common.Address, fee uint32) (Rate, error) {
	rate, ok := r.pools[poolKey{tokenIn, tokenOut, fee}]
	if !ok || rate.Num == 0 || rate.Den == 0 {
		return Rate{}, &UnsupportedPairError{TokenIn: tokenIn, TokenOut: tokenOut, Fee: fee}
	}
	return rate, nil
}

var errRateOverflow = errors.New("router: amount overflows pool math")

// QuoteExactInput returns the output for amountIn.
func (rate Rate) QuoteExactInput(amountIn *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, uint256.NewInt(rate.Num), uint256.NewInt(rate.Den))
	if overflow {
		return nil, errRateOverflow
	}
	return out, nil
}

// QuoteExactOutput returns the input needed for amountOut, rounded up.
func (rate Rate) QuoteExactOutput(amountOut *uint256.Int) (*uint256.Int, error) {
	prod, overflow := new(uint256.Int).MulOverflow(amountOut, uint256.NewInt(rate.Den))
	if overflow {
		return nil, errRateOverflow
	}
	num := uint256.NewInt(rate.Num)
	in := new(uint256.Int).Div(prod, num)
	if !new(uint256.Int).Mod(prod, num).IsZero() {
		in.AddUint64(in, 1)
	}
	return in, nil
}

func (r *Router) exactInput(st *State, caller common.Address, p calldata.ExactInputSingleParams) (*uint256.Int, error) {
	rate, err := r.pool(p.TokenIn, p.TokenOut, p.Fee)
	if err != nil {
		return nil, err
	}
	out, err := rate.QuoteExactInput(p.AmountIn)
	if err != nil {
		return nil, err
	}
	if out.Lt(p.AmountOutMinimum) {
		return nil, &InsufficientOutputAmountError{Minimum: p.AmountOutMinimum, Actual: out}
	}
	if err := r.settle(st, caller, p.TokenIn, p.TokenOut, p.Recipient, p.AmountIn, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Router) exactOutput(st *State, caller common.Address, p calldata.ExactOutputSingleParams) (*uint256.Int, error) {
	rate, err := r.pool(p.TokenIn, p.TokenOut, p.Fee)
	if err != nil {
		return nil, err
	}
	in, err := rate.QuoteExactOutput(p.AmountOut)
	if err != nil {
		return nil, err
	}
	if in.Gt(p.AmountInMaximum) {
		return nil, &ExcessiveInputAmountError{Maximum: p.AmountInMaximum, Required: in}
	}
	if err := r.settle(st, caller, p.TokenIn, p.TokenOut, p.Recipient, in, p.AmountOut); err != nil {
		return nil, err
	}
	return in, nil
}

func (r *Router) settle(st *State, payer, tokenIn, tokenOut, recipient common.Address, in, out *uint256.Int) error {
	if err := st.TransferFrom(tokenIn, r.addr, payer, r.addr, in); err != nil {
		return err
	}
	if err := st.Transfer(tokenOut, r.addr, recipient, out); err != nil {
		return err
	}
	st.Emit(Log{
		Address: r.addr,
		Event:   "Swap",
		Attrs: map[string]string{
			"token_in":   tokenIn.Hex(),
			"token_out":  tokenOut.Hex(),
			"amount_in":  in.Dec(),
			"amount_out": out.Dec(),
			"recipient":  recipient.Hex(),
		},
	})
	return nil
}
