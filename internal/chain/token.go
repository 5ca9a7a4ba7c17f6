// token.go - ERC-20 contract over the state's balance and allowance tables.
//
// Users approve forwarders through it before shielding; forwarders and the router
// use the State methods directly.

package chain

import (
	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/calldata"
)

// Token is the ERC-20 contract of one token address.
type Token struct {
	addr common.Address
}

// NewToken creates the contract for the token at addr.
func NewToken(addr common.Address) *Token {
	return &Token{addr: addr}
}

// Address implements Contract.
func (t *Token) Address() common.Address { return t.addr }

// Invoke implements Contract for approve, transfer, transferFrom and balanceOf.
func (t *Token) Invoke(st *State, caller common.Address, input []byte) ([]byte, error) {
	sel, args, err := calldata.Split(input)
	if err != nil {
		return nil, err
	}
	switch sel {
	case calldata.ApproveSelector:
		spender, amount, err := calldata.DecodeApprove(args)
		if err != nil {
			return nil, err
		}
		st.Approve(t.addr, caller, spender, amount)
		st.Emit(Log{Address: t.addr, Event: "Approval", Attrs: map[string]string{
			"owner": caller.Hex(), "spender": spender.Hex(), "amount": amount.Dec(),
		}})
		return calldata.True(), nil

	case calldata.TransferSelector:
		to, amount, err := calldata.DecodeTransfer(args)
		if err != nil {
			return nil, err
		}
		if err := st.Transfer(t.addr, caller, to, amount); err != nil {
			return nil, err
		}
		return calldata.True(), nil

	case calldata.TransferFromSelector:
		from, to, amount, err := calldata.DecodeTransferFrom(args)
		if err != nil {
			return nil, err
		}
		if err := st.TransferFrom(t.addr, caller, from, to, amount); err != nil {
			return nil, err
		}
		return calldata.True(), nil

	case calldata.BalanceOfSelector:
		account, err := calldata.DecodeBalanceOf(args)
		if err != nil {
			return nil, err
		}
		return calldata.Uint256(st.BalanceOf(t.addr, account)), nil
	}
	return nil, &UnsupportedCallError{Contract: t.addr, Selector: sel}
}
