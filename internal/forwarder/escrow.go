// escrow.go - Escrow forwarder: holds one token on behalf of the privacy layer.
//
// deposit  (0x23b872dd, transferFrom-shaped): (from, to, amount), to must be the forwarder
// withdraw (0xa9059cbb, transfer-shaped):     (to, amount), any recipient

package forwarder

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
)

// Escrow is the forwarder for one shieldable token.
type Escrow struct {
	gateway
	token common.Address
}

// NewEscrow creates the escrow forwarder at self for token, invocable only by authority.
func NewEscrow(self, token, authority common.Address) *Escrow {
	e := &Escrow{
		gateway: gateway{self: self, authority: authority, logger: zerolog.Nop()},
		token:   token,
	}
	e.paths = map[calldata.Selector]path{
		calldata.TransferFromSelector: e.deposit,
		calldata.TransferSelector:     e.withdraw,
	}
	return e
}

// SetLogger sets the forwarder's logger.
func (e *Escrow) SetLogger(l zerolog.Logger) {
	e.logger = l.With().Str("forwarder", e.self.Hex()).Logger()
}

// Token returns the escrowed token.
func (e *Escrow) Token() common.Address { return e.token }

// Escrowed returns the forwarder's balance of its token.
func (e *Escrow) Escrowed(st *chain.State) *uint256.Int {
	return st.BalanceOf(e.token, e.self)
}

func (e *Escrow) deposit(st *chain.State, args []byte) ([]byte, error) {
	from, to, amount, err := calldata.DecodeTransferFrom(args)
	if err != nil {
		return nil, &MalformedCalldataError{Selector: calldata.TransferFromSelector, Err: err}
	}
	if to != e.self {
		return nil, &InvalidRecipientError{Expected: e.self, Actual: to}
	}
	if err := st.TransferFrom(e.token, e.self, from, e.self, amount); err != nil {
		return nil, err
	}
	st.Emit(chain.Log{
		Address: e.self,
		Event:   "Deposited",
		Attrs:   map[string]string{"from": from.Hex(), "amount": amount.Dec()},
	})
	e.logger.Info().Str("from", from.Hex()).Str("amount", amount.Dec()).Msg("deposit")
	return calldata.True(), nil
}

func (e *Escrow) withdraw(st *chain.State, args []byte) ([]byte, error) {
	to, amount, err := calldata.DecodeTransfer(args)
	if err != nil {
		return nil, &MalformedCalldataError{Selector: calldata.TransferSelector, Err: err}
	}
	if err := st.Transfer(e.token, e.self, to, amount); err != nil {
		return nil, err
	}
	st.Emit(chain.Log{
		Address: e.self,
		Event:   "Withdrawn",
		Attrs:   map[string]string{"to": to.Hex(), "amount": amount.Dec()},
	})
	e.logger.Info().Str("to", to.Hex()).Str("amount", amount.Dec()).Msg("withdraw")
	return calldata.True(), nil
}
