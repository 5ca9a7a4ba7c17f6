// state.go - Simulated EVM state for forwarders, the venue and the adapter.
//
// State keeps ERC-20 balances and allowances, an event log, and a registry of
// contracts. Every mutation is journaled so a call can be rolled back to a snapshot,
// the same way a reverted EVM call leaves no trace. State is not safe for concurrent
// use; Chain serializes access to it.

package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Contract is code reachable at an address.
type Contract interface {
	Address() common.Address
	Invoke(st *State, caller common.Address, input []byte) ([]byte, error)
}

// Log is an emitted event.
type Log struct {
	Address common.Address
	Event   string
	Attrs   map[string]string
}

type balanceKey struct {
	token, account common.Address
}

type allowanceKey struct {
	token, owner, spender common.Address
}

// journalEntry undoes one mutation.
type journalEntry interface {
	revert(st *State)
}

type balanceChange struct {
	key  balanceKey
	prev uint256.Int
}

func (c balanceChange) revert(st *State) { st.balances[c.key] = c.prev }

type allowanceChange struct {
	key  allowanceKey
	prev uint256.Int
}

func (c allowanceChange) revert(st *State) { st.allowances[c.key] = c.prev }

type supplyChange struct {
	token common.Address
	prev  uint256.Int
}

func (c supplyChange) revert(st *State) { st.supply[c.token] = c.prev }

type logAppend struct{}

func (logAppend) revert(st *State) { st.logs = st.logs[:len(st.logs)-1] }

// State is the simulated world state.
type State struct {
	balances   map[balanceKey]uint256.Int
	allowances map[allowanceKey]uint256.Int
	supply     map[common.Address]uint256.Int
	logs       []Log
	contracts  map[common.Address]Contract
	journal    []journalEntry
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		balances:   make(map[balanceKey]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
		supply:     make(map[common.Address]uint256.Int),
		contracts:  make(map[common.Address]Contract),
	}
}

// Deploy registers c at its address.
func (st *State) Deploy(c Contract) error {
	if _, exists := st.contracts[c.Address()]; exists {
		return fmt.Errorf("contract already deployed at %s", c.Address().Hex())
	}
	st.contracts[c.Address()] = c
	return nil
}

// Contract returns the contract deployed at addr.
func (st *State) Contract(addr common.Address) (Contract, bool) {
	c, ok := st.contracts[addr]
	return c, ok
}

// Snapshot returns an identifier for the current state.
func (st *State) Snapshot() int {
	return len(st.journal)
}

// RevertToSnapshot undoes every mutation made after snapshot id.
func (st *State) RevertToSnapshot(id int) {
	for i := len(st.journal) - 1; i >= id; i-- {
		st.journal[i].revert(st)
	}
	st.journal = st.journal[:id]
}

// commit drops the journal; earlier snapshots become invalid.
func (st *State) commit() {
	st.journal = st.journal[:0]
}

// Call invokes the contract at to. Effects of a failing call are reverted.
func (st *State) Call(caller, to common.Address, input []byte) ([]byte, error) {
	c, ok := st.contracts[to]
	if !ok {
		return nil, &NoContractError{Address: to}
	}
	snap := st.Snapshot()
	out, err := c.Invoke(st, caller, input)
	if err != nil {
		st.RevertToSnapshot(snap)
		return nil, err
	}
	return out, nil
}

// Emit appends an event to the log.
func (st *State) Emit(l Log) {
	st.logs = append(st.logs, l)
	st.journal = append(st.journal, logAppend{})
}

// Logs returns a copy of all emitted events.
func (st *State) Logs() []Log {
	out := make([]Log, len(st.logs))
	copy(out, st.logs)
	return out
}

// BalanceOf returns account's balance of token.
func (st *State) BalanceOf(token, account common.Address) *uint256.Int {
	v := st.balances[balanceKey{token, account}]
	return new(uint256.Int).Set(&v)
}

// TotalSupply returns the amount of token minted so far.
func (st *State) TotalSupply(token common.Address) *uint256.Int {
	v := st.supply[token]
	return new(uint256.Int).Set(&v)
}

// Allowance returns how much spender may move from owner's token balance.
func (st *State) Allowance(token, owner, spender common.Address) *uint256.Int {
	v := st.allowances[allowanceKey{token, owner, spender}]
	return new(uint256.Int).Set(&v)
}

func (st *State) setBalance(token, account common.Address, v *uint256.Int) {
	key := balanceKey{token, account}
	st.journal = append(st.journal, balanceChange{key: key, prev: st.balances[key]})
	st.balances[key] = *v
}

// Approve sets owner's allowance for spender.
func (st *State) Approve(token, owner, spender common.Address, amount *uint256.Int) {
	key := allowanceKey{token, owner, spender}
	st.journal = append(st.journal, allowanceChange{key: key, prev: st.allowances[key]})
	st.allowances[key] = *amount
}

// Mint credits amount of token to account. The total supply bounds every balance.
func (st *State) Mint(token, account common.Address, amount *uint256.Int) error {
	supply := st.TotalSupply(token)
	if _, overflow := supply.AddOverflow(supply, amount); overflow {
		return fmt.Errorf("mint overflows total supply of %s", token.Hex())
	}
	bal := st.BalanceOf(token, account)
	if _, overflow := bal.AddOverflow(bal, amount); overflow {
		return fmt.Errorf("mint overflows balance of %s", account.Hex())
	}
	st.journal = append(st.journal, supplyChange{token: token, prev: st.supply[token]})
	st.supply[token] = *supply
	st.setBalance(token, account, bal)
	return nil
}

// Transfer moves amount of token from one account to another.
func (st *State) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	fromBal := st.BalanceOf(token, from)
	if fromBal.Lt(amount) {
		return &InsufficientBalanceError{Token: token, Account: from, Have: fromBal, Want: new(uint256.Int).Set(amount)}
	}
	if from == to {
		return nil
	}
	toBal := st.BalanceOf(token, to)
	if _, overflow := toBal.AddOverflow(toBal, amount); overflow {
		return fmt.Errorf("transfer overflows balance of %s", to.Hex())
	}
	st.setBalance(token, from, fromBal.Sub(fromBal, amount))
	st.setBalance(token, to, toBal)
	return nil
}

// TransferFrom moves amount of token from one account to another on behalf of spender,
// consuming allowance.
func (st *State) TransferFrom(token, spender, from, to common.Address, amount *uint256.Int) error {
	allowed := st.Allowance(token, from, spender)
	if allowed.Lt(amount) {
		return &InsufficientAllowanceError{Token: token, Owner: from, Spender: spender, Have: allowed, Want: new(uint256.Int).Set(amount)}
	}
	if err := st.Transfer(token, from, to, amount); err != nil {
		return err
	}
	st.Approve(token, from, spender, allowed.Sub(allowed, amount))
	return nil
}
