// adapter.go - Protocol adapter contract on the simulated chain.
//
// execute(bytes) carries an RLP transaction. The adapter:
//  1. verifies the proofs
//  2. per action, in order: spends nullifiers, records commitments
//  3. relays every external payload to its forwarder with itself as caller and
//     checks the expected output
//
// Chain state and ledger are updated together or not at all.

package adapter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
	"shieldedactions/internal/transactions"
)

var (
	ErrUnknownForwarder = errors.New("forwarder not registered")
	ErrOutputMismatch   = errors.New("forwarder output mismatch")
)

// Adapter executes shielded transactions.
type Adapter struct {
	addr       common.Address
	ledger     *Ledger
	verifier   Verifier
	forwarders map[common.Address]struct{}
	logger     zerolog.Logger
}

// New creates an adapter at addr recording into ledger.
func New(addr common.Address, ledger *Ledger, verifier Verifier) *Adapter {
	if verifier == nil {
		verifier = AcceptAll{}
	}
	return &Adapter{
		addr:       addr,
		ledger:     ledger,
		verifier:   verifier,
		forwarders: make(map[common.Address]struct{}),
		logger:     zerolog.Nop(),
	}
}

// SetLogger sets the adapter logger.
func (a *Adapter) SetLogger(l zerolog.Logger) { a.logger = l }

// RegisterForwarder allows payloads to be relayed to addrs.
func (a *Adapter) RegisterForwarder(addrs ...common.Address) {
	for _, addr := range addrs {
		a.forwarders[addr] = struct{}{}
	}
}

// Address implements chain.Contract.
func (a *Adapter) Address() common.Address { return a.addr }

// Ledger returns the adapter's ledger.
func (a *Adapter) Ledger() *Ledger { return a.ledger }

// Invoke implements chain.Contract. It accepts execute(bytes) only and returns the
// transaction hash.
func (a *Adapter) Invoke(st *chain.State, caller common.Address, input []byte) ([]byte, error) {
	enc, err := calldata.DecodeExecute(input)
	if err != nil {
		return nil, err
	}
	tx, err := transactions.DecodeTransaction(enc)
	if err != nil {
		return nil, err
	}
	h, err := a.execute(st, tx)
	if err != nil {
		a.logger.Warn().Err(err).Str("submitter", caller.Hex()).Msg("transaction reverted")
		return nil, err
	}
	return h.Bytes(), nil
}

func (a *Adapter) execute(st *chain.State, tx *transactions.Transaction) (common.Hash, error) {
	h, err := tx.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	if err := a.verifier.Verify(tx); err != nil {
		return common.Hash{}, err
	}

	m := a.ledger.mark()
	snap := st.Snapshot()
	fail := func(err error) (common.Hash, error) {
		st.RevertToSnapshot(snap)
		a.ledger.rollback(m)
		return common.Hash{}, err
	}

	for i, act := range tx.Actions {
		// 1. Nullifiers and commitments
		for _, cu := range act.ComplianceUnits {
			if err := a.ledger.spend(cu.Instance.ConsumedNullifier); err != nil {
				return fail(fmt.Errorf("action %d: %w", i, err))
			}
			a.ledger.addCommitment(cu.Instance.CreatedCommitment)
		}

		// 2. Forwarder calls
		for _, in := range act.LogicVerifierInputs {
			for _, blob := range in.AppData.ExternalPayload {
				if err := a.relay(st, blob); err != nil {
					return fail(fmt.Errorf("action %d: %w", i, err))
				}
			}
		}
	}

	a.ledger.addTransaction(h)
	st.Emit(chain.Log{
		Address: a.addr,
		Event:   "TransactionExecuted",
		Attrs:   map[string]string{"hash": h.Hex()},
	})
	a.logger.Info().
		Str("tx", h.Hex()).
		Int("actions", len(tx.Actions)).
		Msg("transaction executed")
	return h, nil
}

func (a *Adapter) relay(st *chain.State, blob []byte) error {
	fwd, input, expected, err := calldata.DecodeExternalPayload(blob)
	if err != nil {
		return err
	}
	if _, ok := a.forwarders[fwd]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownForwarder, fwd.Hex())
	}
	out, err := st.Call(a.addr, fwd, input)
	if err != nil {
		return fmt.Errorf("forwarder %s: %w", fwd.Hex(), err)
	}
	if len(expected) > 0 && !bytes.Equal(out, expected) {
		return fmt.Errorf("%w: %s returned %x, expected %x", ErrOutputMismatch, fwd.Hex(), out, expected)
	}
	return nil
}

// Receipt describes an executed transaction.
type Receipt struct {
	Hash        common.Hash
	Nullifiers  []common.Hash
	Commitments []common.Hash
}

// Submit sends execute calldata from submitter to the adapter deployed on ch.
func (a *Adapter) Submit(ch *chain.Chain, submitter common.Address, data []byte) (*Receipt, error) {
	tx, err := transactions.ParseExecuteCalldata(data)
	if err != nil {
		return nil, err
	}
	out, err := ch.Call(submitter, a.addr, data)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Hash:        common.BytesToHash(out),
		Nullifiers:  tx.Nullifiers(),
		Commitments: tx.Commitments(),
	}, nil
}

// Execute encodes tx and submits it.
func (a *Adapter) Execute(ch *chain.Chain, submitter common.Address, tx *transactions.Transaction) (*Receipt, error) {
	data, err := tx.ExecuteCalldata()
	if err != nil {
		return nil, err
	}
	return a.Submit(ch, submitter, data)
}
