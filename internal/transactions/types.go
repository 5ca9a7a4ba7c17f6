// types.go - Transaction envelope for the shielded actions protocol.
//
// A Transaction is an ordered list of Actions plus a delta proof attesting value
// conservation. Actions execute in order and the whole transaction is atomic.
// Proof fields are empty in a skeleton and filled in by the prover.

package transactions

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/resource"
)

// ComplianceInstance is the public instance of one compliance proof:
// one consumed resource and one created resource.
type ComplianceInstance struct {
	ConsumedNullifier common.Hash
	ConsumedLogicRef  common.Hash
	CreatedCommitment common.Hash
	CreatedLogicRef   common.Hash
}

// ComplianceUnit pairs an opaque proof with its public instance.
type ComplianceUnit struct {
	Proof    []byte
	Instance ComplianceInstance
}

// AppData carries application data attached to a logic proof.
type AppData struct {
	ExternalPayload [][]byte // abi.encode(forwarder, input, expectedOutput) blobs
}

// LogicVerifierInput is the input of one resource logic proof.
// Tag is the nullifier of a consumed resource or the commitment of a created one.
type LogicVerifierInput struct {
	Tag          common.Hash
	VerifyingKey common.Hash
	IsConsumed   bool
	AppData      AppData
	Proof        []byte
}

// Action is one state transition.
type Action struct {
	ComplianceUnits     []ComplianceUnit
	LogicVerifierInputs []LogicVerifierInput
}

// Transaction is an ordered, value-conserving list of actions.
type Transaction struct {
	Actions    []Action
	DeltaProof []byte
}

// Encode returns the RLP encoding of the transaction.
func (tx *Transaction) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

// Hash returns keccak256 of the RLP encoding.
func (tx *Transaction) Hash() (common.Hash, error) {
	enc, err := tx.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// ExecuteCalldata returns execute(bytes) calldata for the protocol adapter.
func (tx *Transaction) ExecuteCalldata() ([]byte, error) {
	enc, err := tx.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return calldata.Execute(enc), nil
}

// Nullifiers returns the consumed nullifiers of all actions, in order.
func (tx *Transaction) Nullifiers() []common.Hash {
	var out []common.Hash
	for _, a := range tx.Actions {
		for _, cu := range a.ComplianceUnits {
			out = append(out, cu.Instance.ConsumedNullifier)
		}
	}
	return out
}

// Commitments returns the created commitments of all actions, in order.
func (tx *Transaction) Commitments() []common.Hash {
	var out []common.Hash
	for _, a := range tx.Actions {
		for _, cu := range a.ComplianceUnits {
			out = append(out, cu.Instance.CreatedCommitment)
		}
	}
	return out
}

// DecodeTransaction parses an RLP-encoded transaction.
func DecodeTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := rlp.DecodeBytes(b, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// ParseExecuteCalldata extracts the transaction from execute(bytes) calldata.
func ParseExecuteCalldata(data []byte) (*Transaction, error) {
	enc, err := calldata.DecodeExecute(data)
	if err != nil {
		return nil, err
	}
	return DecodeTransaction(enc)
}

// ForwarderCall is a call the adapter relays to a registered forwarder.
// An empty ExpectedOutput means the output is not checked.
type ForwarderCall struct {
	To             common.Address `json:"to"`
	Data           hexutil.Bytes  `json:"data"`
	ExpectedOutput hexutil.Bytes  `json:"expected_output,omitempty"`
}

// Selector returns the first four bytes of Data.
func (c ForwarderCall) Selector() calldata.Selector {
	s, _, _ := calldata.Split(c.Data)
	return s
}

// Payload returns the external payload blob carrying this call.
func (c ForwarderCall) Payload() []byte {
	return calldata.ExternalPayload(c.To, c.Data, c.ExpectedOutput)
}

// ShieldResult is the output of BuildShield.
type ShieldResult struct {
	Resource    *resource.Resource
	Transaction *Transaction
	Call        ForwarderCall
}

// SwapResult is the output of BuildSwap. Release moves the input tokens from their
// escrow to the swap forwarder ahead of Call.
type SwapResult struct {
	Nullifier   common.Hash
	Resource    *resource.Resource
	Transaction *Transaction
	Call        ForwarderCall
	Release     ForwarderCall
}

// UnshieldResult is the output of BuildUnshield.
type UnshieldResult struct {
	Nullifier   common.Hash
	Transaction *Transaction
	Call        ForwarderCall
}
