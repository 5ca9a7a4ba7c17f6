// engine.go - Proof engines: turn a prepared transaction skeleton into a proved transaction.
//
// The real proving system lives outside this module. MockEngine fills every proof slot
// with a placeholder seal carrying the MOCK marker, so a mock result can never be
// mistaken for a genuine one.

package prover

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"shieldedactions/internal/resource"
	"shieldedactions/internal/transactions"
)

const (
	// MockImageID labels results produced without a real guest program.
	MockImageID = "mock_shielded_actions_guest_v1"
	// ProofTypeMock is the proof_type of mock results.
	ProofTypeMock = "mock"
)

// MockSealPrefix starts every mock seal and proof.
var MockSealPrefix = []byte("MOCK")

// IsMockProof reports whether p is a placeholder proof.
func IsMockProof(p []byte) bool {
	return bytes.HasPrefix(p, MockSealPrefix)
}

// Prepared is a validated request with its transaction skeleton.
type Prepared struct {
	Kind        transactions.Kind
	Transaction *transactions.Transaction
	Resource    *resource.Resource          // set when the skeleton was built here
	Call        *transactions.ForwarderCall // set when the skeleton was built here
}

// Prepare validates req and resolves its skeleton: the client-built transaction when
// present, otherwise one built with b. A client-built transaction must pass the same key
// check as a built one and must consume and create what req describes. Validation and
// derivation errors surface here, before any job exists.
func Prepare(b *transactions.Builder, req transactions.Request) (*Prepared, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("prepare %s: no transaction builder", req.Kind())
	}
	if s := req.SkeletonHex(); s != "" {
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, &transactions.ValidationError{Field: "transaction", Reason: "must be 0x-prefixed hex", Err: err}
		}
		tx, err := transactions.DecodeTransaction(raw)
		if err != nil {
			return nil, &transactions.ValidationError{Field: "transaction", Reason: "not an encoded transaction", Err: err}
		}
		if err := b.CheckSkeleton(req, tx); err != nil {
			return nil, err
		}
		return &Prepared{Kind: req.Kind(), Transaction: tx}, nil
	}
	built, err := b.Build(req)
	if err != nil {
		return nil, err
	}
	call := built.Call
	return &Prepared{Kind: built.Kind, Transaction: built.Transaction, Resource: built.Resource, Call: &call}, nil
}

// Engine proves one prepared request.
type Engine interface {
	Name() string
	Prove(ctx context.Context, p *Prepared) (*Result, error)
}

// MockEngine produces placeholder proofs.
type MockEngine struct {
	logger zerolog.Logger
}

// NewMockEngine creates a mock engine.
func NewMockEngine(logger zerolog.Logger) *MockEngine {
	return &MockEngine{logger: logger}
}

// Name implements Engine.
func (e *MockEngine) Name() string { return ProofTypeMock }

// journal is the public output committed to by the seal.
type journal struct {
	Action      transactions.Kind `json:"action"`
	Nullifiers  []common.Hash     `json:"nullifiers"`
	Commitments []common.Hash     `json:"commitments"`
}

// Prove implements Engine. The prepared transaction is not modified.
func (e *MockEngine) Prove(ctx context.Context, p *Prepared) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{
		ProofType: ProofTypeMock,
		Mock:      true,
		ImageID:   MockImageID,
		Resource:  p.Resource,
		Call:      p.Call,
	}

	// 1. Work on a copy of the skeleton
	enc, err := p.Transaction.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode skeleton: %w", err)
	}
	tx, err := transactions.DecodeTransaction(enc)
	if err != nil {
		return nil, err
	}

	// 2. Journal and seal
	j, err := json.Marshal(journal{Action: p.Kind, Nullifiers: tx.Nullifiers(), Commitments: tx.Commitments()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode journal: %w", err)
	}
	res.Journal = j
	res.Seal = mockSeal("seal", j)

	// 3. Placeholder proofs in every slot
	for i := range tx.Actions {
		act := &tx.Actions[i]
		for k := range act.ComplianceUnits {
			cu := &act.ComplianceUnits[k]
			cu.Proof = mockSeal("compliance", cu.Instance.ConsumedNullifier[:], cu.Instance.CreatedCommitment[:])
		}
		for k := range act.LogicVerifierInputs {
			in := &act.LogicVerifierInputs[k]
			in.Proof = mockSeal("logic", in.Tag[:])
		}
	}
	tx.DeltaProof = mockSeal("delta", j)

	// 4. Adapter calldata
	if res.Transaction, err = tx.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	if res.Calldata, err = tx.ExecuteCalldata(); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("kind", string(p.Kind)).
		Int("actions", len(tx.Actions)).
		Msg("created mock proof")
	return res, nil
}

// mockSeal is MOCK || sha256(domain || parts...).
func mockSeal(domain string, parts ...[]byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	return append(append([]byte(nil), MockSealPrefix...), h.Sum(nil)...)
}
