package adapter

import (
	"errors"
	"fmt"

	"shieldedactions/internal/prover"
	"shieldedactions/internal/transactions"
)

// ErrInvalidProof is returned when a transaction's proofs are rejected.
var ErrInvalidProof = errors.New("invalid proof")

// Verifier checks the proofs carried by a transaction.
type Verifier interface {
	Verify(tx *transactions.Transaction) error
}

// AcceptAll accepts every transaction, skeletons included.
type AcceptAll struct{}

// Verify implements Verifier.
func (AcceptAll) Verify(*transactions.Transaction) error { return nil }

// RejectMock requires every proof slot to be filled with something other than a mock seal.
type RejectMock struct{}

// Verify implements Verifier.
func (RejectMock) Verify(tx *transactions.Transaction) error {
	check := func(what string, p []byte) error {
		if len(p) == 0 {
			return fmt.Errorf("%w: missing %s proof", ErrInvalidProof, what)
		}
		if prover.IsMockProof(p) {
			return fmt.Errorf("%w: %s proof is a mock", ErrInvalidProof, what)
		}
		return nil
	}
	if err := check("delta", tx.DeltaProof); err != nil {
		return err
	}
	for _, act := range tx.Actions {
		for _, cu := range act.ComplianceUnits {
			if err := check("compliance", cu.Proof); err != nil {
				return err
			}
		}
		for _, in := range act.LogicVerifierInputs {
			if err := check("logic", in.Proof); err != nil {
				return err
			}
		}
	}
	return nil
}
