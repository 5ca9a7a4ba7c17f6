// skeleton.go - Binding a client-built transaction to the request it claims to serve.

package transactions

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/resource"
)

// CheckSkeleton verifies that tx is a transaction this builder could have produced for
// req. The key check is the same one the builders run, so a mismatched key fails with
// KeyMismatchError whether or not the client sent its own skeleton.
func (b *Builder) CheckSkeleton(req Request, tx *Transaction) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if tx == nil || len(tx.Actions) != 1 || len(tx.Actions[0].ComplianceUnits) != 1 {
		return skeletonError("must hold exactly one action with one compliance unit")
	}
	unit := tx.Actions[0].ComplianceUnits[0].Instance

	switch r := req.(type) {
	case *ShieldRequest:
		asset, ok := b.assets.BySymbol(r.Token)
		if !ok {
			return &UnknownTokenError{Token: r.Token}
		}
		if unit.CreatedLogicRef != asset.LogicRef || unit.ConsumedLogicRef != asset.LogicRef {
			return skeletonError(fmt.Sprintf("does not shield %s", asset.Symbol))
		}
		return nil

	case *SwapRequest:
		key, _ := resource.ParseNullifierKey(r.NullifierKey)
		if err := b.checkConsumed(r.InputResource, key, unit); err != nil {
			return err
		}
		out, ok := b.assets.BySymbol(r.OutputToken)
		if !ok {
			return &UnknownTokenError{Token: r.OutputToken}
		}
		if out.LogicRef == r.InputResource.LogicRef {
			return &ValidationError{Field: "output_token", Reason: "input is already " + out.Symbol}
		}
		if unit.CreatedLogicRef != out.LogicRef {
			return skeletonError(fmt.Sprintf("does not create a %s resource", out.Symbol))
		}
		return nil

	case *UnshieldRequest:
		key, _ := resource.ParseNullifierKey(r.NullifierKey)
		if err := b.checkConsumed(r.Resource, key, unit); err != nil {
			return err
		}
		if unit.CreatedLogicRef != r.Resource.LogicRef {
			return skeletonError("padding resource has the wrong logic ref")
		}
		return nil

	default:
		return &ValidationError{Field: "request", Reason: "unsupported request type"}
	}
}

// checkConsumed requires key to own r and the unit to consume exactly r.
func (b *Builder) checkConsumed(r *resource.Resource, key resource.NullifierKey, unit ComplianceInstance) error {
	if err := b.checkKey(r, key); err != nil {
		return err
	}
	if _, err := b.assetOf(r); err != nil {
		return err
	}
	nf, err := b.codec.Nullifier(r, key)
	if err != nil {
		return err
	}
	if unit.ConsumedNullifier != nf || unit.ConsumedLogicRef != r.LogicRef {
		return skeletonError(fmt.Sprintf("does not consume the resource with nullifier %s", shortHash(nf)))
	}
	return nil
}

func skeletonError(reason string) error {
	return &ValidationError{Field: "transaction", Reason: reason}
}

func shortHash(h common.Hash) string {
	return h.Hex()[:10]
}
