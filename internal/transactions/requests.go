// requests.go - Typed intents accepted by the builder and the prover API.

package transactions

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/resource"
)

// Kind names a transaction intent.
type Kind string

const (
	KindShield   Kind = "shield"
	KindSwap     Kind = "swap"
	KindUnshield Kind = "unshield"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindShield, KindSwap, KindUnshield:
		return k, true
	}
	return "", false
}

// Request is a shield, swap or unshield intent.
type Request interface {
	Kind() Kind
	Validate() error
	// SkeletonHex is the optional client-built transaction (0x hex RLP).
	SkeletonHex() string
}

// NewRequest returns an empty request of kind k, ready to be decoded into.
func NewRequest(k Kind) (Request, bool) {
	switch k {
	case KindShield:
		return &ShieldRequest{}, true
	case KindSwap:
		return &SwapRequest{}, true
	case KindUnshield:
		return &UnshieldRequest{}, true
	}
	return nil, false
}

// ShieldRequest is the body of POST /api/prove/shield.
type ShieldRequest struct {
	Token        string `json:"token"`
	Amount       string `json:"amount"`
	Sender       string `json:"sender"`
	NullifierKey string `json:"nullifier_key"`
	Transaction  string `json:"transaction,omitempty"`
}

// SwapRequest is the body of POST /api/prove/swap.
type SwapRequest struct {
	InputResource *resource.Resource `json:"input_resource"`
	OutputToken   string             `json:"output_token"`
	NullifierKey  string             `json:"nullifier_key"`
	MinAmountOut  string             `json:"min_amount_out"`
	Transaction   string             `json:"transaction,omitempty"`
}

// UnshieldRequest is the body of POST /api/prove/unshield.
type UnshieldRequest struct {
	Resource     *resource.Resource `json:"resource"`
	Recipient    string             `json:"recipient"`
	NullifierKey string             `json:"nullifier_key"`
	Transaction  string             `json:"transaction,omitempty"`
}

func (r *ShieldRequest) Kind() Kind            { return KindShield }
func (r *SwapRequest) Kind() Kind              { return KindSwap }
func (r *UnshieldRequest) Kind() Kind          { return KindUnshield }
func (r *ShieldRequest) SkeletonHex() string   { return r.Transaction }
func (r *SwapRequest) SkeletonHex() string     { return r.Transaction }
func (r *UnshieldRequest) SkeletonHex() string { return r.Transaction }

// Validate checks presence and width of every field.
func (r *ShieldRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return &ValidationError{Field: "token", Reason: "required"}
	}
	if strings.TrimSpace(r.Amount) == "" {
		return &ValidationError{Field: "amount", Reason: "required"}
	}
	if err := validateAddress("sender", r.Sender); err != nil {
		return err
	}
	return validateKey(r.NullifierKey)
}

// Validate checks presence and width of every field.
func (r *SwapRequest) Validate() error {
	if err := validateResource("input_resource", r.InputResource); err != nil {
		return err
	}
	if strings.TrimSpace(r.OutputToken) == "" {
		return &ValidationError{Field: "output_token", Reason: "required"}
	}
	if strings.TrimSpace(r.MinAmountOut) == "" {
		return &ValidationError{Field: "min_amount_out", Reason: "required"}
	}
	return validateKey(r.NullifierKey)
}

// Validate checks presence and width of every field.
func (r *UnshieldRequest) Validate() error {
	if err := validateResource("resource", r.Resource); err != nil {
		return err
	}
	if err := validateAddress("recipient", r.Recipient); err != nil {
		return err
	}
	return validateKey(r.NullifierKey)
}

func validateAddress(field, s string) error {
	if s == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	if !common.IsHexAddress(s) {
		return &ValidationError{Field: field, Reason: "must be a 20-byte hex address"}
	}
	return nil
}

func validateKey(s string) error {
	if s == "" {
		return &ValidationError{Field: "nullifier_key", Reason: "required"}
	}
	if _, err := resource.ParseNullifierKey(s); err != nil {
		return &ValidationError{Field: "nullifier_key", Reason: err.Error(), Err: err}
	}
	return nil
}

func validateResource(field string, r *resource.Resource) error {
	if r == nil {
		return &ValidationError{Field: field, Reason: "required"}
	}
	if err := r.Validate(); err != nil {
		return &ValidationError{Field: field, Reason: err.Error(), Err: err}
	}
	return nil
}
