package transactions

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ValidationError reports a missing or malformed request field, raised before any derivation.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnknownTokenError reports a token symbol missing from the asset table.
type UnknownTokenError struct {
	Token string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %q", e.Token)
}

// UnknownForwarderError reports a resource logic ref that no configured forwarder governs.
type UnknownForwarderError struct {
	LogicRef common.Hash
}

func (e *UnknownForwarderError) Error() string {
	return fmt.Sprintf("no forwarder for logic ref %s", e.LogicRef.Hex())
}

// KeyMismatchError reports a nullifier key that does not commit to the resource's nkCommitment.
type KeyMismatchError struct {
	Expected common.Hash // resource nkCommitment
	Actual   common.Hash // commitment of the supplied key
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("nullifier key mismatch: resource expects %s, key commits to %s", e.Expected.Hex(), e.Actual.Hex())
}

// AmountParseError reports a decimal amount that cannot be converted to base units.
type AmountParseError struct {
	Input  string
	Reason string
}

func (e *AmountParseError) Error() string {
	return fmt.Sprintf("cannot parse amount %q: %s", e.Input, e.Reason)
}
