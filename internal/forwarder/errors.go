package forwarder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/calldata"
)

// OnlyAuthorizedError is the revert for any caller other than the authority.
type OnlyAuthorizedError struct {
	Caller    common.Address
	Authority common.Address
}

func (e *OnlyAuthorizedError) Error() string {
	return fmt.Sprintf("OnlyAuthorized(%s)", e.Caller.Hex())
}

// UnsupportedSelectorError is the revert for an unrecognized or truncated selector.
type UnsupportedSelectorError struct {
	Selector calldata.Selector
}

func (e *UnsupportedSelectorError) Error() string {
	return fmt.Sprintf("UnsupportedSelector(%s)", e.Selector)
}

// InvalidRecipientError is the revert for a deposit not addressed to the forwarder itself.
type InvalidRecipientError struct {
	Expected common.Address
	Actual   common.Address
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("InvalidRecipient(%s, %s)", e.Expected.Hex(), e.Actual.Hex())
}

// MalformedCalldataError is the revert for arguments that do not decode.
type MalformedCalldataError struct {
	Selector calldata.Selector
	Err      error
}

func (e *MalformedCalldataError) Error() string {
	return fmt.Sprintf("MalformedCalldata(%s): %v", e.Selector, e.Err)
}

func (e *MalformedCalldataError) Unwrap() error { return e.Err }
