package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"shieldedactions/internal/calldata"
)

// NoContractError reports a call to an address without code.
type NoContractError struct {
	Address common.Address
}

func (e *NoContractError) Error() string {
	return fmt.Sprintf("no contract at %s", e.Address.Hex())
}

// InsufficientBalanceError is the ERC-20 revert for an overdrawn balance.
type InsufficientBalanceError struct {
	Token   common.Address
	Account common.Address
	Have    *uint256.Int
	Want    *uint256.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("InsufficientBalance(%s, have %s, want %s)", e.Account.Hex(), e.Have.Dec(), e.Want.Dec())
}

// InsufficientAllowanceError is the ERC-20 revert for an exceeded allowance.
type InsufficientAllowanceError struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Have    *uint256.Int
	Want    *uint256.Int
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("InsufficientAllowance(%s, have %s, want %s)", e.Spender.Hex(), e.Have.Dec(), e.Want.Dec())
}

// InsufficientOutputAmountError is the venue revert when an exact-input swap yields
// less than the caller's minimum.
type InsufficientOutputAmountError struct {
	Minimum *uint256.Int
	Actual  *uint256.Int
}

func (e *InsufficientOutputAmountError) Error() string {
	return fmt.Sprintf("InsufficientOutputAmount(min %s, got %s)", e.Minimum.Dec(), e.Actual.Dec())
}

// ExcessiveInputAmountError is the venue revert when an exact-output swap needs more
// input than the caller's maximum.
type ExcessiveInputAmountError struct {
	Maximum  *uint256.Int
	Required *uint256.Int
}

func (e *ExcessiveInputAmountError) Error() string {
	return fmt.Sprintf("ExcessiveInputAmount(max %s, need %s)", e.Maximum.Dec(), e.Required.Dec())
}

// UnsupportedPairError reports a venue call for a pair without liquidity.
type UnsupportedPairError struct {
	TokenIn, TokenOut common.Address
	Fee               uint32
}

func (e *UnsupportedPairError) Error() string {
	return fmt.Sprintf("no pool for %s -> %s (fee %d)", e.TokenIn.Hex(), e.TokenOut.Hex(), e.Fee)
}

// UnsupportedCallError reports a selector the contract does not implement.
type UnsupportedCallError struct {
	Contract common.Address
	Selector calldata.Selector
}

func (e *UnsupportedCallError) Error() string {
	return fmt.Sprintf("%s: unsupported selector %s", e.Contract.Hex(), e.Selector)
}
