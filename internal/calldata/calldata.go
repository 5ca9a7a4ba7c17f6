// calldata.go - ABI encoding of forwarder, venue and adapter calls.
//
// Selectors are derived from their Solidity signatures with keccak256, so the
// well-known values (0x23b872dd transferFrom, 0xa9059cbb transfer) are checked in tests
// rather than hard-coded.

package calldata

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ErrMalformed is returned when call arguments do not decode under the expected ABI.
var ErrMalformed = errors.New("malformed calldata")

// Selector is the first four bytes of a call's input.
type Selector [4]byte

// SelectorOf derives the selector of a Solidity function signature.
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

// Hex returns the 0x-prefixed selector.
func (s Selector) Hex() string { return hexutil.Encode(s[:]) }

// String returns the selector without prefix, as it appears in revert messages.
func (s Selector) String() string { return s.Hex()[2:] }

var (
	TransferFromSelector      = SelectorOf("transferFrom(address,address,uint256)")
	TransferSelector          = SelectorOf("transfer(address,uint256)")
	ApproveSelector           = SelectorOf("approve(address,uint256)")
	BalanceOfSelector         = SelectorOf("balanceOf(address)")
	ExactInputSingleSelector  = SelectorOf("exactInputSingle((address,address,uint24,address,uint256,uint256,uint160))")
	ExactOutputSingleSelector = SelectorOf("exactOutputSingle((address,address,uint24,address,uint256,uint256,uint160))")
	RescueSelector            = SelectorOf("rescue(address,address,uint256)")
	ExecuteSelector           = SelectorOf("execute(bytes)")
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	addressT = mustType("address")
	uint256T = mustType("uint256")
	uint24T  = mustType("uint24")
	uint160T = mustType("uint160")
	bytesT   = mustType("bytes")
	boolT    = mustType("bool")

	transferFromArgs = abi.Arguments{{Type: addressT}, {Type: addressT}, {Type: uint256T}}
	transferArgs     = abi.Arguments{{Type: addressT}, {Type: uint256T}}
	addressArgs      = abi.Arguments{{Type: addressT}}
	// A static tuple encodes exactly like its flattened members.
	swapSingleArgs = abi.Arguments{
		{Type: addressT}, {Type: addressT}, {Type: uint24T}, {Type: addressT},
		{Type: uint256T}, {Type: uint256T}, {Type: uint160T},
	}
	rescueArgs  = abi.Arguments{{Type: addressT}, {Type: addressT}, {Type: uint256T}}
	payloadArgs = abi.Arguments{{Type: addressT}, {Type: bytesT}, {Type: bytesT}}
	bytesArgs   = abi.Arguments{{Type: bytesT}}
	boolArgs    = abi.Arguments{{Type: boolT}}
	uint256Args = abi.Arguments{{Type: uint256T}}
)

// Split separates the selector from the argument bytes.
func Split(input []byte) (Selector, []byte, error) {
	var s Selector
	if len(input) < 4 {
		copy(s[:], input)
		return s, nil, fmt.Errorf("%w: input shorter than a selector", ErrMalformed)
	}
	copy(s[:], input[:4])
	return s, input[4:], nil
}

func pack(sel Selector, args abi.Arguments, values ...interface{}) []byte {
	enc, err := args.Pack(values...)
	if err != nil {
		// Argument types are fixed at compile time.
		panic(fmt.Sprintf("calldata: pack %s: %v", sel, err))
	}
	return append(sel[:], enc...)
}

// unpackStatic decodes static arguments, requiring the exact encoded length.
func unpackStatic(args abi.Arguments, data []byte) ([]interface{}, error) {
	if len(data) != 32*len(args) {
		return nil, fmt.Errorf("%w: want %d argument bytes, got %d", ErrMalformed, 32*len(args), len(data))
	}
	vals, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return vals, nil
}

func toU256(v interface{}) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: expected integer, got %T", ErrMalformed, v)
	}
	z, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: integer overflows 256 bits", ErrMalformed)
	}
	return z, nil
}

func bigOf(x *uint256.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x.ToBig()
}

// TransferFrom encodes transferFrom(from, to, amount).
func TransferFrom(from, to common.Address, amount *uint256.Int) []byte {
	return pack(TransferFromSelector, transferFromArgs, from, to, bigOf(amount))
}

// DecodeTransferFrom decodes transferFrom arguments (selector already removed).
func DecodeTransferFrom(args []byte) (from, to common.Address, amount *uint256.Int, err error) {
	vals, err := unpackStatic(transferFromArgs, args)
	if err != nil {
		return from, to, nil, err
	}
	amount, err = toU256(vals[2])
	return vals[0].(common.Address), vals[1].(common.Address), amount, err
}

// Transfer encodes transfer(to, amount).
func Transfer(to common.Address, amount *uint256.Int) []byte {
	return pack(TransferSelector, transferArgs, to, bigOf(amount))
}

// DecodeTransfer decodes transfer arguments (selector already removed).
func DecodeTransfer(args []byte) (to common.Address, amount *uint256.Int, err error) {
	vals, err := unpackStatic(transferArgs, args)
	if err != nil {
		return to, nil, err
	}
	amount, err = toU256(vals[1])
	return vals[0].(common.Address), amount, err
}

// Approve encodes approve(spender, amount).
func Approve(spender common.Address, amount *uint256.Int) []byte {
	return pack(ApproveSelector, transferArgs, spender, bigOf(amount))
}

// DecodeApprove decodes approve arguments (selector already removed).
func DecodeApprove(args []byte) (spender common.Address, amount *uint256.Int, err error) {
	return DecodeTransfer(args)
}

// BalanceOf encodes balanceOf(account).
func BalanceOf(account common.Address) []byte {
	return pack(BalanceOfSelector, addressArgs, account)
}

// DecodeBalanceOf decodes balanceOf arguments (selector already removed).
func DecodeBalanceOf(args []byte) (common.Address, error) {
	vals, err := unpackStatic(addressArgs, args)
	if err != nil {
		return common.Address{}, err
	}
	return vals[0].(common.Address), nil
}

// Rescue encodes rescue(token, to, amount).
func Rescue(token, to common.Address, amount *uint256.Int) []byte {
	return pack(RescueSelector, rescueArgs, token, to, bigOf(amount))
}

// DecodeRescue decodes rescue arguments (selector already removed).
func DecodeRescue(args []byte) (token, to common.Address, amount *uint256.Int, err error) {
	vals, err := unpackStatic(rescueArgs, args)
	if err != nil {
		return token, to, nil, err
	}
	amount, err = toU256(vals[2])
	return vals[0].(common.Address), vals[1].(common.Address), amount, err
}

// ExactInputSingleParams mirrors the SwapRouter02 exactInputSingle struct.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               uint32
	Recipient         common.Address
	AmountIn          *uint256.Int
	AmountOutMinimum  *uint256.Int
	SqrtPriceLimitX96 *uint256.Int
}

// ExactOutputSingleParams mirrors the SwapRouter02 exactOutputSingle struct.
type ExactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               uint32
	Recipient         common.Address
	AmountOut         *uint256.Int
	AmountInMaximum   *uint256.Int
	SqrtPriceLimitX96 *uint256.Int
}

// ExactInputSingle encodes exactInputSingle(params).
func ExactInputSingle(p ExactInputSingleParams) []byte {
	return pack(ExactInputSingleSelector, swapSingleArgs,
		p.TokenIn, p.TokenOut, new(big.Int).SetUint64(uint64(p.Fee)), p.Recipient,
		bigOf(p.AmountIn), bigOf(p.AmountOutMinimum), bigOf(p.SqrtPriceLimitX96))
}

// ExactOutputSingle encodes exactOutputSingle(params).
func ExactOutputSingle(p ExactOutputSingleParams) []byte {
	return pack(ExactOutputSingleSelector, swapSingleArgs,
		p.TokenIn, p.TokenOut, new(big.Int).SetUint64(uint64(p.Fee)), p.Recipient,
		bigOf(p.AmountOut), bigOf(p.AmountInMaximum), bigOf(p.SqrtPriceLimitX96))
}

type swapSingle struct {
	tokenIn, tokenOut, recipient common.Address
	fee                          uint32
	amount, limit, sqrtPrice     *uint256.Int
}

func decodeSwapSingle(args []byte) (*swapSingle, error) {
	vals, err := unpackStatic(swapSingleArgs, args)
	if err != nil {
		return nil, err
	}
	fee, ok := vals[2].(*big.Int)
	if !ok || !fee.IsUint64() || fee.Uint64() >= 1<<24 {
		return nil, fmt.Errorf("%w: invalid fee", ErrMalformed)
	}
	s := &swapSingle{
		tokenIn:   vals[0].(common.Address),
		tokenOut:  vals[1].(common.Address),
		fee:       uint32(fee.Uint64()),
		recipient: vals[3].(common.Address),
	}
	if s.amount, err = toU256(vals[4]); err != nil {
		return nil, err
	}
	if s.limit, err = toU256(vals[5]); err != nil {
		return nil, err
	}
	if s.sqrtPrice, err = toU256(vals[6]); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeExactInputSingle decodes exactInputSingle arguments (selector already removed).
func DecodeExactInputSingle(args []byte) (ExactInputSingleParams, error) {
	s, err := decodeSwapSingle(args)
	if err != nil {
		return ExactInputSingleParams{}, err
	}
	return ExactInputSingleParams{
		TokenIn: s.tokenIn, TokenOut: s.tokenOut, Fee: s.fee, Recipient: s.recipient,
		AmountIn: s.amount, AmountOutMinimum: s.limit, SqrtPriceLimitX96: s.sqrtPrice,
	}, nil
}

// DecodeExactOutputSingle decodes exactOutputSingle arguments (selector already removed).
func DecodeExactOutputSingle(args []byte) (ExactOutputSingleParams, error) {
	s, err := decodeSwapSingle(args)
	if err != nil {
		return ExactOutputSingleParams{}, err
	}
	return ExactOutputSingleParams{
		TokenIn: s.tokenIn, TokenOut: s.tokenOut, Fee: s.fee, Recipient: s.recipient,
		AmountOut: s.amount, AmountInMaximum: s.limit, SqrtPriceLimitX96: s.sqrtPrice,
	}, nil
}

// ExternalPayload encodes abi.encode(address forwarder, bytes input, bytes expectedOutput).
func ExternalPayload(forwarder common.Address, input, expectedOutput []byte) []byte {
	enc, err := payloadArgs.Pack(forwarder, nonNil(input), nonNil(expectedOutput))
	if err != nil {
		panic(fmt.Sprintf("calldata: pack external payload: %v", err))
	}
	return enc
}

// DecodeExternalPayload reverses ExternalPayload.
func DecodeExternalPayload(blob []byte) (forwarder common.Address, input, expectedOutput []byte, err error) {
	vals, err := payloadArgs.Unpack(blob)
	if err != nil {
		return forwarder, nil, nil, fmt.Errorf("%w: external payload: %v", ErrMalformed, err)
	}
	return vals[0].(common.Address), vals[1].([]byte), vals[2].([]byte), nil
}

// Execute encodes the adapter entry point execute(bytes transaction).
func Execute(encodedTx []byte) []byte {
	return pack(ExecuteSelector, bytesArgs, nonNil(encodedTx))
}

// DecodeExecute returns the encoded transaction carried by execute calldata.
func DecodeExecute(input []byte) ([]byte, error) {
	sel, args, err := Split(input)
	if err != nil {
		return nil, err
	}
	if sel != ExecuteSelector {
		return nil, fmt.Errorf("%w: unexpected selector %s", ErrMalformed, sel)
	}
	vals, err := bytesArgs.Unpack(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return vals[0].([]byte), nil
}

// True returns abi.encode(true), the success output of escrow calls.
func True() []byte {
	enc, _ := boolArgs.Pack(true)
	return enc
}

// Uint256 returns abi.encode(x).
func Uint256(x *uint256.Int) []byte {
	enc, _ := uint256Args.Pack(bigOf(x))
	return enc
}

// DecodeUint256 reverses Uint256.
func DecodeUint256(data []byte) (*uint256.Int, error) {
	vals, err := unpackStatic(uint256Args, data)
	if err != nil {
		return nil, err
	}
	return toU256(vals[0])
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
