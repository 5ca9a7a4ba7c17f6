package calldata

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x1234567890123456789012345678901234567890")
	fwd   = common.HexToAddress("0x5256b82cB889f8845570b3a2f1C2af7d2F1567fE")
)

func TestWellKnownSelectors(t *testing.T) {
	assert.Equal(t, "23b872dd", TransferFromSelector.String())
	assert.Equal(t, "a9059cbb", TransferSelector.String())
	assert.Equal(t, "095ea7b3", ApproveSelector.String())
	assert.Equal(t, "04e45aaf", ExactInputSingleSelector.String())
	assert.Equal(t, "5023b4df", ExactOutputSingleSelector.String())
	assert.Equal(t, "0x23b872dd", TransferFromSelector.Hex())
	assert.Equal(t, "70a08231", BalanceOfSelector.String())
}

func TestApproveAndBalanceOf(t *testing.T) {
	sel, args, err := Split(Approve(fwd, uint256.NewInt(7)))
	require.NoError(t, err)
	assert.Equal(t, ApproveSelector, sel)
	spender, amount, err := DecodeApprove(args)
	require.NoError(t, err)
	assert.Equal(t, fwd, spender)
	assert.Equal(t, uint64(7), amount.Uint64())

	sel, args, err = Split(BalanceOf(alice))
	require.NoError(t, err)
	assert.Equal(t, BalanceOfSelector, sel)
	account, err := DecodeBalanceOf(args)
	require.NoError(t, err)
	assert.Equal(t, alice, account)
}

func TestTransferFrom(t *testing.T) {
	amount := uint256.MustFromDecimal("1500000000000000000")
	data := TransferFrom(alice, fwd, amount)
	require.Len(t, data, 4+3*32)

	sel, args, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, TransferFromSelector, sel)

	from, to, got, err := DecodeTransferFrom(args)
	require.NoError(t, err)
	assert.Equal(t, alice, from)
	assert.Equal(t, fwd, to)
	assert.True(t, amount.Eq(got))
}

func TestTransfer(t *testing.T) {
	data := Transfer(alice, uint256.NewInt(42))
	_, args, err := Split(data)
	require.NoError(t, err)
	to, amount, err := DecodeTransfer(args)
	require.NoError(t, err)
	assert.Equal(t, alice, to)
	assert.Equal(t, uint64(42), amount.Uint64())
}

func TestStaticLengthEnforced(t *testing.T) {
	data := Transfer(alice, uint256.NewInt(42))
	_, _, err := DecodeTransfer(data[4 : len(data)-1])
	assert.True(t, errors.Is(err, ErrMalformed))
	_, _, err = DecodeTransfer(append(data[4:], 0))
	assert.True(t, errors.Is(err, ErrMalformed))

	_, _, err = Split([]byte{0x12, 0x34})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestSwapSingle(t *testing.T) {
	in := ExactInputSingleParams{
		TokenIn:           alice,
		TokenOut:          fwd,
		Fee:               3000,
		Recipient:         common.HexToAddress("0x01"),
		AmountIn:          uint256.NewInt(1000),
		AmountOutMinimum:  uint256.NewInt(900),
		SqrtPriceLimitX96: new(uint256.Int),
	}
	_, args, err := Split(ExactInputSingle(in))
	require.NoError(t, err)
	got, err := DecodeExactInputSingle(args)
	require.NoError(t, err)
	assert.Equal(t, in.TokenIn, got.TokenIn)
	assert.Equal(t, in.Fee, got.Fee)
	assert.True(t, in.AmountOutMinimum.Eq(got.AmountOutMinimum))

	out := ExactOutputSingleParams{
		TokenIn: alice, TokenOut: fwd, Fee: 500, Recipient: alice,
		AmountOut: uint256.NewInt(10), AmountInMaximum: uint256.NewInt(20),
	}
	_, args, err = Split(ExactOutputSingle(out))
	require.NoError(t, err)
	gotOut, err := DecodeExactOutputSingle(args)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), gotOut.AmountInMaximum.Uint64())
	assert.True(t, gotOut.SqrtPriceLimitX96.IsZero())
}

func TestExternalPayload(t *testing.T) {
	input := Transfer(alice, uint256.NewInt(5))
	blob := ExternalPayload(fwd, input, True())

	to, gotInput, expected, err := DecodeExternalPayload(blob)
	require.NoError(t, err)
	assert.Equal(t, fwd, to)
	assert.Equal(t, input, gotInput)
	assert.Equal(t, True(), expected)

	_, _, expected, err = DecodeExternalPayload(ExternalPayload(fwd, input, nil))
	require.NoError(t, err)
	assert.Empty(t, expected)

	_, _, _, err = DecodeExternalPayload([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestExecute(t *testing.T) {
	payload := []byte("encoded transaction")
	data := Execute(payload)
	assert.Equal(t, ExecuteSelector[:], data[:4])

	got, err := DecodeExecute(data)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = DecodeExecute(Transfer(alice, uint256.NewInt(1)))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestTrueEncoding(t *testing.T) {
	enc := True()
	require.Len(t, enc, 32)
	assert.Equal(t, byte(1), enc[31])

	v, err := DecodeUint256(Uint256(uint256.NewInt(77)))
	require.NoError(t, err)
	assert.Equal(t, uint64(77), v.Uint64())
}
