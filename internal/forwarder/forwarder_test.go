package forwarder

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
)

var (
	adapter   = common.HexToAddress("0xADA9")
	stranger  = common.HexToAddress("0xDEAD")
	user      = common.HexToAddress("0x05E2")
	tokenIn   = common.HexToAddress("0x1111")
	tokenOut  = common.HexToAddress("0x2222")
	escrowIn  = common.HexToAddress("0xE1")
	escrowOut = common.HexToAddress("0xE2")
	swapAddr  = common.HexToAddress("0x5A")
	venue     = common.HexToAddress("0x7007E7")
)

type fixture struct {
	st      *chain.State
	in, out *Escrow
	swap    *Swap
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:   chain.NewState(),
		in:   NewEscrow(escrowIn, tokenIn, adapter),
		out:  NewEscrow(escrowOut, tokenOut, adapter),
		swap: NewSwap(swapAddr, venue, adapter),
	}
	r := chain.NewRouter(venue)
	r.SetPool(tokenIn, tokenOut, 3000, chain.Rate{Num: 3, Den: 1})
	for _, c := range []chain.Contract{f.in, f.out, f.swap, r} {
		require.NoError(t, f.st.Deploy(c))
	}
	require.NoError(t, f.st.Mint(tokenIn, user, uint256.NewInt(1000)))
	require.NoError(t, f.st.Mint(tokenOut, venue, uint256.NewInt(1_000_000)))
	return f
}

func (f *fixture) deposit(t *testing.T, amount uint64) {
	t.Helper()
	f.st.Approve(tokenIn, user, escrowIn, uint256.NewInt(amount))
	_, err := f.st.Call(adapter, escrowIn, calldata.TransferFrom(user, escrowIn, uint256.NewInt(amount)))
	require.NoError(t, err)
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	f.st.Approve(tokenIn, user, escrowIn, uint256.NewInt(100))

	out, err := f.st.Call(adapter, escrowIn, calldata.TransferFrom(user, escrowIn, uint256.NewInt(100)))
	require.NoError(t, err)
	assert.Equal(t, calldata.True(), out)
	assert.Equal(t, uint64(100), f.in.Escrowed(f.st).Uint64())
	assert.Equal(t, uint64(900), f.st.BalanceOf(tokenIn, user).Uint64())
	assert.True(t, f.st.Allowance(tokenIn, user, escrowIn).IsZero())

	recipient := common.HexToAddress("0xBEEF")
	_, err = f.st.Call(adapter, escrowIn, calldata.Transfer(recipient, uint256.NewInt(40)))
	require.NoError(t, err)
	assert.Equal(t, uint64(60), f.in.Escrowed(f.st).Uint64())
	assert.Equal(t, uint64(40), f.st.BalanceOf(tokenIn, recipient).Uint64())

	events := []string{}
	for _, l := range f.st.Logs() {
		events = append(events, l.Event)
	}
	assert.Equal(t, []string{"Deposited", "Withdrawn"}, events)
}

func TestUnauthorizedCallerRejected(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 500)
	require.NoError(t, f.st.Mint(tokenIn, swapAddr, uint256.NewInt(10)))

	t.Run("deposit payload from 0xDEAD", func(t *testing.T) {
		f.st.Approve(tokenIn, user, escrowIn, uint256.NewInt(100))
		_, err := f.st.Call(stranger, escrowIn, calldata.TransferFrom(user, escrowIn, uint256.NewInt(100)))
		var oae *OnlyAuthorizedError
		require.ErrorAs(t, err, &oae)
		assert.Equal(t, stranger, oae.Caller)
		assert.Equal(t, "OnlyAuthorized("+stranger.Hex()+")", err.Error())
	})

	calls := map[string]struct {
		to    common.Address
		input []byte
	}{
		"deposit":      {escrowIn, calldata.TransferFrom(user, escrowIn, uint256.NewInt(1))},
		"withdraw":     {escrowIn, calldata.Transfer(stranger, uint256.NewInt(500))},
		"unknown":      {escrowIn, []byte{0x12, 0x34, 0x56, 0x78}},
		"short":        {escrowIn, []byte{0x01}},
		"exact input":  {swapAddr, calldata.ExactInputSingle(calldata.ExactInputSingleParams{TokenIn: tokenIn, TokenOut: tokenOut, Fee: 3000, Recipient: stranger, AmountIn: uint256.NewInt(10), AmountOutMinimum: uint256.NewInt(0)})},
		"exact output": {swapAddr, calldata.ExactOutputSingle(calldata.ExactOutputSingleParams{TokenIn: tokenIn, TokenOut: tokenOut, Fee: 3000, Recipient: stranger, AmountOut: uint256.NewInt(3), AmountInMaximum: uint256.NewInt(10)})},
		"rescue":       {swapAddr, calldata.Rescue(tokenIn, stranger, uint256.NewInt(10))},
	}
	for name, c := range calls {
		t.Run(name, func(t *testing.T) {
			logs := len(f.st.Logs())
			_, err := f.st.Call(stranger, c.to, c.input)
			var oae *OnlyAuthorizedError
			require.ErrorAs(t, err, &oae)
			assert.Equal(t, uint64(500), f.in.Escrowed(f.st).Uint64())
			assert.Equal(t, uint64(10), f.st.BalanceOf(tokenIn, swapAddr).Uint64())
			assert.True(t, f.st.BalanceOf(tokenIn, stranger).IsZero())
			assert.Len(t, f.st.Logs(), logs)
		})
	}
}

func TestUnsupportedSelector(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 50)

	for _, to := range []common.Address{escrowIn, swapAddr} {
		_, err := f.st.Call(adapter, to, []byte{0x12, 0x34, 0x56, 0x78, 0xff})
		var use *UnsupportedSelectorError
		require.ErrorAs(t, err, &use)
		assert.Equal(t, "UnsupportedSelector(12345678)", err.Error())
	}

	// Swap selectors are not escrow selectors and vice versa.
	_, err := f.st.Call(adapter, swapAddr, calldata.Transfer(user, uint256.NewInt(1)))
	var use *UnsupportedSelectorError
	require.ErrorAs(t, err, &use)
	assert.Equal(t, calldata.TransferSelector, use.Selector)

	_, err = f.st.Call(adapter, escrowIn, []byte{0xa9, 0x05})
	require.ErrorAs(t, err, &use)

	assert.Equal(t, uint64(50), f.in.Escrowed(f.st).Uint64())
}

func TestDepositInvalidRecipient(t *testing.T) {
	f := newFixture(t)
	f.st.Approve(tokenIn, user, escrowIn, uint256.NewInt(100))
	logs := len(f.st.Logs())

	_, err := f.st.Call(adapter, escrowIn, calldata.TransferFrom(user, stranger, uint256.NewInt(100)))
	var ire *InvalidRecipientError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, escrowIn, ire.Expected)
	assert.Equal(t, stranger, ire.Actual)

	assert.Equal(t, uint64(1000), f.st.BalanceOf(tokenIn, user).Uint64())
	assert.True(t, f.st.BalanceOf(tokenIn, stranger).IsZero())
	assert.True(t, f.in.Escrowed(f.st).IsZero())
	assert.Equal(t, uint64(100), f.st.Allowance(tokenIn, user, escrowIn).Uint64())
	assert.Len(t, f.st.Logs(), logs)
}

func TestMalformedArguments(t *testing.T) {
	f := newFixture(t)
	input := calldata.TransferFrom(user, escrowIn, uint256.NewInt(1))
	_, err := f.st.Call(adapter, escrowIn, input[:len(input)-1])
	var mce *MalformedCalldataError
	require.ErrorAs(t, err, &mce)
	assert.ErrorIs(t, err, calldata.ErrMalformed)
}

func TestWithdrawBeyondEscrowReverts(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 10)
	_, err := f.st.Call(adapter, escrowIn, calldata.Transfer(user, uint256.NewInt(11)))
	var ibe *chain.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, uint64(10), f.in.Escrowed(f.st).Uint64())
}

// release moves escrowed input to the swap forwarder, as a swap action does first.
func (f *fixture) release(t *testing.T, amount uint64) {
	t.Helper()
	_, err := f.st.Call(adapter, escrowIn, calldata.Transfer(swapAddr, uint256.NewInt(amount)))
	require.NoError(t, err)
}

func TestSwapExactInput(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 100)
	f.release(t, 100)

	out, err := f.st.Call(adapter, swapAddr, calldata.ExactInputSingle(calldata.ExactInputSingleParams{
		TokenIn: tokenIn, TokenOut: tokenOut, Fee: 3000, Recipient: escrowOut,
		AmountIn: uint256.NewInt(100), AmountOutMinimum: uint256.NewInt(300),
	}))
	require.NoError(t, err)
	got, err := calldata.DecodeUint256(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), got.Uint64())

	assert.Equal(t, uint64(300), f.out.Escrowed(f.st).Uint64())
	assert.True(t, f.in.Escrowed(f.st).IsZero())
	assert.True(t, f.st.BalanceOf(tokenIn, swapAddr).IsZero())
	assert.True(t, f.st.Allowance(tokenIn, swapAddr, venue).IsZero(), "approval is exactly amountIn")
}

func TestSwapExactInputBelowMinimumIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 100)
	f.release(t, 100)
	logs := len(f.st.Logs())

	_, err := f.st.Call(adapter, swapAddr, calldata.ExactInputSingle(calldata.ExactInputSingleParams{
		TokenIn: tokenIn, TokenOut: tokenOut, Fee: 3000, Recipient: escrowOut,
		AmountIn: uint256.NewInt(100), AmountOutMinimum: uint256.NewInt(301),
	}))
	var ioe *chain.InsufficientOutputAmountError
	require.ErrorAs(t, err, &ioe)

	assert.Equal(t, uint64(100), f.st.BalanceOf(tokenIn, swapAddr).Uint64())
	assert.True(t, f.out.Escrowed(f.st).IsZero())
	assert.True(t, f.st.Allowance(tokenIn, swapAddr, venue).IsZero())
	assert.Len(t, f.st.Logs(), logs)
}

func TestSwapExactOutputRevokesApproval(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 100)
	f.release(t, 100)

	out, err := f.st.Call(adapter, swapAddr, calldata.ExactOutputSingle(calldata.ExactOutputSingleParams{
		TokenIn: tokenIn, TokenOut: tokenOut, Fee: 3000, Recipient: escrowOut,
		AmountOut: uint256.NewInt(30), AmountInMaximum: uint256.NewInt(100),
	}))
	require.NoError(t, err)
	spent, err := calldata.DecodeUint256(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), spent.Uint64())

	assert.Equal(t, uint64(30), f.out.Escrowed(f.st).Uint64())
	assert.Equal(t, uint64(90), f.st.BalanceOf(tokenIn, swapAddr).Uint64())
	assert.True(t, f.st.Allowance(tokenIn, swapAddr, venue).IsZero())
}

func TestRescue(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, 20)
	f.release(t, 20)

	_, err := f.st.Call(adapter, swapAddr, calldata.Rescue(tokenIn, user, uint256.NewInt(20)))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), f.st.BalanceOf(tokenIn, user).Uint64())
	assert.True(t, f.st.BalanceOf(tokenIn, swapAddr).IsZero())

	_, err = f.st.Call(adapter, swapAddr, calldata.Rescue(tokenIn, user, uint256.NewInt(1)))
	var ibe *chain.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
}

func TestSelectors(t *testing.T) {
	f := newFixture(t)
	assert.ElementsMatch(t, []calldata.Selector{calldata.TransferFromSelector, calldata.TransferSelector}, f.in.Selectors())
	assert.ElementsMatch(t, []calldata.Selector{
		calldata.ExactInputSingleSelector, calldata.ExactOutputSingleSelector, calldata.RescueSelector,
	}, f.swap.Selectors())
	assert.Equal(t, adapter, f.swap.Authority())
	assert.Equal(t, "0x23b872dd", calldata.TransferFromSelector.Hex())
	assert.Equal(t, "0xa9059cbb", calldata.TransferSelector.Hex())
}
