package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldedactions/internal/calldata"
)

var (
	tokenA = common.HexToAddress("0xA0")
	tokenB = common.HexToAddress("0xB0")
	alice  = common.HexToAddress("0xA11CE")
	bob    = common.HexToAddress("0xB0B")
	router = common.HexToAddress("0x7007E7")
)

func TestTransferAndAllowance(t *testing.T) {
	st := NewState()
	require.NoError(t, st.Mint(tokenA, alice, uint256.NewInt(100)))

	require.NoError(t, st.Transfer(tokenA, alice, bob, uint256.NewInt(30)))
	assert.Equal(t, uint64(70), st.BalanceOf(tokenA, alice).Uint64())
	assert.Equal(t, uint64(30), st.BalanceOf(tokenA, bob).Uint64())

	err := st.Transfer(tokenA, bob, alice, uint256.NewInt(31))
	var ibe *InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, uint64(30), ibe.Have.Uint64())

	err = st.TransferFrom(tokenA, bob, alice, bob, uint256.NewInt(1))
	var iae *InsufficientAllowanceError
	require.ErrorAs(t, err, &iae)

	st.Approve(tokenA, alice, bob, uint256.NewInt(50))
	require.NoError(t, st.TransferFrom(tokenA, bob, alice, bob, uint256.NewInt(20)))
	assert.Equal(t, uint64(30), st.Allowance(tokenA, alice, bob).Uint64())
	assert.Equal(t, uint64(50), st.BalanceOf(tokenA, bob).Uint64())
}

func TestBalancesNeverWrap(t *testing.T) {
	ceiling := new(uint256.Int).SetAllOne()

	t.Run("mint bounded by total supply", func(t *testing.T) {
		st := NewState()
		require.NoError(t, st.Mint(tokenA, alice, ceiling))
		assert.ErrorContains(t, st.Mint(tokenA, bob, uint256.NewInt(1)), "total supply")
		assert.True(t, st.BalanceOf(tokenA, bob).IsZero())
		assert.Equal(t, ceiling, st.TotalSupply(tokenA))
	})

	t.Run("transfer overflow leaves both balances", func(t *testing.T) {
		st := NewState()
		st.setBalance(tokenA, bob, ceiling)
		require.NoError(t, st.Mint(tokenA, alice, uint256.NewInt(5)))

		err := st.Transfer(tokenA, alice, bob, uint256.NewInt(1))
		assert.ErrorContains(t, err, "overflows balance")
		assert.Equal(t, uint64(5), st.BalanceOf(tokenA, alice).Uint64())
		assert.Equal(t, ceiling, st.BalanceOf(tokenA, bob))
	})

	t.Run("supply reverts with the snapshot", func(t *testing.T) {
		st := NewState()
		snap := st.Snapshot()
		require.NoError(t, st.Mint(tokenA, alice, uint256.NewInt(7)))
		assert.Equal(t, uint64(7), st.TotalSupply(tokenA).Uint64())
		st.RevertToSnapshot(snap)
		assert.True(t, st.TotalSupply(tokenA).IsZero())
	})
}

func TestSnapshotRevert(t *testing.T) {
	st := NewState()
	require.NoError(t, st.Mint(tokenA, alice, uint256.NewInt(10)))
	snap := st.Snapshot()

	require.NoError(t, st.Transfer(tokenA, alice, bob, uint256.NewInt(4)))
	st.Approve(tokenA, alice, bob, uint256.NewInt(9))
	st.Emit(Log{Address: alice, Event: "Test"})
	inner := st.Snapshot()
	require.NoError(t, st.Mint(tokenB, bob, uint256.NewInt(1)))
	st.RevertToSnapshot(inner)
	assert.True(t, st.BalanceOf(tokenB, bob).IsZero())
	assert.Equal(t, uint64(4), st.BalanceOf(tokenA, bob).Uint64())

	st.RevertToSnapshot(snap)
	assert.Equal(t, uint64(10), st.BalanceOf(tokenA, alice).Uint64())
	assert.True(t, st.BalanceOf(tokenA, bob).IsZero())
	assert.True(t, st.Allowance(tokenA, alice, bob).IsZero())
	assert.Empty(t, st.Logs())
}

type failing struct{ addr common.Address }

func (f failing) Address() common.Address { return f.addr }

func (f failing) Invoke(st *State, caller common.Address, input []byte) ([]byte, error) {
	if err := st.Mint(tokenA, caller, uint256.NewInt(1)); err != nil {
		return nil, err
	}
	return nil, errors.New("boom")
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	c := New()
	require.NoError(t, c.Update(func(st *State) error { return st.Deploy(failing{addr: bob}) }))

	_, err := c.Call(alice, bob, nil)
	require.EqualError(t, err, "boom")
	c.View(func(st *State) {
		assert.True(t, st.BalanceOf(tokenA, alice).IsZero())
	})

	_, err = c.Call(alice, common.HexToAddress("0x99"), nil)
	var nce *NoContractError
	require.ErrorAs(t, err, &nce)

	err = c.Update(func(st *State) error {
		_ = st.Mint(tokenA, alice, uint256.NewInt(5))
		return errors.New("abort")
	})
	require.Error(t, err)
	c.View(func(st *State) {
		assert.True(t, st.BalanceOf(tokenA, alice).IsZero())
	})
}

func newRouterState(t *testing.T) *State {
	t.Helper()
	st := NewState()
	r := NewRouter(router)
	r.SetPool(tokenA, tokenB, 3000, Rate{Num: 2, Den: 1})
	require.NoError(t, st.Deploy(r))
	require.NoError(t, st.Mint(tokenB, router, uint256.NewInt(1_000_000)))
	require.NoError(t, st.Mint(tokenA, alice, uint256.NewInt(1000)))
	return st
}

func TestRouterExactInput(t *testing.T) {
	st := newRouterState(t)
	st.Approve(tokenA, alice, router, uint256.NewInt(100))

	out, err := st.Call(alice, router, calldata.ExactInputSingle(calldata.ExactInputSingleParams{
		TokenIn: tokenA, TokenOut: tokenB, Fee: 3000, Recipient: bob,
		AmountIn: uint256.NewInt(100), AmountOutMinimum: uint256.NewInt(150),
	}))
	require.NoError(t, err)
	got, err := calldata.DecodeUint256(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), got.Uint64())
	assert.Equal(t, uint64(200), st.BalanceOf(tokenB, bob).Uint64())
	assert.Equal(t, uint64(900), st.BalanceOf(tokenA, alice).Uint64())

	st.Approve(tokenA, alice, router, uint256.NewInt(100))
	_, err = st.Call(alice, router, calldata.ExactInputSingle(calldata.ExactInputSingleParams{
		TokenIn: tokenA, TokenOut: tokenB, Fee: 3000, Recipient: bob,
		AmountIn: uint256.NewInt(100), AmountOutMinimum: uint256.NewInt(201),
	}))
	var ioe *InsufficientOutputAmountError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, uint64(900), st.BalanceOf(tokenA, alice).Uint64())
}

func TestRouterExactOutput(t *testing.T) {
	st := newRouterState(t)
	st.Approve(tokenA, alice, router, uint256.NewInt(10))

	out, err := st.Call(alice, router, calldata.ExactOutputSingle(calldata.ExactOutputSingleParams{
		TokenIn: tokenA, TokenOut: tokenB, Fee: 3000, Recipient: alice,
		AmountOut: uint256.NewInt(7), AmountInMaximum: uint256.NewInt(10),
	}))
	require.NoError(t, err)
	in, err := calldata.DecodeUint256(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), in.Uint64(), "7/2 rounds up")

	_, err = st.Call(alice, router, calldata.ExactOutputSingle(calldata.ExactOutputSingleParams{
		TokenIn: tokenA, TokenOut: tokenB, Fee: 3000, Recipient: alice,
		AmountOut: uint256.NewInt(100), AmountInMaximum: uint256.NewInt(10),
	}))
	var eie *ExcessiveInputAmountError
	require.ErrorAs(t, err, &eie)
	assert.Equal(t, uint64(50), eie.Required.Uint64())
}

func TestRouterUnknownPool(t *testing.T) {
	st := newRouterState(t)
	_, err := st.Call(alice, router, calldata.ExactInputSingle(calldata.ExactInputSingleParams{
		TokenIn: tokenB, TokenOut: tokenA, Fee: 3000, Recipient: bob,
		AmountIn: uint256.NewInt(1), AmountOutMinimum: uint256.NewInt(0),
	}))
	var upe *UnsupportedPairError
	require.ErrorAs(t, err, &upe)
}

func TestTokenContract(t *testing.T) {
	c := New()
	require.NoError(t, c.Update(func(st *State) error {
		if err := st.Deploy(NewToken(tokenA)); err != nil {
			return err
		}
		return st.Mint(tokenA, alice, uint256.NewInt(100))
	}))

	_, err := c.Call(alice, tokenA, calldata.Approve(bob, uint256.NewInt(60)))
	require.NoError(t, err)
	_, err = c.Call(bob, tokenA, calldata.TransferFrom(alice, bob, uint256.NewInt(50)))
	require.NoError(t, err)
	_, err = c.Call(bob, tokenA, calldata.TransferFrom(alice, bob, uint256.NewInt(11)))
	var iae *InsufficientAllowanceError
	require.ErrorAs(t, err, &iae)

	_, err = c.Call(bob, tokenA, calldata.Transfer(alice, uint256.NewInt(5)))
	require.NoError(t, err)

	out, err := c.Call(alice, tokenA, calldata.BalanceOf(bob))
	require.NoError(t, err)
	bal, err := calldata.DecodeUint256(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), bal.Uint64())

	_, err = c.Call(alice, tokenA, calldata.Rescue(tokenA, alice, uint256.NewInt(1)))
	var uce *UnsupportedCallError
	require.ErrorAs(t, err, &uce)
}
