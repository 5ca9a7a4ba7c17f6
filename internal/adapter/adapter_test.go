package adapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
	"shieldedactions/internal/config"
	"shieldedactions/internal/forwarder"
	"shieldedactions/internal/prover"
	"shieldedactions/internal/resource"
	"shieldedactions/internal/transactions"
)

var (
	user      = common.HexToAddress("0x1234567890123456789012345678901234567890")
	recipient = common.HexToAddress("0x00000000000000000000000000000000000B0B")
	relayer   = common.HexToAddress("0x00000000000000000000000000000000000FEE")
)

type env struct {
	d   *Deployment
	b   *transactions.Builder
	key *resource.NullifierKeyPair
}

func newEnv(t *testing.T, verifier Verifier) *env {
	t.Helper()
	cfg := config.DefaultConfig()
	d, err := Deploy(cfg, NewLedger(), verifier, zerolog.Nop())
	require.NoError(t, err)
	b, err := transactions.NewBuilderFromConfig(cfg)
	require.NoError(t, err)
	kp, err := resource.GenerateNullifierKey(nil)
	require.NoError(t, err)

	require.NoError(t, d.Fund("WETH", user, uint256.MustFromDecimal("10000000000000000000")))
	// 1 WETH = 2000 USDC
	require.NoError(t, d.AddPool("WETH", "USDC", chain.Rate{Num: 2_000_000_000, Den: 1_000_000_000_000_000_000},
		uint256.MustFromDecimal("1000000000000")))
	return &env{d: d, b: b, key: kp}
}

func (e *env) approve(t *testing.T, symbol string, amount *uint256.Int) {
	t.Helper()
	a, _ := e.d.Assets.BySymbol(symbol)
	_, err := e.d.Chain.Call(user, a.Token, calldata.Approve(a.Forwarder, amount))
	require.NoError(t, err)
}

func (e *env) shield(t *testing.T, amount string) *transactions.ShieldResult {
	t.Helper()
	res, err := e.b.BuildShield("WETH", amount, user, e.key.Secret)
	require.NoError(t, err)
	e.approve(t, "WETH", res.Resource.Quantity)
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, res.Transaction)
	require.NoError(t, err)
	return res
}

func TestShieldSwapUnshield(t *testing.T) {
	e := newEnv(t, AcceptAll{})

	// Shield 1.5 WETH
	sh := e.shield(t, "1.5")
	assert.Equal(t, "1500000000000000000", e.d.Escrowed("WETH").Dec())
	assert.Equal(t, "8500000000000000000", e.d.BalanceOf("WETH", user).Dec())
	cm, err := resource.Commitment(sh.Resource)
	require.NoError(t, err)
	assert.True(t, e.d.Adapter.Ledger().HasCommitment(cm))

	// Swap into at least 2900 USDC; the venue delivers 3000
	sw, err := e.b.BuildSwap(sh.Resource, "USDC", e.key.Secret, "2900")
	require.NoError(t, err)
	rcpt, err := e.d.Adapter.Execute(e.d.Chain, relayer, sw.Transaction)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{sw.Nullifier}, rcpt.Nullifiers)
	assert.True(t, e.d.Escrowed("WETH").IsZero())
	assert.Equal(t, "3000000000", e.d.Escrowed("USDC").Dec())
	assert.Equal(t, "2900000000", sw.Resource.Quantity.Dec())
	assert.True(t, e.d.Adapter.Ledger().HasNullifier(sw.Nullifier))

	// Unshield the USDC resource
	un, err := e.b.BuildUnshield(sw.Resource, recipient, e.key.Secret)
	require.NoError(t, err)
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, un.Transaction)
	require.NoError(t, err)
	assert.Equal(t, "2900000000", e.d.BalanceOf("USDC", recipient).Dec())
	assert.Equal(t, "100000000", e.d.Escrowed("USDC").Dec())

	assert.Len(t, e.d.Adapter.Ledger().Transactions(), 3)
	assert.Len(t, e.d.Adapter.Ledger().Nullifiers(), 3)
	assert.Len(t, e.d.Adapter.Ledger().Commitments(), 3)
}

func TestDoubleSpendRejected(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	sh := e.shield(t, "1")

	un, err := e.b.BuildUnshield(sh.Resource, recipient, e.key.Secret)
	require.NoError(t, err)
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, un.Transaction)
	require.NoError(t, err)

	// Same resource, fresh padding: the nullifier repeats
	again, err := e.b.BuildUnshield(sh.Resource, relayer, e.key.Secret)
	require.NoError(t, err)
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, again.Transaction)
	assert.ErrorIs(t, err, ErrDoubleSpend)
	assert.True(t, e.d.BalanceOf("WETH", relayer).IsZero())
	assert.Len(t, e.d.Adapter.Ledger().Commitments(), 2)
}

func TestFailingForwarderRevertsEverything(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	res, err := e.b.BuildShield("WETH", "1", user, e.key.Secret)
	require.NoError(t, err)

	// No approval: the deposit reverts inside the escrow forwarder
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, res.Transaction)
	var iae *chain.InsufficientAllowanceError
	require.ErrorAs(t, err, &iae)

	ledger := e.d.Adapter.Ledger()
	assert.Empty(t, ledger.Nullifiers())
	assert.Empty(t, ledger.Commitments())
	assert.Empty(t, ledger.Transactions())
	assert.True(t, e.d.Escrowed("WETH").IsZero())

	// The same transaction succeeds once approved
	e.approve(t, "WETH", res.Resource.Quantity)
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, res.Transaction)
	require.NoError(t, err)
}

func TestSwapBelowMinimumReverts(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	sh := e.shield(t, "1")

	sw, err := e.b.BuildSwap(sh.Resource, "USDC", e.key.Secret, "2000.000001")
	require.NoError(t, err)
	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, sw.Transaction)
	var ioe *chain.InsufficientOutputAmountError
	require.ErrorAs(t, err, &ioe)

	assert.Equal(t, "1000000000000000000", e.d.Escrowed("WETH").Dec(), "release is reverted with the swap")
	assert.True(t, e.d.Escrowed("USDC").IsZero())
	assert.False(t, e.d.Adapter.Ledger().HasNullifier(sw.Nullifier))
}

func TestUnregisteredForwarderRejected(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	sh, err := e.b.BuildShield("WETH", "1", user, e.key.Secret)
	require.NoError(t, err)

	rogue := common.HexToAddress("0x00000000000000000000000000000000000BAD")
	blob := calldata.ExternalPayload(rogue, calldata.Transfer(rogue, uint256.NewInt(1)), nil)
	sh.Transaction.Actions[0].LogicVerifierInputs[1].AppData.ExternalPayload = [][]byte{blob}

	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, sh.Transaction)
	assert.ErrorIs(t, err, ErrUnknownForwarder)
	assert.Empty(t, e.d.Adapter.Ledger().Nullifiers())
}

func TestExpectedOutputChecked(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	sh, err := e.b.BuildShield("WETH", "1", user, e.key.Secret)
	require.NoError(t, err)
	e.approve(t, "WETH", sh.Resource.Quantity)

	call := sh.Call
	call.ExpectedOutput = calldata.Uint256(uint256.NewInt(7))
	sh.Transaction.Actions[0].LogicVerifierInputs[1].AppData.ExternalPayload = [][]byte{call.Payload()}

	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, sh.Transaction)
	assert.ErrorIs(t, err, ErrOutputMismatch)
	assert.True(t, e.d.Escrowed("WETH").IsZero())
}

func TestForwardersOnlyObeyTheAdapter(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	e.shield(t, "1")
	a, _ := e.d.Assets.BySymbol("WETH")

	_, err := e.d.Chain.Call(user, a.Forwarder, calldata.Transfer(user, uint256.NewInt(1)))
	var oae *forwarder.OnlyAuthorizedError
	require.ErrorAs(t, err, &oae)
	assert.Equal(t, "1000000000000000000", e.d.Escrowed("WETH").Dec())
}

func TestRejectMockVerifier(t *testing.T) {
	e := newEnv(t, RejectMock{})
	sh, err := e.b.BuildShield("WETH", "1", user, e.key.Secret)
	require.NoError(t, err)
	e.approve(t, "WETH", sh.Resource.Quantity)

	_, err = e.d.Adapter.Execute(e.d.Chain, relayer, sh.Transaction)
	assert.ErrorIs(t, err, ErrInvalidProof, "skeleton has no proofs")

	res, err := prover.NewMockEngine(zerolog.Nop()).Prove(context.Background(), &prover.Prepared{
		Kind: transactions.KindShield, Transaction: sh.Transaction,
	})
	require.NoError(t, err)
	_, err = e.d.Adapter.Submit(e.d.Chain, relayer, res.Calldata)
	assert.ErrorIs(t, err, ErrInvalidProof)

	// The mock proof passes an accepting verifier
	open := newEnv(t, AcceptAll{})
	open.approve(t, "WETH", sh.Resource.Quantity)
	_, err = open.d.Adapter.Submit(open.d.Chain, relayer, res.Calldata)
	require.NoError(t, err)
}

func TestMalformedExecuteCalldata(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	_, err := e.d.Chain.Call(relayer, e.d.Adapter.Address(), []byte{1, 2, 3, 4, 5})
	assert.True(t, errors.Is(err, calldata.ErrMalformed))

	_, err = e.d.Chain.Call(relayer, e.d.Adapter.Address(), calldata.Execute([]byte{0x01, 0x02}))
	assert.Error(t, err)
}

func TestLedgerPersistence(t *testing.T) {
	e := newEnv(t, AcceptAll{})
	e.shield(t, "1")
	e.shield(t, "2")

	path := filepath.Join(t.TempDir(), "ledger.json")
	l := e.d.Adapter.Ledger()
	require.NoError(t, l.SaveToFile(path))

	loaded, err := LoadLedgerFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, l.Commitments(), loaded.Commitments())
	assert.Equal(t, l.Nullifiers(), loaded.Nullifiers())
	assert.Equal(t, l.Transactions(), loaded.Transactions())
	for _, nf := range l.Nullifiers() {
		assert.True(t, loaded.HasNullifier(nf))
	}
}
