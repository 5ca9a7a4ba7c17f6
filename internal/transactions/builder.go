// builder.go - Transaction builder for shield, swap and unshield intents.
//
// The Builder turns a user intent into a Transaction skeleton plus the ForwarderCall
// the protocol adapter must relay when the transaction executes. The asset table is
// injected at construction; no addresses are read from process globals.

package transactions

import (
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"shieldedactions/internal/config"
	"shieldedactions/internal/resource"
)

// DefaultPoolFee is the venue fee tier (0.3%) used for swaps.
const DefaultPoolFee uint32 = 3000

// Builder assembles transactions. It holds no mutable state and is safe for concurrent use
// as long as its randomness source is.
type Builder struct {
	assets        *config.AssetTable
	codec         *resource.Codec
	rng           io.Reader
	swapForwarder common.Address
	poolFee       uint32
	logger        zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCodec selects the resource codec (default SHA-256).
func WithCodec(c *resource.Codec) Option {
	return func(b *Builder) { b.codec = c }
}

// WithRandomness sets the source of nonces and seeds (default crypto/rand).
func WithRandomness(r io.Reader) Option {
	return func(b *Builder) { b.rng = r }
}

// WithSwapForwarder sets the venue forwarder that executes swaps.
func WithSwapForwarder(addr common.Address) Option {
	return func(b *Builder) { b.swapForwarder = addr }
}

// WithPoolFee sets the venue fee tier for swaps.
func WithPoolFee(fee uint32) Option {
	return func(b *Builder) { b.poolFee = fee }
}

// WithLogger sets the builder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder over the given asset table.
func NewBuilder(assets *config.AssetTable, opts ...Option) *Builder {
	b := &Builder{
		assets:  assets,
		codec:   resource.Default,
		poolFee: DefaultPoolFee,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBuilderFromConfig creates a builder from the shared configuration.
func NewBuilderFromConfig(cfg *config.Config, opts ...Option) (*Builder, error) {
	table, err := cfg.AssetTable()
	if err != nil {
		return nil, err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return nil, err
	}
	base := []Option{WithCodec(codec), WithSwapForwarder(cfg.SwapForwarder), WithPoolFee(cfg.PoolFee)}
	return NewBuilder(table, append(base, opts...)...), nil
}

// Codec returns the codec used for derivations.
func (b *Builder) Codec() *resource.Codec { return b.codec }

// Assets returns the injected asset table.
func (b *Builder) Assets() *config.AssetTable { return b.assets }

// checkKey verifies that key commits to r.NkCommitment.
func (b *Builder) checkKey(r *resource.Resource, key resource.NullifierKey) error {
	if actual := b.codec.KeyCommitment(key); actual != r.NkCommitment {
		return &KeyMismatchError{Expected: r.NkCommitment, Actual: actual}
	}
	return nil
}

// assetOf resolves the asset whose forwarder governs r.
func (b *Builder) assetOf(r *resource.Resource) (config.Asset, error) {
	a, ok := b.assets.ByLogicRef(r.LogicRef)
	if !ok {
		return config.Asset{}, &UnknownForwarderError{LogicRef: r.LogicRef}
	}
	return a, nil
}

// action builds a one-unit action consuming one resource and creating another.
// Payloads are attached to the logic input of the side that triggers the forwarder call.
func (b *Builder) action(consumed *resource.Resource, key resource.NullifierKey, consumedPayloads [][]byte,
	created *resource.Resource, createdPayloads [][]byte) (*Action, common.Hash, common.Hash, error) {

	nf, err := b.codec.Nullifier(consumed, key)
	if err != nil {
		return nil, common.Hash{}, common.Hash{}, err
	}
	cm, err := b.codec.Commitment(created)
	if err != nil {
		return nil, common.Hash{}, common.Hash{}, err
	}
	act := &Action{
		ComplianceUnits: []ComplianceUnit{{
			Instance: ComplianceInstance{
				ConsumedNullifier: nf,
				ConsumedLogicRef:  consumed.LogicRef,
				CreatedCommitment: cm,
				CreatedLogicRef:   created.LogicRef,
			},
		}},
		LogicVerifierInputs: []LogicVerifierInput{
			{Tag: nf, VerifyingKey: consumed.LogicRef, IsConsumed: true, AppData: AppData{ExternalPayload: consumedPayloads}},
			{Tag: cm, VerifyingKey: created.LogicRef, IsConsumed: false, AppData: AppData{ExternalPayload: createdPayloads}},
		},
	}
	return act, nf, cm, nil
}

// Built is the kind-independent view of a build result.
type Built struct {
	Kind        Kind
	Transaction *Transaction
	Call        ForwarderCall
	Resource    *resource.Resource // created resource, nil for unshield
	Nullifier   *common.Hash       // consumed nullifier, nil for shield
}

// Build validates a typed request and dispatches it to the matching builder.
func (b *Builder) Build(req Request) (*Built, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case *ShieldRequest:
		key, _ := resource.ParseNullifierKey(r.NullifierKey)
		res, err := b.BuildShield(r.Token, r.Amount, common.HexToAddress(r.Sender), key)
		if err != nil {
			return nil, err
		}
		return &Built{Kind: KindShield, Transaction: res.Transaction, Call: res.Call, Resource: res.Resource}, nil
	case *SwapRequest:
		key, _ := resource.ParseNullifierKey(r.NullifierKey)
		res, err := b.BuildSwap(r.InputResource, r.OutputToken, key, r.MinAmountOut)
		if err != nil {
			return nil, err
		}
		return &Built{Kind: KindSwap, Transaction: res.Transaction, Call: res.Call, Resource: res.Resource, Nullifier: &res.Nullifier}, nil
	case *UnshieldRequest:
		key, _ := resource.ParseNullifierKey(r.NullifierKey)
		res, err := b.BuildUnshield(r.Resource, common.HexToAddress(r.Recipient), key)
		if err != nil {
			return nil, err
		}
		return &Built{Kind: KindUnshield, Transaction: res.Transaction, Call: res.Call, Nullifier: &res.Nullifier}, nil
	default:
		return nil, &ValidationError{Field: "request", Reason: "unsupported request type"}
	}
}
