// deploy.go - Deploys the full protocol onto a simulated chain.
//
// One ERC-20 token contract and one escrow forwarder per configured asset, the swap
// forwarder in front of a fixed-rate router, and the adapter as the only authority of
// every forwarder.

package adapter

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"shieldedactions/internal/chain"
	"shieldedactions/internal/config"
	"shieldedactions/internal/forwarder"
)

// Deployment is a protocol instance on a simulated chain.
type Deployment struct {
	Chain   *chain.Chain
	Adapter *Adapter
	Escrows map[string]*forwarder.Escrow // by asset symbol
	Swap    *forwarder.Swap
	Router  *chain.Router
	Assets  *config.AssetTable
	PoolFee uint32
}

// Deploy creates a fresh chain and deploys the protocol described by cfg.
func Deploy(cfg *config.Config, ledger *Ledger, verifier Verifier, logger zerolog.Logger) (*Deployment, error) {
	table, err := cfg.AssetTable()
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = NewLedger()
	}

	d := &Deployment{
		Chain:   chain.New(),
		Adapter: New(cfg.AdapterAddress, ledger, verifier),
		Escrows: make(map[string]*forwarder.Escrow),
		Swap:    forwarder.NewSwap(cfg.SwapForwarder, cfg.SwapRouter, cfg.AdapterAddress),
		Router:  chain.NewRouter(cfg.SwapRouter),
		Assets:  table,
		PoolFee: cfg.PoolFee,
	}
	d.Adapter.SetLogger(logger.With().Str("component", "adapter").Logger())
	d.Swap.SetLogger(logger)

	contracts := []chain.Contract{d.Adapter, d.Swap, d.Router}
	for _, a := range table.Assets() {
		esc := forwarder.NewEscrow(a.Forwarder, a.Token, cfg.AdapterAddress)
		esc.SetLogger(logger)
		d.Escrows[a.Symbol] = esc
		d.Adapter.RegisterForwarder(a.Forwarder)
		contracts = append(contracts, chain.NewToken(a.Token), esc)
	}
	d.Adapter.RegisterForwarder(cfg.SwapForwarder)

	err = d.Chain.Update(func(st *chain.State) error {
		for _, c := range contracts {
			if err := st.Deploy(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy: %w", err)
	}
	return d, nil
}

// Fund mints amount base units of the asset to account.
func (d *Deployment) Fund(symbol string, account common.Address, amount *uint256.Int) error {
	a, ok := d.Assets.BySymbol(symbol)
	if !ok {
		return fmt.Errorf("unknown asset %s", symbol)
	}
	return d.Chain.Update(func(st *chain.State) error {
		return st.Mint(a.Token, account, amount)
	})
}

// AddPool prices from -> to on the router at rate and seeds liquidity of the output asset.
func (d *Deployment) AddPool(from, to string, rate chain.Rate, liquidity *uint256.Int) error {
	in, ok := d.Assets.BySymbol(from)
	if !ok {
		return fmt.Errorf("unknown asset %s", from)
	}
	out, ok := d.Assets.BySymbol(to)
	if !ok {
		return fmt.Errorf("unknown asset %s", to)
	}
	d.Router.SetPool(in.Token, out.Token, d.PoolFee, rate)
	return d.Fund(to, d.Router.Address(), liquidity)
}

// BalanceOf returns account's balance of the asset.
func (d *Deployment) BalanceOf(symbol string, account common.Address) *uint256.Int {
	a, ok := d.Assets.BySymbol(symbol)
	if !ok {
		return new(uint256.Int)
	}
	var bal *uint256.Int
	d.Chain.View(func(st *chain.State) { bal = st.BalanceOf(a.Token, account) })
	return bal
}

// Escrowed returns the escrow balance of the asset.
func (d *Deployment) Escrowed(symbol string) *uint256.Int {
	a, ok := d.Assets.BySymbol(symbol)
	if !ok {
		return new(uint256.Int)
	}
	return d.BalanceOf(symbol, a.Forwarder)
}
