// gateway.go - Authorization and dispatch shared by all forwarders.
//
// Every invocation walks the same states:
//
//	Idle -> AuthorizationCheck -> SelectorDispatch -> path -> Committed | Reverted
//
// The caller must be the configured authority (the protocol adapter) before anything
// else is looked at. The first four bytes of input select the path. A path runs against
// a state snapshot and any failure reverts it completely. Nothing persists between
// invocations except token balances held in escrow.

package forwarder

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
)

// path executes one recognized operation on its decoded arguments.
type path func(st *chain.State, args []byte) ([]byte, error)

// gateway holds what every forwarder kind shares.
type gateway struct {
	self      common.Address
	authority common.Address
	paths     map[calldata.Selector]path
	logger    zerolog.Logger
}

// Address returns the forwarder's own address.
func (g *gateway) Address() common.Address { return g.self }

// Authority returns the only address allowed to invoke the forwarder.
func (g *gateway) Authority() common.Address { return g.authority }

// Selectors returns the recognized selectors.
func (g *gateway) Selectors() []calldata.Selector {
	out := make([]calldata.Selector, 0, len(g.paths))
	for s := range g.paths {
		out = append(out, s)
	}
	return out
}

// Invoke implements chain.Contract.
func (g *gateway) Invoke(st *chain.State, caller common.Address, input []byte) ([]byte, error) {
	// 1. AuthorizationCheck precedes everything
	if caller != g.authority {
		g.logger.Warn().Str("caller", caller.Hex()).Msg("rejected unauthorized caller")
		return nil, &OnlyAuthorizedError{Caller: caller, Authority: g.authority}
	}

	// 2. SelectorDispatch
	sel, args, err := calldata.Split(input)
	run, ok := g.paths[sel]
	if err != nil || !ok {
		return nil, &UnsupportedSelectorError{Selector: sel}
	}

	// 3. Path, committed or fully reverted
	snap := st.Snapshot()
	out, err := run(st, args)
	if err != nil {
		st.RevertToSnapshot(snap)
		g.logger.Debug().Str("selector", sel.Hex()).Err(err).Msg("reverted")
		return nil, err
	}
	return out, nil
}
