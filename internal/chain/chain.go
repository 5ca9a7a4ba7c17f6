// chain.go - Serialized access to the simulated state.
//
// Each Call runs to completion (commit or full revert) before the next one starts,
// matching the host chain's single-threaded-per-call execution model.

package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Chain guards a State with a mutex.
type Chain struct {
	mu    sync.Mutex
	state *State
}

// New creates a chain over an empty state.
func New() *Chain {
	return &Chain{state: NewState()}
}

// Call runs one top-level call from caller to the contract at to.
func (c *Chain) Call(caller, to common.Address, input []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, err := c.state.Call(caller, to, input)
	c.state.commit()
	return out, err
}

// Update runs fn against the state; mutations are reverted if fn fails.
func (c *Chain) Update(fn func(st *State) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.state.Snapshot()
	if err := fn(c.state); err != nil {
		c.state.RevertToSnapshot(snap)
		return err
	}
	c.state.commit()
	return nil
}

// View runs fn against the state without expecting mutations.
func (c *Chain) View(fn func(st *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}
