// ledger.go - Append-only public ledger kept by the protocol adapter.
//
// The Ledger records every created commitment, every spent nullifier and the hash of
// every executed transaction. Nullifiers are unique: a second spend is rejected.
// It is persisted as a single JSON file.

package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrDoubleSpend is returned when a nullifier is already in the ledger.
var ErrDoubleSpend = errors.New("double-spend detected: nullifier already in ledger")

// Ledger is the adapter's commitment list and nullifier set.
type Ledger struct {
	mu          sync.RWMutex
	commitments []common.Hash
	nullifiers  []common.Hash
	txs         []common.Hash
	spent       map[common.Hash]struct{}
}

// ledgerFile is the on-disk form.
type ledgerFile struct {
	Commitments  []common.Hash `json:"commitments"`
	Nullifiers   []common.Hash `json:"nullifiers"`
	Transactions []common.Hash `json:"transactions"`
}

// mark records the ledger length so an aborted execution can be undone.
type mark struct {
	commitments, nullifiers, txs int
}

// NewLedger creates a new, empty ledger.
func NewLedger() *Ledger {
	return &Ledger{spent: make(map[common.Hash]struct{})}
}

// HasNullifier reports whether nf has been spent.
func (l *Ledger) HasNullifier(nf common.Hash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.spent[nf]
	return ok
}

// HasCommitment reports whether cm has been created.
func (l *Ledger) HasCommitment(cm common.Hash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.commitments {
		if c == cm {
			return true
		}
	}
	return false
}

// Commitments returns all commitments in creation order.
func (l *Ledger) Commitments() []common.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]common.Hash(nil), l.commitments...)
}

// Nullifiers returns all nullifiers in spend order.
func (l *Ledger) Nullifiers() []common.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]common.Hash(nil), l.nullifiers...)
}

// Transactions returns the hashes of executed transactions.
func (l *Ledger) Transactions() []common.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]common.Hash(nil), l.txs...)
}

func (l *Ledger) mark() mark {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return mark{len(l.commitments), len(l.nullifiers), len(l.txs)}
}

// rollback truncates the ledger to m.
func (l *Ledger) rollback(m mark) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, nf := range l.nullifiers[m.nullifiers:] {
		delete(l.spent, nf)
	}
	l.commitments = l.commitments[:m.commitments]
	l.nullifiers = l.nullifiers[:m.nullifiers]
	l.txs = l.txs[:m.txs]
}

// spend adds nf to the nullifier set.
func (l *Ledger) spend(nf common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.spent[nf]; ok {
		return fmt.Errorf("%w: %s", ErrDoubleSpend, nf.Hex())
	}
	l.spent[nf] = struct{}{}
	l.nullifiers = append(l.nullifiers, nf)
	return nil
}

func (l *Ledger) addCommitment(cm common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitments = append(l.commitments, cm)
}

func (l *Ledger) addTransaction(h common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append(l.txs, h)
}

// SaveToFile saves the ledger as JSON, overwriting path.
func (l *Ledger) SaveToFile(path string) error {
	l.mu.RLock()
	data, err := json.MarshalIndent(ledgerFile{
		Commitments:  l.commitments,
		Nullifiers:   l.nullifiers,
		Transactions: l.txs,
	}, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadLedgerFromFile loads a ledger saved by SaveToFile.
func LoadLedgerFromFile(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	l := NewLedger()
	l.commitments = f.Commitments
	l.txs = f.Transactions
	for _, nf := range f.Nullifiers {
		if err := l.spend(nf); err != nil {
			return nil, fmt.Errorf("corrupt ledger: %w", err)
		}
	}
	return l, nil
}
