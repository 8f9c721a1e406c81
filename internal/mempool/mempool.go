// Package mempool implements the Mempool Snapshot (C5): a bounded,
// recent view of pending transactions with a positional index. It is a
// process-wide store guarded by a single RWMutex, refreshed by a
// dedicated poller task reading from a chainclient.ChainNode.
package mempool

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// DefaultDepth is the default mempool_analysis_depth.
const DefaultDepth = 100

// Snapshot is the bounded, ordered admission window of pending
// transactions.
type Snapshot struct {
	mu       sync.RWMutex
	depth    int
	entries  []tx.Transaction
	byHash   map[common.Hash]int
	nextPos  int
}

// New returns an empty Snapshot bounded at depth entries (0 =
// DefaultDepth).
func New(depth int) *Snapshot {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Snapshot{
		depth:  depth,
		byHash: make(map[common.Hash]int),
	}
}

// Admit appends a transaction, assigning its MempoolPosition, evicting
// the oldest entry if the snapshot is already at capacity.
func (s *Snapshot) Admit(t tx.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.MempoolPosition = s.nextPos
	s.nextPos++

	s.entries = append(s.entries, t)
	if len(s.entries) > s.depth {
		evicted := s.entries[0]
		s.entries = s.entries[1:]
		delete(s.byHash, evicted.Hash)
	}

	s.rebuildIndex()
}

// rebuildIndex must be called with mu held.
func (s *Snapshot) rebuildIndex() {
	for k := range s.byHash {
		delete(s.byHash, k)
	}
	for i, e := range s.entries {
		s.byHash[e.Hash] = i
	}
}

// Transactions returns a copy of the current admission window, oldest
// first.
func (s *Snapshot) Transactions() []tx.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tx.Transaction, len(s.entries))
	copy(out, s.entries)
	return out
}

// ByHash returns a copy of the transaction with the given hash, if it
// is still in the admission window.
func (s *Snapshot) ByHash(h common.Hash) (tx.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byHash[h]
	if !ok {
		return tx.Transaction{}, false
	}
	return s.entries[idx], true
}

// Len returns the current number of admitted transactions.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Depth returns the configured maximum window size.
func (s *Snapshot) Depth() int {
	return s.depth
}

// Reset discards all admitted transactions. Positions assigned to later
// admissions keep counting up from where they were.
func (s *Snapshot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	for k := range s.byHash {
		delete(s.byHash, k)
	}
}
