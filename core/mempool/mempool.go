package mempool

import (
	"sync"

	"carechain/core/tx"
)

// Pool holds transactions waiting for block inclusion, keyed by
// transaction hash with FIFO ordering. When full, the oldest pending
// transaction is evicted.
type Pool struct {
	mu     sync.Mutex
	txs    map[string]tx.Transaction
	order  []string
	maxTxs int
}

// DefaultMaxTxs bounds the pool when the caller passes no usable limit.
const DefaultMaxTxs = 1024

// NewPool creates a pool bounded to maxTxs pending transactions. A
// non-positive bound falls back to DefaultMaxTxs.
func NewPool(maxTxs int) *Pool {
	if maxTxs <= 0 {
		maxTxs = DefaultMaxTxs
	}
	return &Pool{
		txs:    make(map[string]tx.Transaction),
		maxTxs: maxTxs,
	}
}

// Add queues a transaction. Returns false for duplicates (same hash).
func (p *Pool) Add(t tx.Transaction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[t.Hash]; exists {
		return false
	}
	if len(p.order) >= p.maxTxs {
		oldest := p.order[0]
		delete(p.txs, oldest)
		p.order = p.order[1:]
	}
	p.txs[t.Hash] = t
	p.order = append(p.order, t.Hash)
	return true
}

// Pending returns the queued transactions in arrival order.
func (p *Pool) Pending() []tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tx.Transaction, 0, len(p.order))
	for _, h := range p.order {
		out = append(out, p.txs[h])
	}
	return out
}

// Drain removes and returns all queued transactions in arrival order.
// The block producer fixes this order at assembly time.
func (p *Pool) Drain() []tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tx.Transaction, 0, len(p.order))
	for _, h := range p.order {
		out = append(out, p.txs[h])
	}
	p.txs = make(map[string]tx.Transaction)
	p.order = nil
	return out
}

// Requeue returns transactions to the front of the pool, preserving
// their relative order. Used when block production fails after a drain.
func (p *Pool) Requeue(txs []tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	front := make([]string, 0, len(txs))
	for _, t := range txs {
		if _, exists := p.txs[t.Hash]; exists {
			continue
		}
		p.txs[t.Hash] = t
		front = append(front, t.Hash)
	}
	p.order = append(front, p.order...)

	// The requeued transactions take priority; newest arrivals fall off
	// the back to restore the bound.
	for len(p.order) > p.maxTxs {
		newest := p.order[len(p.order)-1]
		delete(p.txs, newest)
		p.order = p.order[:len(p.order)-1]
	}
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}
