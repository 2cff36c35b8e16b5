// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"sync"

	"github.com/gammazero/deque"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/mempool/selector"
)

// ErrFull is returned when the pool reached its capacity.
var ErrFull = errors.New("mempool is full")

// DefaultCapacity is the number of transactions a pool holds by default.
const DefaultCapacity = 10_000

// Mempool represents a cache of pending transactions keyed by hash. The
// arrival order is kept in a queue so selection is deterministic.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[database.Hash]database.Transaction
	order    deque.Deque
	capacity int
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategySender, DefaultCapacity)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string, capacity int) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	mp := Mempool{
		pool:     make(map[database.Hash]database.Transaction),
		capacity: capacity,
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. A replaced
// transaction keeps its place in line.
func (mp *Mempool) Upsert(tx database.Transaction) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	hash := tx.Hash()

	if _, exists := mp.pool[hash]; !exists {
		if len(mp.pool) >= mp.capacity {
			return len(mp.pool), ErrFull
		}
		mp.order.PushBack(hash)
	}

	mp.pool[hash] = tx

	return len(mp.pool), nil
}

// Has reports if the transaction is waiting in the pool.
func (mp *Mempool) Has(hash database.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[hash]
	return exists
}

// Delete removes a transaction from the mempool. Its place in the queue is
// dropped the next time the queue is walked.
func (mp *Mempool) Delete(hash database.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, hash)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[database.Hash]database.Transaction)
	mp.order = deque.Deque{}
}

// Copy returns the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.Transaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.ordered()
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block.
func (mp *Mempool) PickBest(howMany int) []database.Transaction {
	mp.mu.Lock()
	txs := mp.ordered()
	mp.mu.Unlock()

	return mp.selectFn(txs, howMany)
}

// ordered walks the queue once, dropping the hashes that were deleted.
func (mp *Mempool) ordered() []database.Transaction {
	txs := make([]database.Transaction, 0, len(mp.pool))

	for range mp.order.Len() {
		hash := mp.order.PopFront().(database.Hash)

		tx, exists := mp.pool[hash]
		if !exists {
			continue
		}

		txs = append(txs, tx)
		mp.order.PushBack(hash)
	}

	return txs
}
