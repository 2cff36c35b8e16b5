// Package changeset provides a transactional overlay over a key/value store.
// Writes are buffered in order and only reach the store when the change set
// is executed, which lets a block discard the effects of a failed transaction
// by truncating back to a checkpoint.
package changeset

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
)

// Set of error variables for change set handling.
var (
	ErrApply      = errors.New("change set apply failed")
	ErrCheckpoint = errors.New("invalid checkpoint")
)

// operation is a single buffered write. A delete is stored as a tombstone.
type operation struct {
	key     string
	value   []byte
	deleted bool
}

// ChangeSet buffers mutations over a base store.
type ChangeSet struct {
	base    storage.KeyValueStore
	ops     []operation
	index   map[string]int
	version uint64
}

// New constructs a change set over the base store.
func New(base storage.KeyValueStore) *ChangeSet {
	return &ChangeSet{
		base:  base,
		index: make(map[string]int),
	}
}

// Has reports if the key exists once the buffered writes are considered.
func (cs *ChangeSet) Has(key []byte) (bool, error) {
	if i, exists := cs.index[string(key)]; exists {
		return !cs.ops[i].deleted, nil
	}

	return cs.base.Has(key)
}

// Get returns the latest value for the key, falling through to the base
// store when no buffered write exists. A tombstone yields storage.ErrNotFound.
func (cs *ChangeSet) Get(key []byte) ([]byte, error) {
	if i, exists := cs.index[string(key)]; exists {
		op := cs.ops[i]
		if op.deleted {
			return nil, storage.ErrNotFound
		}
		return bytes.Clone(op.value), nil
	}

	return cs.base.Get(key)
}

// Put buffers a write of the key/value pair.
func (cs *ChangeSet) Put(key []byte, value []byte) {
	cs.append(operation{key: string(key), value: bytes.Clone(value)})
}

// Delete buffers a tombstone for the key.
func (cs *ChangeSet) Delete(key []byte) {
	cs.append(operation{key: string(key), deleted: true})
}

// Count returns the number of buffered operations.
func (cs *ChangeSet) Count() int {
	return len(cs.ops)
}

// Version returns a counter that increases on every mutation and never goes
// back, even after Truncate or Clear. Comparing two versions tells if
// anything was written in between.
func (cs *ChangeSet) Version() uint64 {
	return cs.version
}

// Checkpoint returns a marker that can later be passed to Truncate.
func (cs *ChangeSet) Checkpoint() int {
	return len(cs.ops)
}

// Truncate discards every operation recorded after the checkpoint.
func (cs *ChangeSet) Truncate(checkpoint int) error {
	if checkpoint < 0 || checkpoint > len(cs.ops) {
		return fmt.Errorf("%w: %d, ops %d", ErrCheckpoint, checkpoint, len(cs.ops))
	}

	if checkpoint == len(cs.ops) {
		return nil
	}

	cs.ops = cs.ops[:checkpoint]
	cs.version++
	cs.reindex()

	return nil
}

// Clear discards every buffered operation.
func (cs *ChangeSet) Clear() {
	if len(cs.ops) > 0 {
		cs.version++
	}

	cs.ops = nil
	cs.index = make(map[string]int)
}

// Execute applies the buffered operations to the base store in order and in
// one atomic batch. On success the buffer is emptied, so calling Execute
// again applies nothing. On failure the buffer is kept and the store is left
// as it was.
func (cs *ChangeSet) Execute() error {
	if len(cs.ops) == 0 {
		return nil
	}

	batch := cs.base.NewBatch()
	for _, op := range cs.ops {
		var err error
		switch {
		case op.deleted:
			err = batch.Delete([]byte(op.key))
		default:
			err = batch.Put([]byte(op.key), op.value)
		}
		if err != nil {
			batch.Reset()
			return fmt.Errorf("%w: %w", ErrApply, err)
		}
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("%w: %w", ErrApply, err)
	}

	cs.ops = nil
	cs.index = make(map[string]int)

	return nil
}

// =============================================================================

func (cs *ChangeSet) append(op operation) {
	cs.ops = append(cs.ops, op)
	cs.index[op.key] = len(cs.ops) - 1
	cs.version++
}

func (cs *ChangeSet) reindex() {
	cs.index = make(map[string]int, len(cs.ops))
	for i, op := range cs.ops {
		cs.index[op.key] = i
	}
}
