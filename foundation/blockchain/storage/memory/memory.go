// Package memory implements the storage.KeyValueStore interface using a map.
// It is used by tests and by nodes that do not need to persist state.
package memory

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("memory store closed")

// Memory represents an in-memory key/value store.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// FailWrites forces every batch write to fail. It lets callers test
	// their behavior when the backing store rejects a commit.
	FailWrites bool
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

// Close releases the data held by the store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	m.closed = true
	return nil
}

// Has reports if the key exists.
func (m *Memory) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	_, exists := m.data[string(key)]
	return exists, nil
}

// Get returns a copy of the value stored for the key.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	v, exists := m.data[string(key)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return bytes.Clone(v), nil
}

// Put stores a copy of the value for the key.
func (m *Memory) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.data[string(key)] = bytes.Clone(value)
	return nil
}

// Delete removes the key from the store.
func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.data, string(key))
	return nil
}

// Len returns the number of keys in the store.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

// NewBatch constructs a batch bound to this store.
func (m *Memory) NewBatch() storage.Batch {
	return &batch{store: m}
}

// NewIterator returns an iterator over a snapshot of the keys that start
// with the specified prefix.
func (m *Memory) NewIterator(prefix []byte) storage.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = bytes.Clone(m.data[k])
	}

	return &iterator{keys: keys, values: values, pos: -1}
}

// =============================================================================

type operation struct {
	key    string
	value  []byte
	delete bool
}

// batch buffers writes and applies them under a single lock.
type batch struct {
	store *Memory
	ops   []operation
}

func (b *batch) Put(key []byte, value []byte) error {
	b.ops = append(b.ops, operation{key: string(key), value: bytes.Clone(value)})
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, operation{key: string(key), delete: true})
	return nil
}

func (b *batch) Len() int {
	return len(b.ops)
}

func (b *batch) Reset() {
	b.ops = nil
}

func (b *batch) Write() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if b.store.closed {
		return ErrClosed
	}

	if b.store.FailWrites {
		return errors.New("memory store: write rejected")
	}

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.data, op.key)
			continue
		}
		b.store.data[op.key] = op.value
	}

	return nil
}

// =============================================================================

type iterator struct {
	keys   []string
	values [][]byte
	pos    int
}

func (i *iterator) Next() bool {
	if i.pos+1 >= len(i.keys) {
		i.pos = len(i.keys)
		return false
	}
	i.pos++
	return true
}

func (i *iterator) Key() []byte {
	if i.pos < 0 || i.pos >= len(i.keys) {
		return nil
	}
	return []byte(i.keys[i.pos])
}

func (i *iterator) Value() []byte {
	if i.pos < 0 || i.pos >= len(i.values) {
		return nil
	}
	return i.values[i.pos]
}

func (i *iterator) Error() error { return nil }
func (i *iterator) Release()     {}
