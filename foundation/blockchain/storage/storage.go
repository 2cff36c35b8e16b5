// Package storage defines the key/value contract every persistent backend
// used by the chain must satisfy.
package storage

import (
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("key not found")

// Reader represents the read side of a key/value store.
type Reader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// Writer represents the write side of a key/value store.
type Writer interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Batch collects writes that are applied to the store in one atomic step.
// A failed Write leaves the store untouched.
type Batch interface {
	Writer
	Len() int
	Write() error
	Reset()
}

// Iterator walks a set of keys in ascending order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// KeyValueStore is the behavior required by the chain for persistence.
type KeyValueStore interface {
	Reader
	Writer
	NewBatch() Batch
	NewIterator(prefix []byte) Iterator
	Close() error
}
