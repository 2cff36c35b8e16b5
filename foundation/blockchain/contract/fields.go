package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
)

// FieldKind identifies the shape of a storage field.
type FieldKind byte

// Set of field kinds.
const (
	FieldValue FieldKind = iota + 1
	FieldMap
	FieldList
)

// Field describes a storage field declared by a contract.
type Field interface {
	Name() string
	Kind() FieldKind
}

// =============================================================================

// Value is a single typed value kept under "contract.field".
type Value[T any] struct {
	name string
	key  []byte
}

// NewValue declares a value field.
func NewValue[T any](contract string, field string) Value[T] {
	name := contract + "." + field
	return Value[T]{name: name, key: []byte(name)}
}

// Name returns the storage name of the field.
func (f Value[T]) Name() string { return f.name }

// Kind returns FieldValue.
func (f Value[T]) Kind() FieldKind { return FieldValue }

// Get returns the value and reports if it was set.
func (f Value[T]) Get(st Storage) (T, bool, error) {
	return get[T](st, f.key)
}

// Set writes the value.
func (f Value[T]) Set(st Storage, v T) error {
	return put(st, f.key, v)
}

// Clear removes the value.
func (f Value[T]) Clear(st Storage) {
	st.Delete(f.key)
}

// =============================================================================

// Map is a typed map with string keys kept under "contract.field.key".
type Map[T any] struct {
	name   string
	prefix string
}

// NewMap declares a map field.
func NewMap[T any](contract string, field string) Map[T] {
	name := contract + "." + field
	return Map[T]{name: name, prefix: name + "."}
}

// Name returns the storage name of the field.
func (f Map[T]) Name() string { return f.name }

// Kind returns FieldMap.
func (f Map[T]) Kind() FieldKind { return FieldMap }

// Get returns the value for the key and reports if it exists.
func (f Map[T]) Get(st Storage, key string) (T, bool, error) {
	return get[T](st, []byte(f.prefix+key))
}

// Has reports if the key exists.
func (f Map[T]) Has(st Storage, key string) (bool, error) {
	return st.Has([]byte(f.prefix + key))
}

// Set writes the value for the key.
func (f Map[T]) Set(st Storage, key string, v T) error {
	return put(st, []byte(f.prefix+key), v)
}

// Delete removes the key.
func (f Map[T]) Delete(st Storage, key string) {
	st.Delete([]byte(f.prefix + key))
}

// =============================================================================

// List is an ordered typed list kept under "contract.field.#index" with its
// length under "contract.field.count".
type List[T any] struct {
	name   string
	prefix string
}

// NewList declares a list field.
func NewList[T any](contract string, field string) List[T] {
	name := contract + "." + field
	return List[T]{name: name, prefix: name + "."}
}

// Name returns the storage name of the field.
func (f List[T]) Name() string { return f.name }

// Kind returns FieldList.
func (f List[T]) Kind() FieldKind { return FieldList }

// Count returns the number of elements.
func (f List[T]) Count(st Storage) (int, error) {
	n, _, err := get[int](st, f.countKey())
	return n, err
}

// Get returns the element at the index.
func (f List[T]) Get(st Storage, index int) (T, error) {
	var zero T

	count, err := f.Count(st)
	if err != nil {
		return zero, err
	}
	if index < 0 || index >= count {
		return zero, fmt.Errorf("%s: index %d out of range %d", f.name, index, count)
	}

	v, _, err := get[T](st, f.indexKey(index))
	return v, err
}

// Add appends the element.
func (f List[T]) Add(st Storage, v T) error {
	count, err := f.Count(st)
	if err != nil {
		return err
	}

	if err := put(st, f.indexKey(count), v); err != nil {
		return err
	}
	return put(st, f.countKey(), count+1)
}

// Replace overwrites the element at the index.
func (f List[T]) Replace(st Storage, index int, v T) error {
	count, err := f.Count(st)
	if err != nil {
		return err
	}
	if index < 0 || index >= count {
		return fmt.Errorf("%s: index %d out of range %d", f.name, index, count)
	}

	return put(st, f.indexKey(index), v)
}

// RemoveAt deletes the element at the index keeping the order of the rest.
func (f List[T]) RemoveAt(st Storage, index int) error {
	all, err := f.All(st)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(all) {
		return fmt.Errorf("%s: index %d out of range %d", f.name, index, len(all))
	}

	for i := index; i < len(all)-1; i++ {
		if err := put(st, f.indexKey(i), all[i+1]); err != nil {
			return err
		}
	}
	st.Delete(f.indexKey(len(all) - 1))

	return put(st, f.countKey(), len(all)-1)
}

// All returns every element in order.
func (f List[T]) All(st Storage) ([]T, error) {
	count, err := f.Count(st)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, count)
	for i := range count {
		v, _, err := get[T](st, f.indexKey(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f List[T]) countKey() []byte {
	return []byte(f.prefix + "count")
}

func (f List[T]) indexKey(i int) []byte {
	return []byte(f.prefix + "#" + strconv.Itoa(i))
}

// =============================================================================

func get[T any](st Storage, key []byte) (T, bool, error) {
	var v T

	data, err := st.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return v, false, nil
		}
		return v, false, err
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, true, nil
}

func put[T any](st Storage, key []byte, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	st.Put(key, data)
	return nil
}
