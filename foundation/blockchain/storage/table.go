package storage

// Table scopes every key of the underlying store under a fixed prefix. It
// lets several chains share a single database without key collisions.
type Table struct {
	db     KeyValueStore
	prefix string
}

// NewTable constructs a table over the specified store.
func NewTable(db KeyValueStore, prefix string) *Table {
	return &Table{
		db:     db,
		prefix: prefix,
	}
}

// Has reports if the key exists.
func (t *Table) Has(key []byte) (bool, error) {
	return t.db.Has(t.key(key))
}

// Get returns the value for the key or ErrNotFound.
func (t *Table) Get(key []byte) ([]byte, error) {
	return t.db.Get(t.key(key))
}

// Put writes the key/value pair.
func (t *Table) Put(key []byte, value []byte) error {
	return t.db.Put(t.key(key), value)
}

// Delete removes the key.
func (t *Table) Delete(key []byte) error {
	return t.db.Delete(t.key(key))
}

// NewBatch returns a batch that prefixes every key it writes.
func (t *Table) NewBatch() Batch {
	return &tableBatch{batch: t.db.NewBatch(), prefix: t.prefix}
}

// NewIterator walks the keys of this table that start with prefix. The
// keys returned have the table prefix removed.
func (t *Table) NewIterator(prefix []byte) Iterator {
	return &tableIterator{iter: t.db.NewIterator(t.key(prefix)), trim: len(t.prefix)}
}

// Close does nothing since the table does not own the store.
func (t *Table) Close() error {
	return nil
}

func (t *Table) key(key []byte) []byte {
	k := make([]byte, 0, len(t.prefix)+len(key))
	k = append(k, t.prefix...)
	return append(k, key...)
}

// =============================================================================

type tableBatch struct {
	batch  Batch
	prefix string
}

func (b *tableBatch) Put(key []byte, value []byte) error {
	return b.batch.Put(append([]byte(b.prefix), key...), value)
}

func (b *tableBatch) Delete(key []byte) error {
	return b.batch.Delete(append([]byte(b.prefix), key...))
}

func (b *tableBatch) Len() int     { return b.batch.Len() }
func (b *tableBatch) Write() error { return b.batch.Write() }
func (b *tableBatch) Reset()       { b.batch.Reset() }

type tableIterator struct {
	iter Iterator
	trim int
}

func (i *tableIterator) Next() bool    { return i.iter.Next() }
func (i *tableIterator) Key() []byte   { return i.iter.Key()[i.trim:] }
func (i *tableIterator) Value() []byte { return i.iter.Value() }
func (i *tableIterator) Error() error  { return i.iter.Error() }
func (i *tableIterator) Release()      { i.iter.Release() }
