// Package leveldb implements the storage.KeyValueStore interface on top of
// goleveldb so chain state survives node restarts.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Options tunes the database. Zero values pick the defaults.
type Options struct {
	CacheMB     int
	OpenFiles   int
	ReadOnly    bool
	NoRecovery  bool
	BloomBitsPK int
}

// LevelDB represents a goleveldb backed key/value store.
type LevelDB struct {
	path string
	db   *leveldb.DB
}

// Open opens, or creates, the database at the specified path. A corrupted
// manifest is recovered unless recovery is turned off.
func Open(path string, o Options) (*LevelDB, error) {
	if o.CacheMB < 16 {
		o.CacheMB = 16
	}
	if o.OpenFiles < 16 {
		o.OpenFiles = 16
	}
	if o.BloomBitsPK == 0 {
		o.BloomBitsPK = 10
	}

	options := opt.Options{
		OpenFilesCacheCapacity: o.OpenFiles,
		BlockCacheCapacity:     o.CacheMB / 2 * opt.MiB,
		WriteBuffer:            o.CacheMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(o.BloomBitsPK),
		ReadOnly:               o.ReadOnly,
	}

	db, err := leveldb.OpenFile(path, &options)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted && !o.NoRecovery {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("opening leveldb %q: %w", path, err)
	}

	ldb := LevelDB{
		path: path,
		db:   db,
	}

	return &ldb, nil
}

// Path returns the location of the database on disk.
func (l *LevelDB) Path() string {
	return l.path
}

// Close flushes and closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Has reports if the key exists.
func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

// Get returns the value for the key or storage.ErrNotFound.
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Put writes the key/value pair.
func (l *LevelDB) Put(key []byte, value []byte) error {
	return l.db.Put(key, value, nil)
}

// Delete removes the key.
func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

// NewBatch constructs a batch that is written with a single sync.
func (l *LevelDB) NewBatch() storage.Batch {
	return &batch{db: l.db, b: new(leveldb.Batch)}
}

// NewIterator walks the keys that start with prefix.
func (l *LevelDB) NewIterator(prefix []byte) storage.Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

// =============================================================================

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key []byte, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Len() int {
	return b.b.Len()
}

func (b *batch) Write() error {
	return b.db.Write(b.b, &opt.WriteOptions{Sync: true})
}

func (b *batch) Reset() {
	b.b.Reset()
}
