package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
)

// Set of keys for the chain metadata.
var (
	keyHeight  = []byte("meta.height")
	keyLast    = []byte("meta.last")
	keyGenesis = []byte("meta.genesis")
)

func blockKey(h database.Hash) []byte {
	return []byte("blk." + h.String())
}

func txKey(h database.Hash) []byte {
	return []byte("tx." + h.String())
}

func heightKey(height uint64) []byte {
	return []byte("height." + strconv.FormatUint(height, 10))
}

func txBlockKey(h database.Hash) []byte {
	return []byte("txblk." + h.String())
}

func addressKey(a database.Address) []byte {
	return []byte("addr." + a.String())
}

// =============================================================================

// corrupted halts the chain for data that does not match its key and
// returns the error.
func (c *Chain) corrupted(format string, args ...any) error {
	return c.halt(fmt.Errorf("%w: "+format, append([]any{ErrStorageCorrupted}, args...)...))
}

// readBlock loads a committed block and checks it is the block the key
// names.
func (c *Chain) readBlock(hash database.Hash) (*database.Block, error) {
	if v, found := c.blocks.Get(hash); found {
		return v.(*database.Block), nil
	}

	data, err := c.store.Get(blockKey(hash))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("block %s: %w", hash, ErrNotFound)
		}
		return nil, err
	}

	var block database.Block
	if err := database.Decode(data, &block); err != nil {
		return nil, c.corrupted("block %s: %w", hash, err)
	}

	if got := block.Hash(); got != hash {
		return nil, c.corrupted("block stored under %s hashes to %s", hash, got)
	}

	c.blocks.Add(hash, &block)
	return &block, nil
}

// blockByHeight resolves the height index and loads the block.
func (c *Chain) blockByHeight(height uint64) (*database.Block, error) {
	hash, err := c.readHash(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("height %d: %w", height, err)
	}

	block, err := c.readBlock(hash)
	if err != nil {
		return nil, err
	}

	if block.Height != height {
		return nil, c.corrupted("height index %d names block %d", height, block.Height)
	}

	return block, nil
}

// readTransaction loads a committed transaction and checks its hash.
func (c *Chain) readTransaction(hash database.Hash) (database.Transaction, error) {
	data, err := c.store.Get(txKey(hash))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return database.Transaction{}, fmt.Errorf("transaction %s: %w", hash, ErrNotFound)
		}
		return database.Transaction{}, err
	}

	var tx database.Transaction
	if err := database.Decode(data, &tx); err != nil {
		return database.Transaction{}, c.corrupted("transaction %s: %w", hash, err)
	}

	if got := tx.Hash(); got != hash {
		return database.Transaction{}, c.corrupted("transaction stored under %s hashes to %s", hash, got)
	}

	return tx, nil
}

// readHash reads a hash stored as text under the key.
func (c *Chain) readHash(key []byte) (database.Hash, error) {
	data, err := c.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return database.ZeroHash, ErrNotFound
		}
		return database.ZeroHash, err
	}

	hash, err := database.ToHash(string(data))
	if err != nil {
		return database.ZeroHash, c.corrupted("%s: %w", key, err)
	}

	return hash, nil
}

// isIncluded reports if the transaction was committed in an earlier block.
func (c *Chain) isIncluded(hash database.Hash) (bool, error) {
	return c.store.Has(txBlockKey(hash))
}

// reader is the read side shared by the store and a change set.
type reader interface {
	Get(key []byte) ([]byte, error)
}

// readHashList reads a json list of hashes. A missing key is an empty list.
func readHashList(r reader, key []byte) ([]database.Hash, error) {
	data, err := r.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var list []database.Hash
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageCorrupted, key, err)
	}

	return list, nil
}
