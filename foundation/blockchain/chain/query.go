package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
	"github.com/nexuschain/chaincore/foundation/blockchain/runtime"
	"github.com/nexuschain/chaincore/foundation/blockchain/task"
)

// LastBlock returns the last committed block, nil for an empty chain.
func (c *Chain) LastBlock() *database.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.last
}

// Height returns the height of the last committed block.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.last == nil {
		return 0
	}
	return c.last.Height
}

// GenesisHash returns the hash of the first block once the second block
// recorded it.
func (c *Chain) GenesisHash() (database.Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.readHash(keyGenesis)
}

// GetBlockByHash returns the committed block with the hash.
func (c *Chain) GetBlockByHash(hash database.Hash) (*database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.readBlock(hash)
}

// GetBlockByHeight returns the committed block at the height.
func (c *Chain) GetBlockByHeight(height uint64) (*database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blockByHeight(height)
}

// GetTransaction returns a committed transaction.
func (c *Chain) GetTransaction(hash database.Hash) (database.Transaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.readTransaction(hash)
}

// GetBlockHashOfTransaction returns the hash of the block that includes the
// transaction.
func (c *Chain) GetBlockHashOfTransaction(hash database.Hash) (database.Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, err := c.readHash(txBlockKey(hash))
	if err != nil {
		return database.ZeroHash, fmt.Errorf("transaction %s: %w", hash, err)
	}
	return h, nil
}

// GetTransactionHashesForAddress returns the transactions that involved the
// address in the order they were committed.
func (c *Chain) GetTransactionHashesForAddress(addr database.Address) ([]database.Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, err := readHashList(c.store, addressKey(addr))
	if errors.Is(err, ErrStorageCorrupted) {
		return nil, c.halt(err)
	}
	return list, err
}

// GetTasks returns the tasks scheduled on the chain.
func (c *Chain) GetTasks() ([]task.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return task.NewStore(changeset.New(c.store)).List()
}

// ExpectedValidator returns the validator whose turn covers the timestamp.
func (c *Chain) ExpectedValidator(timestamp uint64) (database.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.HasGenesis() {
		return database.NullAddress, errors.New("chain has no genesis block")
	}

	return native.ExpectedValidator(changeset.New(c.store), c.genesisTime, timestamp)
}

// Balance returns the gas balance of the address in committed state.
func (c *Chain) Balance(addr database.Address) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return native.Balance(changeset.New(c.store), addr)
}

// Invoke runs the script against committed state without a transaction.
// Any attempt to change state fails the call.
func (c *Chain) Invoke(script []byte) (runtime.Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var height, timestamp uint64
	var validator database.Address
	if c.last != nil {
		height = c.last.Height
		timestamp = c.last.Timestamp
		validator = c.last.Validator
	}

	cs := changeset.New(c.store)

	rt, err := runtime.New(runtime.Config{
		TxIndex:    -1,
		Script:     script,
		Chain:      c,
		Height:     height,
		Validator:  validator,
		Time:       timestamp,
		ChangeSet:  cs,
		Oracle:     oracle.NewBlockOracle(nil, c.fetcher, c.oracleCache),
		ReadOnly:   true,
		Registry:   c.registry,
		MinimumFee: c.minimumFee,
		EvHandler:  runtime.EventHandler(c.evHandler),
	})
	if err != nil {
		return runtime.Result{}, err
	}

	return rt.Execute()
}

// Protocol returns the protocol version the next block declares.
func (c *Chain) Protocol() (uint32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, err := native.GovernanceValueOr(changeset.New(c.store), native.ProtocolVersion, DefaultProtocol)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// MinimumFee returns the gas price the next block requires.
func (c *Chain) MinimumFee() (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blockFee(changeset.New(c.store))
}

// InflationDue reports if a block at the timestamp mints new supply.
func (c *Chain) InflationDue(timestamp uint64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.inflationDue(changeset.New(c.store), timestamp)
}
