package chain

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
)

// ProcessBlock validates a block produced elsewhere, replays its
// transactions and commits it. The transactions must be exactly the ones
// the block declares, system transactions included. A nil minFee uses the
// fee of the chain.
func (c *Chain) ProcessBlock(block *database.Block, txs []database.Transaction, minFee *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.Halted(); err != nil {
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	if c.state != StateIdle {
		return ErrBlockOpen
	}

	c.evHandler("chain: ProcessBlock: %s: started: height[%d] txs[%d]", c.name, block.Height, len(txs))

	if err := c.processBlock(block, txs, minFee); err != nil {
		c.evHandler("chain: ProcessBlock: %s: rejected: %s", c.name, err)
		metrics.ChainRejectCounter.WithLabelValues(c.name).Inc()
		return err
	}

	c.evHandler("chain: ProcessBlock: %s: completed: height[%d]", c.name, block.Height)
	return nil
}

// ProcessTransactions executes the transactions in order in the open
// block. Every transaction must pass admission, otherwise the block cannot
// be the one its producer built.
func (c *Chain) ProcessTransactions(txs []database.Transaction) ([]Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return nil, ErrNoBlock
	}

	return c.processTransactions(c.open, txs)
}

// =============================================================================

func (c *Chain) processBlock(block *database.Block, txs []database.Transaction, minFee *big.Int) error {
	height := block.Height

	if !block.Validator.IsUser() {
		return NewBlockError(height, fmt.Errorf("%w: %s is not a user address", ErrInvalidValidator, block.Validator))
	}

	if block.ChainAddress != c.address {
		return NewBlockError(height, fmt.Errorf("%w: got %s, exp %s", ErrWrongChain, block.ChainAddress, c.address))
	}

	view := changeset.New(c.store)

	if err := c.checkHeader(view, height, block.PreviousHash, block.Timestamp, block.Protocol); err != nil {
		return NewBlockError(height, err)
	}

	declared, err := c.checkTransactionSet(block, txs)
	if err != nil {
		return NewBlockError(height, err)
	}

	var expected database.Address
	if c.HasGenesis() {
		if expected, err = native.ExpectedValidator(view, c.genesisTime, block.Timestamp); err != nil {
			return NewBlockError(height, fmt.Errorf("%w: %w", ErrInvalidValidator, err))
		}
	}

	if minFee == nil {
		if minFee, err = c.blockFee(view); err != nil {
			return err
		}
	}

	built := database.NewBlock(height, c.address, block.Timestamp, block.PreviousHash, block.Protocol, block.Validator, block.Payload)
	bo := oracle.NewBlockOracle(block.Oracle, nil, nil)

	system, err := c.openBlock(built, bo, minFee)
	if err != nil {
		return err
	}

	if err := c.replay(block, declared, system); err != nil {
		c.discard()
		return NewBlockError(height, err)
	}

	if c.HasGenesis() && block.Validator != expected && !migrated(built, block.Validator, expected) {
		c.discard()
		return NewBlockError(height, fmt.Errorf("%w: got %s, exp %s", ErrInvalidValidator, block.Validator, expected))
	}

	if err := c.closeBlock(c.open); err != nil {
		c.discard()
		return err
	}

	if _, err := c.commit(c.open); err != nil {
		return err
	}

	return nil
}

// checkTransactionSet verifies the declared hashes and the supplied
// transactions are the same duplicate free set.
func (c *Chain) checkTransactionSet(block *database.Block, txs []database.Transaction) (map[database.Hash]database.Transaction, error) {
	hashes := make(map[database.Hash]bool, len(block.TransactionHashes))
	for _, h := range block.TransactionHashes {
		if hashes[h] {
			return nil, fmt.Errorf("%w: %s declared twice", ErrDuplicateTransaction, h)
		}
		hashes[h] = true
	}

	supplied := make(map[database.Hash]database.Transaction, len(txs))
	for _, tx := range txs {
		h := tx.Hash()
		if _, exists := supplied[h]; exists {
			return nil, fmt.Errorf("%w: %s supplied twice", ErrDuplicateTransaction, h)
		}
		supplied[h] = tx

		included, err := c.isIncluded(h)
		if err != nil {
			return nil, err
		}
		if included {
			return nil, fmt.Errorf("%w: %s already in the chain", ErrDuplicateTransaction, h)
		}
	}

	for h := range supplied {
		if !hashes[h] {
			return nil, fmt.Errorf("%w: %s not declared by the block", ErrTransactionSetMismatch, h)
		}
	}
	for h := range hashes {
		if _, exists := supplied[h]; !exists {
			return nil, fmt.Errorf("%w: %s declared but not supplied", ErrTransactionSetMismatch, h)
		}
	}

	return supplied, nil
}

// replay checks the system transactions the chain synthesized match the
// declared ones and executes the user transactions in declared order.
func (c *Chain) replay(block *database.Block, declared map[database.Hash]database.Transaction, system []database.Transaction) error {
	var want []database.Hash
	for _, h := range block.TransactionHashes {
		if declared[h].Sender == c.address {
			want = append(want, h)
		}
	}

	if len(want) != len(system) {
		return fmt.Errorf("%w: %d system transactions declared, %d due", ErrTransactionSetMismatch, len(want), len(system))
	}
	for i, tx := range system {
		if h := tx.Hash(); h != want[i] {
			return fmt.Errorf("%w: system transaction %d: got %s, exp %s", ErrTransactionSetMismatch, i, h, want[i])
		}
	}

	var user []database.Transaction
	for _, h := range block.TransactionHashes {
		if c.open.block.HasTransaction(h) {
			continue
		}
		user = append(user, declared[h])
	}

	if _, err := c.processTransactions(c.open, user); err != nil {
		return err
	}

	got := c.open.block.TransactionHashes
	if len(got) != len(block.TransactionHashes) {
		return fmt.Errorf("%w: executed %d of %d transactions", ErrTransactionSetMismatch, len(got), len(block.TransactionHashes))
	}
	for i := range got {
		if got[i] != block.TransactionHashes[i] {
			return fmt.Errorf("%w: position %d: got %s, exp %s", ErrTransactionSetMismatch, i, got[i], block.TransactionHashes[i])
		}
	}

	return nil
}

func (c *Chain) processTransactions(ob *openBlock, txs []database.Transaction) ([]Response, error) {
	responses := make([]Response, 0, len(txs))
	for _, tx := range txs {
		if resp := c.checkTx(tx, ob.block.Timestamp); !resp.IsOK() {
			return responses, fmt.Errorf("%w: %s: %s", ErrInvalidTransaction, tx.Hash(), resp.Log)
		}

		resp := c.deliverTx(ob, tx)
		if !resp.IsOK() && resp.Codespace == Codespace {
			return responses, fmt.Errorf("%w: %s: %s", ErrInvalidTransaction, tx.Hash(), resp.Log)
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

// migrated reports if the block carries the migration of the expected
// validator to the address that produced it.
func migrated(block *database.Block, validator database.Address, expected database.Address) bool {
	for _, e := range block.AllEvents() {
		if e.Kind == database.EventAddressMigration && e.Address == validator && bytes.Equal(e.Data, []byte(expected.String())) {
			return true
		}
	}
	return false
}
