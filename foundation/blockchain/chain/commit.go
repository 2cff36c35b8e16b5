package chain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
)

// commit seals the block and applies it with every state change in one
// change set execution.
func (c *Chain) commit(ob *openBlock) (*database.Block, error) {
	start := time.Now()

	block := ob.block
	block.Oracle = ob.oracle.Entries()
	hash := block.Hash()

	c.evHandler("chain: Commit: %s: height[%d] blk[%s] txs[%d]", c.name, block.Height, hash, len(block.TransactionHashes))

	if err := c.index(ob, hash); err != nil {
		c.discard()
		return nil, c.halt(fmt.Errorf("%w: %w", ErrCommitFailed, err))
	}

	if err := ob.cs.Execute(); err != nil {
		c.discard()
		return nil, c.halt(fmt.Errorf("%w: %w", ErrCommitFailed, err))
	}

	c.last = block
	c.hasGenesis.Store(true)
	if block.Height == 1 {
		c.genesisTime = block.Timestamp
	}
	c.blocks.Add(hash, block)

	c.open = nil
	c.state = StateIdle

	metrics.ChainHeightGauge.WithLabelValues(c.name).Set(float64(block.Height))
	metrics.ChainBlockCounter.WithLabelValues(c.name).Inc()
	metrics.ChainStageHistogram.WithLabelValues(c.name, "commit").Observe(time.Since(start).Seconds())

	return block, nil
}

// index writes the block, its transactions and the lookup indexes into the
// change set of the block.
func (c *Chain) index(ob *openBlock, hash database.Hash) error {
	block := ob.block
	cs := ob.cs
	hashText := []byte(hash.String())

	data, err := database.Encode(block)
	if err != nil {
		return fmt.Errorf("encoding block: %w", err)
	}
	cs.Put(blockKey(hash), data)

	// Addresses are kept in first seen order so every node writes the
	// same lists.
	var order []database.Address
	touched := make(map[database.Address][]database.Hash)
	touch := func(addr database.Address, txHash database.Hash) {
		if addr.IsNull() {
			return
		}
		list, seen := touched[addr]
		if !seen {
			order = append(order, addr)
		}
		if n := len(list); n > 0 && list[n-1] == txHash {
			return
		}
		touched[addr] = append(list, txHash)
	}

	for _, txHash := range block.TransactionHashes {
		tx, exists := ob.txs[txHash]
		if !exists {
			return fmt.Errorf("transaction %s missing from block %d", txHash, block.Height)
		}

		data, err := database.Encode(tx)
		if err != nil {
			return fmt.Errorf("encoding transaction %s: %w", txHash, err)
		}
		cs.Put(txKey(txHash), data)
		cs.Put(txBlockKey(txHash), hashText)

		touch(tx.Sender, txHash)
		for _, e := range block.Events[txHash] {

			// The fee every transaction pays the validator would make the
			// validator history grow with every transaction of the chain.
			if e.Kind == database.EventGasPayment && e.Address == block.Validator {
				continue
			}
			touch(e.Address, txHash)
		}
	}

	for _, addr := range order {
		list, err := readHashList(cs, addressKey(addr))
		if err != nil {
			return err
		}
		list = append(list, touched[addr]...)

		data, err := json.Marshal(list)
		if err != nil {
			return err
		}
		cs.Put(addressKey(addr), data)
	}

	cs.Put(heightKey(block.Height), hashText)
	cs.Put(keyHeight, []byte(strconv.FormatUint(block.Height, 10)))
	cs.Put(keyLast, hashText)

	if block.Height == 2 {
		cs.Put(keyGenesis, []byte(block.PreviousHash.String()))
	}

	return nil
}
