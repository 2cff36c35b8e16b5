package state

import (
	"context"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
)

// genesisLifetime is how long the genesis transaction stays valid after the
// timestamp of the first block.
const genesisLifetime = 3600

// ProduceBlock builds, executes and commits the next block of the chain
// with the pending transactions of its mempool. Only the validator whose
// turn covers the timestamp may produce. The first block of a chain
// carries the genesis transaction and can only be produced by the owner of
// the genesis.
func (s *State) ProduceBlock(ctx context.Context, name string, timestamp uint64) (*database.Block, error) {
	c, err := s.Chain(name)
	if err != nil {
		return nil, err
	}
	mp, err := s.mempool(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validatorKey == nil {
		return nil, ErrNotSelected
	}

	var pending []database.Transaction

	if c.HasGenesis() {
		expected, err := c.ExpectedValidator(timestamp)
		if err != nil {
			return nil, err
		}
		if expected != s.validator {
			return nil, fmt.Errorf("%w: expected %s", ErrNotSelected, expected)
		}

		tasks, err := c.GetTasks()
		if err != nil {
			return nil, err
		}
		due, err := c.InflationDue(timestamp)
		if err != nil {
			return nil, err
		}
		if mp.Count() == 0 && len(tasks) == 0 && !due {
			return nil, ErrNoTransactions
		}
	} else {
		tx, err := s.genesisTransaction(name, timestamp)
		if err != nil {
			return nil, err
		}
		pending = append(pending, tx)
	}

	pending = append(pending, mp.PickBest(s.txsPerBlock)...)

	protocol, err := c.Protocol()
	if err != nil {
		return nil, err
	}

	var previous database.Hash
	var height uint64
	if last := c.LastBlock(); last != nil {
		previous = last.Hash()
		height = last.Height
	}

	h := chain.Header{
		Height:       height + 1,
		Timestamp:    timestamp,
		Proposer:     s.consensus,
		PreviousHash: previous,
		Protocol:     protocol,
	}

	s.evHandler("state: ProduceBlock: %s: started: height[%d] pending[%d]", name, h.Height, len(pending))

	if _, err := c.BeginBlock(h, s.genesis.Initials()); err != nil {
		return nil, err
	}

	for i, tx := range pending {
		if err := ctx.Err(); err != nil {
			c.Discard()
			return nil, err
		}

		resp := c.DeliverTx(tx)
		mp.Delete(tx.Hash())

		if !resp.IsOK() {
			s.evHandler("state: ProduceBlock: %s: tx[%s] code[%s/%d] %s", name, tx.Hash(), resp.Codespace, resp.Code, resp.Log)

			// Nothing can be built on a genesis block that failed.
			if i == 0 && !c.HasGenesis() {
				c.Discard()
				return nil, fmt.Errorf("genesis transaction failed: %s", resp.Log)
			}
		}
	}

	events, err := c.EndBlock()
	if err != nil {
		return nil, err
	}

	block, err := c.Commit()
	if err != nil {
		return nil, err
	}

	metrics.MempoolGauge.WithLabelValues(name).Set(float64(mp.Count()))
	s.evHandler("state: ProduceBlock: %s: completed: height[%d] blk[%s] txs[%d]", name, block.Height, block.Hash(), len(block.TransactionHashes))
	s.notify(name, block, events)

	return block, nil
}

// ProcessBlock validates and commits a block produced by another validator.
// The transactions it carries leave the mempool.
func (s *State) ProcessBlock(block *database.Block, txs []database.Transaction) error {
	c, err := s.chainOf(block.ChainAddress)
	if err != nil {
		return err
	}
	mp, err := s.mempool(c.Name())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.ProcessBlock(block, txs, nil); err != nil {
		return err
	}

	for _, tx := range txs {
		mp.Delete(tx.Hash())
	}
	metrics.MempoolGauge.WithLabelValues(c.Name()).Set(float64(mp.Count()))

	s.notify(c.Name(), block, block.BlockEvents)

	return nil
}

// =============================================================================

// chainOf finds the chain with the address.
func (s *State) chainOf(addr database.Address) (*chain.Chain, error) {
	for _, c := range s.chains {
		if c.Address() == addr {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownChain, addr)
}

// genesisTransaction signs the genesis of the chain with the key of the
// node, which must be the owner of the genesis.
func (s *State) genesisTransaction(name string, timestamp uint64) (database.Transaction, error) {
	if s.validator != s.genesis.OwnerAddress() {
		return database.Transaction{}, fmt.Errorf("%w: owner is %s", ErrNoGenesis, s.genesis.OwnerAddress())
	}
	if timestamp < s.genesis.Timestamp {
		return database.Transaction{}, fmt.Errorf("%w: starts at %d", ErrNoGenesis, s.genesis.Timestamp)
	}

	g := s.genesis
	g.Chain = name

	return g.Transaction(s.validatorKey, timestamp+genesisLifetime)
}

// notify hands the committed block to the event handler.
func (s *State) notify(name string, block *database.Block, events []database.Event) {
	s.evHandler("viewer: block: %s: height[%d] blk[%s] txs[%d] events[%d]", name, block.Height, block.Hash(), len(block.TransactionHashes), len(events))
}
