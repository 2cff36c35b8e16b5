package state

import (
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// TxRecord is a committed transaction with the block that includes it.
type TxRecord struct {
	Transaction database.Transaction `json:"transaction"`
	Block       database.Hash        `json:"block"`
	Result      database.TxResult    `json:"result"`
}

// =============================================================================

// QueryBlocksByHeight returns the set of blocks between the heights
// inclusive. QueryLatest stands for the height of the last block.
func (s *State) QueryBlocksByHeight(name string, from uint64, to uint64) ([]*database.Block, error) {
	c, err := s.Chain(name)
	if err != nil {
		return nil, err
	}

	latest := c.Height()
	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}
	if from == 0 {
		from = 1
	}

	var out []*database.Block
	for i := from; i <= to; i++ {
		block, err := c.GetBlockByHeight(i)
		if err != nil {
			s.evHandler("state: QueryBlocksByHeight: %s: ERROR: %s", name, err)
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// QueryTransaction returns a committed transaction with its result.
func (s *State) QueryTransaction(name string, hash database.Hash) (TxRecord, error) {
	c, err := s.Chain(name)
	if err != nil {
		return TxRecord{}, err
	}

	tx, err := c.GetTransaction(hash)
	if err != nil {
		return TxRecord{}, err
	}

	blockHash, err := c.GetBlockHashOfTransaction(hash)
	if err != nil {
		return TxRecord{}, err
	}

	block, err := c.GetBlockByHash(blockHash)
	if err != nil {
		return TxRecord{}, err
	}

	return TxRecord{Transaction: tx, Block: blockHash, Result: block.Results[hash]}, nil
}

// QueryTransactionsByAddress returns the committed transactions that
// involved the address, oldest first.
func (s *State) QueryTransactionsByAddress(name string, addr database.Address) ([]TxRecord, error) {
	c, err := s.Chain(name)
	if err != nil {
		return nil, err
	}

	hashes, err := c.GetTransactionHashesForAddress(addr)
	if err != nil {
		return nil, err
	}

	out := make([]TxRecord, 0, len(hashes))
	for _, h := range hashes {
		rec, err := s.QueryTransaction(name, h)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, nil
}
