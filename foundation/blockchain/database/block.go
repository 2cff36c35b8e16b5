package database

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/merkle"
	"github.com/nexuschain/chaincore/foundation/blockchain/signature"
)

// TxResult captures the outcome of executing one transaction.
type TxResult struct {
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace,omitempty"`
	Message   string `json:"message,omitempty"`
	GasUsed   uint64 `json:"gas_used"`
	Result    []byte `json:"result,omitempty"`
}

// OracleEntry is an external answer the block producer recorded so every
// node replays the same data.
type OracleEntry struct {
	URL     string `json:"url"`
	Content []byte `json:"content"`
}

// BlockHeader represents the fields covered by the block hash.
type BlockHeader struct {
	Height       uint64  `json:"height"`        // Position of the block in the chain, genesis is 1.
	ChainAddress Address `json:"chain"`         // Address of the chain the block belongs to.
	Timestamp    uint64  `json:"timestamp"`     // Unix seconds provided by consensus.
	PreviousHash Hash    `json:"previous_hash"` // Hash of the parent block, zero for genesis.
	Protocol     uint32  `json:"protocol"`      // Protocol version the block was produced with.
	Validator    Address `json:"validator"`     // Validator that produced the block.
	Payload      []byte  `json:"payload,omitempty"`
	TransRoot    Hash    `json:"trans_root"`  // Merkle root of the transaction hashes.
	OracleRoot   Hash    `json:"oracle_root"` // Hash of the embedded oracle answers.
}

// Block represents a group of executed transactions batched together.
type Block struct {
	Height            uint64            `json:"height"`
	ChainAddress      Address           `json:"chain"`
	Timestamp         uint64            `json:"timestamp"`
	PreviousHash      Hash              `json:"previous_hash"`
	Protocol          uint32            `json:"protocol"`
	Validator         Address           `json:"validator"`
	Payload           []byte            `json:"payload,omitempty"`
	TransactionHashes []Hash            `json:"transactions"`
	Results           map[Hash]TxResult `json:"results"`
	Events            map[Hash][]Event  `json:"events"`
	BlockEvents       []Event           `json:"block_events,omitempty"`
	Oracle            []OracleEntry     `json:"oracle,omitempty"`
}

// NewBlock constructs an empty block ready to receive transactions.
func NewBlock(height uint64, chain Address, timestamp uint64, previous Hash, protocol uint32, validator Address, payload []byte) *Block {
	return &Block{
		Height:       height,
		ChainAddress: chain,
		Timestamp:    timestamp,
		PreviousHash: previous,
		Protocol:     protocol,
		Validator:    validator,
		Payload:      payload,
		Results:      make(map[Hash]TxResult),
		Events:       make(map[Hash][]Event),
	}
}

// Header returns the hashed portion of the block.
func (b *Block) Header() BlockHeader {
	leaves := make([]merkle.Leaf, len(b.TransactionHashes))
	for i, h := range b.TransactionHashes {
		leaves[i] = merkle.Leaf(h)
	}

	var oracleRoot Hash
	if len(b.Oracle) > 0 {
		oracleRoot = Hash(signature.Hash(b.Oracle))
	}

	return BlockHeader{
		Height:       b.Height,
		ChainAddress: b.ChainAddress,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Protocol:     b.Protocol,
		Validator:    b.Validator,
		Payload:      b.Payload,
		TransRoot:    Hash(merkle.Root(leaves)),
		OracleRoot:   oracleRoot,
	}
}

// Hash returns the unique hash for the block.
func (b *Block) Hash() Hash {

	// CORE NOTE: Hashing the block header and not the whole block so the
	// chain can be checked using headers only. Results and events are
	// derived from executing the transactions named by the merkle root.

	return Hash(signature.Hash(b.Header()))
}

// AddTransaction records the outcome of a transaction executed in the block.
func (b *Block) AddTransaction(hash Hash, result TxResult, events []Event) {
	b.TransactionHashes = append(b.TransactionHashes, hash)
	b.Results[hash] = result
	if len(events) > 0 {
		b.Events[hash] = events
	}
}

// HasTransaction reports if the hash is part of the block.
func (b *Block) HasTransaction(hash Hash) bool {
	_, exists := b.Results[hash]
	return exists
}

// Notify records an event that is not tied to a transaction.
func (b *Block) Notify(e Event) {
	b.BlockEvents = append(b.BlockEvents, e)
}

// AllEvents returns the block level events followed by the events of every
// transaction in block order.
func (b *Block) AllEvents() []Event {
	events := make([]Event, 0, len(b.BlockEvents))
	events = append(events, b.BlockEvents...)
	for _, h := range b.TransactionHashes {
		events = append(events, b.Events[h]...)
	}
	return events
}

// Proof returns the merkle path proving the transaction is part of the block.
func (b *Block) Proof(hash Hash) ([]merkle.Step, error) {
	leaves := make([]merkle.Leaf, len(b.TransactionHashes))
	index := -1
	for i, h := range b.TransactionHashes {
		leaves[i] = merkle.Leaf(h)
		if h == hash {
			index = i
		}
	}

	if index == -1 {
		return nil, fmt.Errorf("transaction %s not in block %d", hash, b.Height)
	}

	return merkle.Proof(leaves, index)
}

// String implements the fmt.Stringer interface for logging.
func (b *Block) String() string {
	return fmt.Sprintf("%d:%s", b.Height, b.Hash())
}
