// Package chain drives the life of the blocks of one chain: it opens a
// block, runs the system and user transactions through the runtime, pays
// the validators and commits the result atomically to storage.
package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
)

// DefaultCacheSize is the number of committed blocks kept in memory.
const DefaultCacheSize = 256

// DefaultProtocol is the protocol version a chain runs when governance has
// not set one.
const DefaultProtocol = 1

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// State represents where the chain is in the life of a block.
type State byte

// Set of chain states.
const (
	StateIdle State = iota
	StateOpen
	StateClosing
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Header is what consensus provides when it asks for a new block.
type Header struct {
	Height       uint64
	Timestamp    uint64
	Proposer     string
	PreviousHash database.Hash
	Protocol     uint32
	Payload      []byte
}

// Config represents the configuration required to construct a chain.
type Config struct {
	Nexus          string
	Name           string
	Root           bool
	Store          storage.KeyValueStore
	Registry       *contract.Registry
	GenesisAddress database.Address
	MaxProtocol    uint32
	Fetcher        oracle.Fetcher
	OracleCache    *oracle.Cache
	CacheSize      int
	MinimumFee     *big.Int
	EvHandler      EventHandler
}

// Chain manages the blocks of a single chain.
type Chain struct {
	nexus          string
	name           string
	address        database.Address
	root           bool
	genesisAddress database.Address
	maxProtocol    uint32
	store          storage.KeyValueStore
	registry       *contract.Registry
	fetcher        oracle.Fetcher
	oracleCache    *oracle.Cache
	minimumFee     *big.Int
	evHandler      EventHandler
	blocks         *lru.Cache
	hasGenesis     atomic.Bool

	mu          sync.RWMutex
	state       State
	last        *database.Block
	genesisTime uint64
	open        *openBlock

	haltMu sync.Mutex
	halted error
}

// openBlock is the block being built and everything bound to it.
type openBlock struct {
	block  *database.Block
	cs     *changeset.ChangeSet
	oracle *oracle.BlockOracle
	txs    map[database.Hash]database.Transaction
	system []database.Transaction
	minFee *big.Int
}

// Address returns the address of the chain with the specified name.
func Address(name string) database.Address {
	return database.SystemAddress("chain." + name)
}

// New constructs a chain over the store and loads the last committed block.
// Every key the chain writes is prefixed with "chain.<name>.".
func New(cfg Config) (*Chain, error) {
	if cfg.Name == "" {
		return nil, errors.New("chain: name is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("chain: store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("chain: registry is required")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.MaxProtocol == 0 {
		cfg.MaxProtocol = DefaultProtocol
	}
	if cfg.MinimumFee == nil {
		cfg.MinimumFee = big.NewInt(1)
	}

	blocks, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("chain: block cache: %w", err)
	}

	c := Chain{
		nexus:          cfg.Nexus,
		name:           cfg.Name,
		address:        Address(cfg.Name),
		root:           cfg.Root,
		genesisAddress: cfg.GenesisAddress,
		maxProtocol:    cfg.MaxProtocol,
		store:          storage.NewTable(cfg.Store, "chain."+cfg.Name+"."),
		registry:       cfg.Registry,
		fetcher:        cfg.Fetcher,
		oracleCache:    cfg.OracleCache,
		minimumFee:     new(big.Int).Set(cfg.MinimumFee),
		evHandler:      ev,
		blocks:         blocks,
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	return &c, nil
}

// load restores the last committed block from storage.
func (c *Chain) load() error {
	data, err := c.store.Get(keyLast)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.evHandler("chain: load: %s: empty chain", c.name)
		return nil
	case err != nil:
		return err
	}

	hash, err := database.ToHash(string(data))
	if err != nil {
		return fmt.Errorf("%w: last block hash: %w", ErrStorageCorrupted, err)
	}

	last, err := c.readBlock(hash)
	if err != nil {
		return err
	}

	c.last = last
	c.hasGenesis.Store(true)

	genesis := last
	if last.Height > 1 {
		if genesis, err = c.blockByHeight(1); err != nil {
			return err
		}
	}
	c.genesisTime = genesis.Timestamp

	c.evHandler("chain: load: %s: height[%d] last[%s]", c.name, last.Height, hash)
	return nil
}

// =============================================================================
// The chain is the context every runtime executes against. These calls do
// not take the lock so a runtime can use them while a block is open.

// Nexus returns the name of the network the chain belongs to.
func (c *Chain) Nexus() string {
	return c.nexus
}

// Name returns the name of the chain.
func (c *Chain) Name() string {
	return c.name
}

// Address returns the address of the chain.
func (c *Chain) Address() database.Address {
	return c.address
}

// IsRoot reports if this is the root chain of the nexus.
func (c *Chain) IsRoot() bool {
	return c.root
}

// HasGenesis reports if the genesis block was committed.
func (c *Chain) HasGenesis() bool {
	return c.hasGenesis.Load()
}

// GenesisAddress returns the address that owns the genesis block.
func (c *Chain) GenesisAddress() database.Address {
	return c.genesisAddress
}

// =============================================================================

// State returns where the chain is in the life of a block.
func (c *Chain) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Halted returns the error that stopped the chain, nil while it runs.
func (c *Chain) Halted() error {
	c.haltMu.Lock()
	defer c.haltMu.Unlock()

	return c.halted
}

// halt stops the chain from accepting further lifecycle calls. The first
// cause is kept. It is safe to call with either side of mu held.
func (c *Chain) halt(err error) error {
	c.haltMu.Lock()
	if c.halted == nil {
		c.halted = err
	}
	c.haltMu.Unlock()

	c.evHandler("chain: HALTED: %s: %s", c.name, err)
	return fmt.Errorf("%w: %w", ErrHalted, err)
}

// discard drops the open block and everything it buffered.
func (c *Chain) discard() {
	if c.open != nil {
		c.open.cs.Clear()
	}
	c.open = nil
	c.state = StateIdle
}
