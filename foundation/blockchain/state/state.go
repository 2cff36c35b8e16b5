// Package state is the core API for the node. It owns the store, the
// contract registry, the chains of the nexus and a mempool per chain.
package state

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/mempool"
	"github.com/nexuschain/chaincore/foundation/blockchain/mempool/selector"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
)

// Set of error variables returned by the state.
var (
	ErrUnknownChain   = errors.New("unknown chain")
	ErrNotSelected    = errors.New("node is not the expected validator")
	ErrNoGenesis      = errors.New("node cannot produce the genesis block")
	ErrNoTransactions = errors.New("no transactions to produce a block")
)

// DefaultTxsPerBlock is the number of mempool transactions a produced
// block takes by default.
const DefaultTxsPerBlock = 500

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for block production.
type Worker interface {
	Shutdown()
	SignalProduce(chain string)
}

// =============================================================================

// Config represents the configuration required to start the node.
type Config struct {
	Store          storage.KeyValueStore
	Genesis        genesis.Genesis
	ValidatorKey   *ecdsa.PrivateKey
	Consensus      string
	SideChains     []string
	SelectStrategy string
	MempoolSize    int
	TxsPerBlock    int
	MaxProtocol    uint32
	MinimumFee     *big.Int
	Fetcher        oracle.Fetcher
	OracleTTL      time.Duration
	EvHandler      EventHandler
}

// State manages the chains of the nexus.
type State struct {
	nexus        string
	root         string
	validator    database.Address
	validatorKey *ecdsa.PrivateKey
	consensus    string
	txsPerBlock  int
	genesis      genesis.Genesis
	evHandler    EventHandler
	store        storage.KeyValueStore
	registry     *contract.Registry

	// Block production and block processing on one chain must not overlap.
	mu       sync.Mutex
	chains   map[string]*chain.Chain
	mempools map[string]*mempool.Mempool

	Worker Worker
}

// New constructs the nexus described by the genesis and restores every
// chain from the store.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Store == nil {
		return nil, errors.New("state: store is required")
	}
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if cfg.TxsPerBlock <= 0 {
		cfg.TxsPerBlock = DefaultTxsPerBlock
	}

	// Every chain resolves the same native contracts.
	registry := contract.NewRegistry()
	if err := native.Register(registry); err != nil {
		return nil, err
	}

	var validator database.Address
	if cfg.ValidatorKey != nil {
		validator = database.PublicKeyToAddress(cfg.ValidatorKey.PublicKey)
	}

	s := State{
		nexus:        cfg.Genesis.Nexus,
		root:         cfg.Genesis.Chain,
		validator:    validator,
		validatorKey: cfg.ValidatorKey,
		consensus:    cfg.Consensus,
		txsPerBlock:  cfg.TxsPerBlock,
		genesis:      cfg.Genesis,
		evHandler:    ev,
		store:        cfg.Store,
		registry:     registry,
		chains:       make(map[string]*chain.Chain),
		mempools:     make(map[string]*mempool.Mempool),
	}

	var cache *oracle.Cache
	if cfg.OracleTTL > 0 {
		cache = oracle.NewCache(cfg.OracleTTL)
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFIFO
	}

	names := append([]string{cfg.Genesis.Chain}, cfg.SideChains...)
	for _, name := range names {
		if _, exists := s.chains[name]; exists {
			return nil, fmt.Errorf("state: chain %q configured twice", name)
		}

		c, err := chain.New(chain.Config{
			Nexus:          cfg.Genesis.Nexus,
			Name:           name,
			Root:           name == cfg.Genesis.Chain,
			Store:          cfg.Store,
			Registry:       registry,
			GenesisAddress: cfg.Genesis.OwnerAddress(),
			MaxProtocol:    cfg.MaxProtocol,
			Fetcher:        cfg.Fetcher,
			OracleCache:    cache,
			MinimumFee:     cfg.MinimumFee,
			EvHandler:      chain.EventHandler(ev),
		})
		if err != nil {
			return nil, err
		}

		mp, err := mempool.NewWithStrategy(strategy, cfg.MempoolSize)
		if err != nil {
			return nil, err
		}

		s.chains[name] = c
		s.mempools[name] = mp

		ev("state: New: chain[%s] height[%d]", name, c.Height())
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &s, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all block production before the store goes away.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return s.store.Close()
}

// =============================================================================

// Nexus returns the name of the network.
func (s *State) Nexus() string {
	return s.nexus
}

// RootChain returns the name of the root chain.
func (s *State) RootChain() string {
	return s.root
}

// Validator returns the address this node signs blocks with, the null
// address for a node that does not produce.
func (s *State) Validator() database.Address {
	return s.validator
}

// Genesis returns the genesis the nexus started from.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Registry returns the contract registry shared by the chains.
func (s *State) Registry() *contract.Registry {
	return s.registry
}

// Chains returns the names of the chains, the root chain first.
func (s *State) Chains() []string {
	names := make([]string, 0, len(s.chains))
	for name := range s.chains {
		if name != s.root {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return append([]string{s.root}, names...)
}

// Chain returns the named chain.
func (s *State) Chain(name string) (*chain.Chain, error) {
	c, exists := s.chains[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return c, nil
}

func (s *State) mempool(name string) (*mempool.Mempool, error) {
	mp, exists := s.mempools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return mp, nil
}
