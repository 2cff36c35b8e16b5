// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/leveldb"
	"go.uber.org/zap"
)

// Env is a chain opened over the database of a stopped node.
type Env struct {
	Chain *chain.Chain
	db    *leveldb.LevelDB
}

// Open opens the database read only and loads the named chain.
func Open(log *zap.SugaredLogger, dbPath string, genesisPath string, name string) (Env, error) {
	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return Env{}, fmt.Errorf("loading genesis: %w", err)
	}
	if name == "" {
		name = gen.Chain
	}

	db, err := leveldb.Open(dbPath, leveldb.Options{ReadOnly: true})
	if err != nil {
		return Env{}, fmt.Errorf("opening database: %w", err)
	}

	registry := contract.NewRegistry()
	if err := native.Register(registry); err != nil {
		db.Close()
		return Env{}, err
	}

	c, err := chain.New(chain.Config{
		Nexus:          gen.Nexus,
		Name:           name,
		Root:           name == gen.Chain,
		Store:          db,
		Registry:       registry,
		GenesisAddress: gen.OwnerAddress(),
		EvHandler: func(v string, args ...any) {
			log.Debugf(v, args...)
		},
	})
	if err != nil {
		db.Close()
		return Env{}, err
	}

	return Env{Chain: c, db: db}, nil
}

// Close releases the database.
func (env Env) Close() error {
	return env.db.Close()
}
