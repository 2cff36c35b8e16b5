package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/mempool/selector"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/state"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	ownerKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherKey = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

const genesisTime = 1_700_000_000

func loadKey(t *testing.T, hexKey string) (*ecdsa.PrivateKey, database.Address) {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}
	return pk, database.PublicKeyToAddress(pk.PublicKey)
}

func testGenesis(owner database.Address) genesis.Genesis {
	return genesis.Genesis{
		Nexus:      "testnet",
		Chain:      "main",
		Owner:      owner.String(),
		Timestamp:  genesisTime,
		Balances:   []genesis.Balance{{Address: owner.String(), Amount: 1_000_000}},
		Validators: []genesis.Validator{{Name: "node0", Address: owner.String(), Type: "primary"}},
	}
}

func newState(t *testing.T, g genesis.Genesis, key *ecdsa.PrivateKey) *state.State {
	s, err := state.New(state.Config{
		Store:          memory.New(),
		Genesis:        g,
		ValidatorKey:   key,
		Consensus:      "node0",
		SideChains:     []string{"side"},
		SelectStrategy: selector.StrategyFIFO,
		MinimumFee:     big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}
	return s
}

func transfer(t *testing.T, pk *ecdsa.PrivateKey, from database.Address, to database.Address, amount int64) database.Transaction {
	script := vm.NewBuilder().
		AllowGas(from, chain.Address("main"), big.NewInt(1), 1_000).
		CallContract(native.GasName, "Transfer", vm.Address(from), vm.Address(to), vm.Int(amount)).
		SpendGas(from).
		Bytes()

	tx := database.NewTransaction("testnet", "main", script, from, 1<<40, nil)
	if err := tx.Sign(pk); err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}
	return tx
}

func Test_ProduceBlocks(t *testing.T) {
	t.Log("Given the need to produce blocks from the mempool.")
	{
		ownerPK, owner := loadKey(t, ownerKey)
		otherPK, other := loadKey(t, otherKey)
		ctx := context.Background()

		g := testGenesis(owner)
		producer := newState(t, g, ownerPK)
		replica := newState(t, g, nil)

		testID := 0
		t.Logf("\tTest %d:\tWhen the chain has no genesis block.", testID)
		{
			if _, err := newState(t, g, otherPK).ProduceBlock(ctx, "main", genesisTime); !errors.Is(err, state.ErrNoGenesis) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a node that does not own the genesis: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a node that does not own the genesis.", success, testID)

			for _, name := range producer.Chains() {
				block, err := producer.ProduceBlock(ctx, name, genesisTime)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to produce the genesis of %s: %v", failed, testID, name, err)
				}
				if block.Height != 1 || len(block.TransactionHashes) != 1 {
					t.Fatalf("\t%s\tTest %d:\tShould carry only the genesis transaction: %s", failed, testID, block)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to produce the genesis of every chain.", success, testID)

			c, _ := producer.Chain("main")
			if bal, _ := c.Balance(owner); bal.Cmp(big.NewInt(1_000_000)) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould mint the genesis balance: %s", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould mint the genesis balance.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a transfer is submitted.", testID)
		{
			if _, err := producer.ProduceBlock(ctx, "main", genesisTime+10); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest %d:\tShould not produce an empty block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not produce an empty block.", success, testID)

			tx := transfer(t, ownerPK, owner, other, 100)
			resp, err := producer.SubmitTransaction(tx)
			if err != nil || !resp.IsOK() {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v %s", failed, testID, err, resp.Log)
			}
			if producer.MempoolLength("main") != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold the transaction in the mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)

			bad := transfer(t, ownerPK, owner, other, 100)
			bad.Nexus = "othernet"
			if resp, _ := producer.SubmitTransaction(bad); resp.Code != chain.CodeWrongNexus {
				t.Fatalf("\t%s\tTest %d:\tShould reject a transaction of another nexus: %d", failed, testID, resp.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a transaction of another nexus.", success, testID)

			block, err := producer.ProduceBlock(ctx, "main", genesisTime+10)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to produce the block: %v", failed, testID, err)
			}
			if !block.HasTransaction(tx.Hash()) || producer.MempoolLength("main") != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould move the transaction into the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould move the transaction into the block.", success, testID)

			recs, err := producer.QueryTransactionsByAddress("main", other)
			if err != nil || len(recs) != 1 || recs[0].Transaction.Hash() != tx.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould index the receiver: %v %v", failed, testID, recs, err)
			}
			t.Logf("\t%s\tTest %d:\tShould index the receiver.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a replica processes the blocks.", testID)
		{
			for _, name := range producer.Chains() {
				blocks, err := producer.QueryBlocksByHeight(name, 1, state.QueryLatest)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to read the blocks: %v", failed, testID, err)
				}

				for _, block := range blocks {
					txs := make([]database.Transaction, len(block.TransactionHashes))
					for i, h := range block.TransactionHashes {
						rec, err := producer.QueryTransaction(name, h)
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to read transaction %s: %v", failed, testID, h, err)
						}
						txs[i] = rec.Transaction
					}

					if err := replica.ProcessBlock(block, txs); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to process block %d of %s: %v", failed, testID, block.Height, name, err)
					}
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to process every block.", success, testID)

			pc, _ := producer.Chain("main")
			rc, _ := replica.Chain("main")
			if pc.LastBlock().Hash() != rc.LastBlock().Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould reach the same last block.", failed, testID)
			}
			if bal, _ := rc.Balance(other); bal.Cmp(big.NewInt(100)) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould reach the same balances: %s", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould reach the same state.", success, testID)

			if _, err := replica.ProduceBlock(ctx, "main", genesisTime+20); !errors.Is(err, state.ErrNotSelected) {
				t.Fatalf("\t%s\tTest %d:\tShould not produce without a validator key: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not produce without a validator key.", success, testID)
		}
	}
}

func Test_DefaultStrategy(t *testing.T) {
	t.Log("Given the need to start a node without a select strategy.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the strategy is left empty.", testID)
		{
			ownerPK, owner := loadKey(t, ownerKey)
			_, other := loadKey(t, otherKey)

			s, err := state.New(state.Config{
				Store:        memory.New(),
				Genesis:      testGenesis(owner),
				ValidatorKey: ownerPK,
				Consensus:    "node0",
				MinimumFee:   big.NewInt(1),
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the state: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct the state.", success, testID)

			if _, err := s.ProduceBlock(context.Background(), "main", genesisTime); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to produce the genesis block: %v", failed, testID, err)
			}

			tx := transfer(t, ownerPK, owner, other, 10)
			resp, err := s.SubmitTransaction(tx)
			if err != nil || !resp.IsOK() {
				t.Fatalf("\t%s\tTest %d:\tShould accept a transaction: %v %+v", failed, testID, err, resp)
			}

			if txs, _ := s.Mempool("main"); len(txs) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold the transaction in the pool: got %d", failed, testID, len(txs))
			}
			t.Logf("\t%s\tTest %d:\tShould hold the transaction in the pool.", success, testID)
		}
	}
}
