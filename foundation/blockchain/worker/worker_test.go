package worker_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/state"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
	"github.com/nexuschain/chaincore/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const ownerKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// waitHeight polls the chain until it reaches the height.
func waitHeight(c *chain.Chain, height uint64) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Height() >= height {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func Test_Produce(t *testing.T) {
	t.Log("Given the need to produce blocks in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the node is the only validator.", testID)
		{
			pk, err := crypto.HexToECDSA(ownerKey)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %v", failed, testID, err)
			}
			owner := database.PublicKeyToAddress(pk.PublicKey)

			st, err := state.New(state.Config{
				Store: memory.New(),
				Genesis: genesis.Genesis{
					Nexus:      "testnet",
					Chain:      "main",
					Owner:      owner.String(),
					Balances:   []genesis.Balance{{Address: owner.String(), Amount: 1_000_000}},
					Validators: []genesis.Validator{{Name: "node0", Address: owner.String()}},
				},
				ValidatorKey:   pk,
				Consensus:      "node0",
				SelectStrategy: "fifo",
				EvHandler:      func(v string, args ...any) { t.Logf(v, args...) },
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the state: %v", failed, testID, err)
			}

			w := worker.Run(st, 50*time.Millisecond, func(v string, args ...any) { t.Logf(v, args...) })
			defer st.Shutdown()

			c, _ := st.Chain("main")
			if !waitHeight(c, 1) {
				t.Fatalf("\t%s\tTest %d:\tShould produce the genesis block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce the genesis block.", success, testID)

			script := vm.NewBuilder().
				AllowGas(owner, chain.Address("main"), big.NewInt(1), 1_000).
				CallContract(native.GasName, "Mint", vm.Address(owner), vm.Int(1)).
				SpendGas(owner).
				Bytes()
			tx := database.NewTransaction("testnet", "main", script, owner, 1<<40, nil)
			if err := tx.Sign(pk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign the transaction: %v", failed, testID, err)
			}

			if resp, err := st.SubmitTransaction(tx); err != nil || !resp.IsOK() {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v %s", failed, testID, err, resp.Log)
			}

			if !waitHeight(c, 2) {
				t.Fatalf("\t%s\tTest %d:\tShould produce a block for the transaction.", failed, testID)
			}
			if _, err := c.GetBlockHashOfTransaction(tx.Hash()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould include the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould include the transaction.", success, testID)

			w.SignalProduce("main")
			if st.MempoolLength("main") != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the mempool empty.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the mempool empty.", success, testID)
		}
	}
}
