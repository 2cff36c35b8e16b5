package genesis_test

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const ownerKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

const genesisYAML = `
nexus: testnet
owner: %[1]s
timestamp: 1700000000
balances:
  - address: %[1]s
    amount: 5000000
validators:
  - name: node0
    address: %[1]s
    type: primary
values:
  - name: gas.minimum.fee
    value: 2
    min: 1
    max: 100
`

func write(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("\t%s\tShould be able to write the genesis file: %v", failed, err)
	}
	return path
}

func Test_Load(t *testing.T) {
	pk, err := crypto.HexToECDSA(ownerKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}
	owner := database.PublicKeyToAddress(pk.PublicKey)

	type table struct {
		name    string
		file    string
		content string
		valid   bool
	}

	tt := []table{
		{"yaml", "genesis.yaml", fmt.Sprintf(genesisYAML, owner), true},
		{"json", "genesis.json", fmt.Sprintf(`{"nexus":"testnet","owner":"%[1]s","validators":[{"name":"node0","address":"%[1]s"}]}`, owner), true},
		{"no-primary", "genesis.json", fmt.Sprintf(`{"nexus":"testnet","owner":"%[1]s","validators":[{"name":"node0","address":"%[1]s","type":"secondary"}]}`, owner), false},
		{"bad-owner", "genesis.json", `{"nexus":"testnet","owner":"nobody"}`, false},
		{"bad-range", "genesis.json", fmt.Sprintf(`{"nexus":"testnet","owner":"%[1]s","validators":[{"name":"node0","address":"%[1]s"}],"values":[{"name":"v","value":9,"min":1,"max":5}]}`, owner), false},
	}

	t.Log("Given the need to load genesis files.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen loading the %s file.", testID, tst.name)
				{
					g, err := genesis.Load(write(t, tst.file, tst.content))
					if !tst.valid {
						if err == nil {
							t.Fatalf("\t%s\tTest %d:\tShould refuse the file.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould refuse the file.", success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to load the file: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to load the file.", success, testID)

					if g.OwnerAddress() != owner || g.Chain != "main" {
						t.Fatalf("\t%s\tTest %d:\tShould decode the owner and chain: %s %s", failed, testID, g.OwnerAddress(), g.Chain)
					}
					if g.Initials()["node0"] != owner {
						t.Fatalf("\t%s\tTest %d:\tShould map node0 to the owner.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould decode the fields.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Transaction(t *testing.T) {
	t.Log("Given the need to start a chain from a genesis file.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen committing the genesis transaction.", testID)
		{
			pk, err := crypto.HexToECDSA(ownerKey)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %v", failed, testID, err)
			}
			owner := database.PublicKeyToAddress(pk.PublicKey)

			g, err := genesis.Load(write(t, "genesis.yaml", fmt.Sprintf(genesisYAML, owner)))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the file: %v", failed, testID, err)
			}

			other, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			if _, err := g.Transaction(other, 1<<40); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a key that is not the owner.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a key that is not the owner.", success, testID)

			tx, err := g.Transaction(pk, 1<<40)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to build the transaction.", success, testID)

			reg := contract.NewRegistry()
			if err := native.Register(reg); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to register the natives: %v", failed, testID, err)
			}

			c, err := chain.New(chain.Config{
				Nexus:          g.Nexus,
				Name:           g.Chain,
				Root:           true,
				Store:          memory.New(),
				Registry:       reg,
				GenesisAddress: g.OwnerAddress(),
				MinimumFee:     big.NewInt(1),
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the chain: %v", failed, testID, err)
			}

			h := chain.Header{Height: 1, Timestamp: g.Timestamp, Proposer: "node0", Protocol: 1}
			if _, err := c.BeginBlock(h, g.Initials()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to begin the block: %v", failed, testID, err)
			}
			if resp := c.DeliverTx(tx); !resp.IsOK() {
				t.Fatalf("\t%s\tTest %d:\tShould be able to deliver the transaction: %s", failed, testID, resp.Log)
			}
			if _, err := c.EndBlock(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to end the block: %v", failed, testID, err)
			}
			if _, err := c.Commit(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to commit the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to commit the genesis block.", success, testID)

			bal, err := c.Balance(owner)
			if err != nil || bal.Cmp(big.NewInt(5_000_000)) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould mint the balance: %v %v", failed, testID, bal, err)
			}
			t.Logf("\t%s\tTest %d:\tShould mint the balance.", success, testID)

			val, err := c.ExpectedValidator(g.Timestamp + 10)
			if err != nil || val != owner {
				t.Fatalf("\t%s\tTest %d:\tShould install the validator: %s %v", failed, testID, val, err)
			}
			t.Logf("\t%s\tTest %d:\tShould install the validator.", success, testID)
		}
	}
}
