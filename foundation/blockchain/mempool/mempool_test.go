package mempool_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/mempool"
	"github.com/nexuschain/chaincore/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	signPavel = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill  = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

func tran(t *testing.T, hexKey string, payload string) database.Transaction {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}

	return sign(t, pk, payload)
}

func sign(t *testing.T, pk *ecdsa.PrivateKey, payload string) database.Transaction {
	sender := database.PublicKeyToAddress(pk.PublicKey)

	tx := database.NewTransaction("testnet", "main", []byte{1}, sender, 1<<40, []byte(payload))
	if err := tx.Sign(pk); err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}
	return tx
}

func payloads(txs []database.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = string(tx.Payload)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCRUD(t *testing.T) {
	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a set of transactions.", testID)
		{
			mp, err := mempool.NewWithStrategy(selector.StrategyFIFO, 3)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %v", failed, testID, err)
			}

			txs := []database.Transaction{
				tran(t, signPavel, "p1"),
				tran(t, signBill, "b1"),
				tran(t, signPavel, "p2"),
			}
			for _, tx := range txs {
				if _, err := mp.Upsert(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a transaction: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to add the transactions.", success, testID)

			if _, err := mp.Upsert(tran(t, signBill, "b2")); err != mempool.ErrFull {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a transaction once full: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a transaction once full.", success, testID)

			if n, err := mp.Upsert(txs[0]); err != nil || n != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould replace a known transaction: %d %v", failed, testID, n, err)
			}
			t.Logf("\t%s\tTest %d:\tShould replace a known transaction.", success, testID)

			if got := payloads(mp.Copy()); !equal(got, []string{"p1", "b1", "p2"}) {
				t.Fatalf("\t%s\tTest %d:\tShould keep the arrival order: got %v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the arrival order.", success, testID)

			mp.Delete(txs[1].Hash())
			if mp.Has(txs[1].Hash()) || mp.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to remove a transaction.", failed, testID)
			}
			if got := payloads(mp.Copy()); !equal(got, []string{"p1", "p2"}) {
				t.Fatalf("\t%s\tTest %d:\tShould skip the removed transaction: got %v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to remove a transaction.", success, testID)

			mp.Truncate()
			if mp.Count() != 0 || len(mp.Copy()) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
		}
	}
}

func TestPickBest(t *testing.T) {
	type table struct {
		name     string
		strategy string
		howMany  int
		best     []string
	}

	tt := []table{
		{"fifo-all", selector.StrategyFIFO, -1, []string{"b1", "b2", "b3", "p1", "p2"}},
		{"fifo-some", selector.StrategyFIFO, 2, []string{"b1", "b2"}},
		{"sender-all", selector.StrategySender, -1, []string{"b1", "p1", "b2", "p2", "b3"}},
		{"sender-some", selector.StrategySender, 3, []string{"b1", "p1", "b2"}},
	}

	t.Log("Given the need to pick the transactions for the next block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen using the %s strategy for %d transactions.", testID, tst.strategy, tst.howMany)
				{
					mp, err := mempool.NewWithStrategy(tst.strategy, 0)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %v", failed, testID, err)
					}

					for _, p := range []string{"b1", "b2", "b3"} {
						mp.Upsert(tran(t, signBill, p))
					}
					for _, p := range []string{"p1", "p2"} {
						mp.Upsert(tran(t, signPavel, p))
					}

					got := payloads(mp.PickBest(tst.howMany))
					if !equal(got, tst.best) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.best)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right order.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right order.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}

		t.Logf("\tTest %d:\tWhen asking for an unknown strategy.", len(tt))
		{
			if _, err := mempool.NewWithStrategy("tip", 0); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould refuse the strategy.", failed, len(tt))
			}
			t.Logf("\t%s\tTest %d:\tShould refuse the strategy.", success, len(tt))
		}
	}
}
