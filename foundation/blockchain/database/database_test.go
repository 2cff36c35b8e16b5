package database_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func Test_Address(t *testing.T) {
	t.Log("Given the need to work with addresses.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen converting to and from text.", testID)
		{
			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %v", failed, testID, err)
			}

			user := database.PublicKeyToAddress(pk.PublicKey)
			if !user.IsUser() {
				t.Fatalf("\t%s\tTest %d:\tShould derive a user address.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould derive a user address.", success, testID)

			sys := database.SystemAddress("gas")
			if !sys.IsSystem() || sys == database.SystemAddress("validator") {
				t.Fatalf("\t%s\tTest %d:\tShould derive distinct system addresses.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould derive distinct system addresses.", success, testID)

			for _, addr := range []database.Address{user, sys, database.NullAddress} {
				back, err := database.ToAddress(addr.String())
				if err != nil || back != addr {
					t.Fatalf("\t%s\tTest %d:\tShould round trip %s: %v", failed, testID, addr, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould round trip the text form.", success, testID)

			if _, err := database.ToAddress("Qbad"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a malformed address.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a malformed address.", success, testID)
		}
	}
}

func Test_Transaction(t *testing.T) {
	t.Log("Given the need to sign transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen signing with a key.", testID)
		{
			pk, _ := crypto.HexToECDSA(pkHexKey)
			sender := database.PublicKeyToAddress(pk.PublicKey)

			tx := database.NewTransaction("nexus", "main", []byte("script"), sender, 100, nil)
			before := tx.Hash()

			if err := tx.Sign(pk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to sign.", success, testID)

			if tx.Hash() != before {
				t.Fatalf("\t%s\tTest %d:\tShould not change the hash when signing.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not change the hash when signing.", success, testID)

			if !tx.IsSignedBy(sender) {
				t.Fatalf("\t%s\tTest %d:\tShould recover the sender as signer.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould recover the sender as signer.", success, testID)

			if err := tx.Validate("nexus", "main", 101); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an expired transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an expired transaction.", success, testID)

			if err := tx.Validate("nexus", "side", 50); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the wrong chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the wrong chain.", success, testID)
		}
	}
}

func Test_BlockCodec(t *testing.T) {
	t.Log("Given the need to persist blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen encoding and decoding a block.", testID)
		{
			chain := database.SystemAddress("chain.main")
			validator := database.FromCommon(crypto.PubkeyToAddress(mustKey(t).PublicKey))

			blk := database.NewBlock(1, chain, 1000, database.ZeroHash, 1, validator, nil)
			txHash := database.Hash{1}
			blk.AddTransaction(txHash, database.TxResult{GasUsed: 10}, []database.Event{
				{Kind: database.EventLog, Address: validator, Contract: "entry", Data: []byte("hi")},
			})

			data, err := database.Encode(blk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode: %v", failed, testID, err)
			}

			var back database.Block
			if err := database.Decode(data, &back); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to decode.", success, testID)

			if back.Hash() != blk.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould get back the same hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the same hash.", success, testID)

			if len(back.Events[txHash]) != 1 || back.Results[txHash].GasUsed != 10 {
				t.Fatalf("\t%s\tTest %d:\tShould keep results and events per transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep results and events per transaction.", success, testID)

			proof, err := back.Proof(txHash)
			if err != nil || len(proof) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould build an empty proof for a single transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould build an empty proof for a single transaction.", success, testID)
		}
	}
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %v", err)
	}
	return pk
}
