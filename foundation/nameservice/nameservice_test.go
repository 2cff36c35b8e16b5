package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/nameservice"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NameService(t *testing.T) {
	t.Log("Given the need to name the addresses of a key folder.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the folder holds one key.", testID)
		{
			root := t.TempDir()

			pk, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			if err := crypto.SaveECDSA(filepath.Join(root, "kennedy.ecdsa"), pk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to save the key: %v", failed, testID, err)
			}
			addr := database.PublicKeyToAddress(pk.PublicKey)

			ns, err := nameservice.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the folder: %v", failed, testID, err)
			}

			if ns.Lookup(addr) != "kennedy" {
				t.Fatalf("\t%s\tTest %d:\tShould name the address: %s", failed, testID, ns.Lookup(addr))
			}
			t.Logf("\t%s\tTest %d:\tShould name the address.", success, testID)

			if got, err := ns.Resolve("kennedy"); err != nil || got != addr {
				t.Fatalf("\t%s\tTest %d:\tShould resolve the name: %s %v", failed, testID, got, err)
			}
			if got, err := ns.Resolve(addr.String()); err != nil || got != addr {
				t.Fatalf("\t%s\tTest %d:\tShould resolve the address text: %s %v", failed, testID, got, err)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve names and addresses.", success, testID)

			other := database.SystemAddress("chain.main")
			if ns.Lookup(other) != other.String() {
				t.Fatalf("\t%s\tTest %d:\tShould fall back to the address text.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fall back to the address text.", success, testID)
		}
	}
}
