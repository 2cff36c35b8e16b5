package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/signature"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(value, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if err := signature.VerifySignature(sig); err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}

	addr, err := signature.FromAddress(value, sig)
	if err != nil {
		t.Fatalf("Should be able to generate from address: %s", err)
	}

	if from != addr.Hex() {
		t.Logf("got: %s", addr.Hex())
		t.Logf("exp: %s", from)
		t.Fatalf("Should get back the right address.")
	}

	str := signature.SignatureString(sig)
	back, err := signature.FromHexSignature(str)
	if err != nil {
		t.Fatalf("Should be able to decode the signature string: %s", err)
	}

	if string(back) != string(sig) {
		t.Fatalf("Should get back the same signature bytes.")
	}

	other := struct {
		Name string
	}{
		Name: "Jill",
	}

	addr, err = signature.FromAddress(other, sig)
	if err == nil && addr.Hex() == from {
		t.Fatalf("Should not recover the signer for different data.")
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	h1 := signature.Hash(value)
	h2 := signature.Hash(value)
	if h1 != h2 {
		t.Logf("got: %x", h2)
		t.Logf("exp: %x", h1)
		t.Fatalf("Should get back the same hash twice.")
	}

	if h1 == [32]byte{} {
		t.Fatalf("Should not get back the zero hash.")
	}

	other := signature.Hash(struct{ Name string }{Name: "Jill"})
	if other == h1 {
		t.Fatalf("Should get back a different hash for different data.")
	}
}
