package merkle_test

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/nexuschain/chaincore/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func leaves(n int) []merkle.Leaf {
	out := make([]merkle.Leaf, n)
	for i := range out {
		out[i] = sha256.Sum256([]byte(fmt.Sprintf("tx-%d", i)))
	}
	return out
}

func Test_Proofs(t *testing.T) {
	type table struct {
		name  string
		count int
	}

	tt := []table{
		{name: "one", count: 1},
		{name: "two", count: 2},
		{name: "odd", count: 5},
		{name: "even", count: 8},
	}

	t.Log("Given the need to prove a transaction is part of a block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %d leaves.", testID, tst.count)
				{
					ls := leaves(tst.count)
					root := merkle.Root(ls)

					for i, l := range ls {
						proof, err := merkle.Proof(ls, i)
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to build a proof for %d: %v", failed, testID, i, err)
						}

						if !merkle.Verify(root, l, proof) {
							t.Fatalf("\t%s\tTest %d:\tShould verify the proof for leaf %d.", failed, testID, i)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould verify every leaf.", success, testID)

					bad := sha256.Sum256([]byte("not there"))
					proof, _ := merkle.Proof(ls, 0)
					if merkle.Verify(root, bad, proof) {
						t.Fatalf("\t%s\tTest %d:\tShould reject a foreign leaf.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject a foreign leaf.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Root(t *testing.T) {
	t.Log("Given the need to calculate a stable root.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen changing the order of the leaves.", testID)
		{
			ls := leaves(4)
			r1 := merkle.Root(ls)

			ls[0], ls[1] = ls[1], ls[0]
			r2 := merkle.Root(ls)

			if r1 == r2 {
				t.Fatalf("\t%s\tTest %d:\tShould produce a different root.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce a different root.", success, testID)

			if merkle.Root(nil) != (merkle.Leaf{}) {
				t.Fatalf("\t%s\tTest %d:\tShould return zeros for an empty set.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return zeros for an empty set.", success, testID)

			if _, err := merkle.Proof(ls, 9); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an index out of range.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an index out of range.", success, testID)
		}
	}
}
