package contract_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Fields(t *testing.T) {
	t.Log("Given the need to keep typed contract state.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen using value, map and list fields.", testID)
		{
			cs := changeset.New(memory.New())

			supply := contract.NewValue[*big.Int]("token", "supply")
			if err := supply.Set(cs, big.NewInt(500)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to set a value: %v", failed, testID, err)
			}

			got, found, err := supply.Get(cs)
			if err != nil || !found || got.Int64() != 500 {
				t.Fatalf("\t%s\tTest %d:\tShould read back the value: %v %v %v", failed, testID, got, found, err)
			}
			t.Logf("\t%s\tTest %d:\tShould read back the value.", success, testID)

			names := contract.NewMap[string]("account", "names")
			names.Set(cs, "alice", "P01")
			if _, found, _ := names.Get(cs, "bob"); found {
				t.Fatalf("\t%s\tTest %d:\tShould not find a missing key.", failed, testID)
			}
			names.Delete(cs, "alice")
			if has, _ := names.Has(cs, "alice"); has {
				t.Fatalf("\t%s\tTest %d:\tShould delete the key.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould handle map keys.", success, testID)

			list := contract.NewList[string]("validator", "list")
			for _, v := range []string{"a", "b", "c"} {
				list.Add(cs, v)
			}
			if err := list.RemoveAt(cs, 1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould remove an element: %v", failed, testID, err)
			}

			all, err := list.All(cs)
			if err != nil || len(all) != 2 || all[0] != "a" || all[1] != "c" {
				t.Fatalf("\t%s\tTest %d:\tShould keep the order of the rest: %v %v", failed, testID, all, err)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the order of the rest.", success, testID)

			if _, err := list.Get(cs, 2); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an index out of range.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an index out of range.", success, testID)
		}
	}
}

func Test_Registry(t *testing.T) {
	t.Log("Given the need to resolve contracts.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen mixing native and deployed contracts.", testID)
		{
			reg := contract.NewRegistry()
			native := contract.NewNative("echo", []contract.Method{
				{
					Name:       "Echo",
					Parameters: []vm.Parameter{{Name: "v", Type: vm.TypeText}},
					Returns:    vm.TypeText,
					Handler: func(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
						return args[0], nil
					},
				},
			})

			if err := reg.Register(native); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould register the native: %v", failed, testID, err)
			}
			if err := reg.Register(native); !errors.Is(err, contract.ErrDuplicate) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a duplicate: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a duplicate.", success, testID)

			cs := changeset.New(memory.New())
			owner := database.SystemAddress("owner")

			b := vm.NewBuilder()
			offset := b.Offset()
			b.Push(vm.Bool(true)).Return()
			abi := vm.ABI{Methods: []vm.Method{{Name: contract.TriggerOnWitness, Returns: vm.TypeBool, Offset: offset}}}

			custom, err := contract.NewCustom("vault", owner, b.Script(), abi)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould build the custom contract: %v", failed, testID, err)
			}
			if err := contract.Deploy(cs, custom); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould deploy: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould deploy.", success, testID)

			c, err := reg.Resolve(cs, "vault")
			if err != nil || c.Kind() != contract.KindCustom || c.Address() != custom.Address() {
				t.Fatalf("\t%s\tTest %d:\tShould resolve from storage: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve from storage.", success, testID)

			if _, err := reg.Resolve(cs, "missing"); !errors.Is(err, contract.ErrContractNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould report a missing contract: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report a missing contract.", success, testID)

			if _, err := contract.NewCustom("bad", owner, b.Script(), vm.ABI{Methods: []vm.Method{{Name: "X", Offset: 7}}}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an offset outside the script.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an offset outside the script.", success, testID)
		}
	}
}
