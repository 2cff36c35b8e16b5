package commands

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Genesis validates the genesis file and prints the script the genesis
// transaction will carry.
func Genesis(path string) error {
	gen, err := genesis.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("Nexus: %s  Chain: %s  Owner: %s\n\n", gen.Nexus, gen.Chain, gen.Owner)

	data, err := gen.Script()
	if err != nil {
		return err
	}

	script, err := vm.DecodeScript(data)
	if err != nil {
		return err
	}

	for i, ins := range script {
		fmt.Printf("%04d  %s\n", i, ins)
	}

	return nil
}
