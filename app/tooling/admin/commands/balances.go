package commands

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// Balances prints the gas balance of each address.
func Balances(env Env, args []string) error {
	if last := env.Chain.LastBlock(); last != nil {
		fmt.Printf("LatestBlockHash: %s\n\n", last.Hash())
	}

	for _, arg := range args {
		addr, err := database.ToAddress(arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}

		bal, err := env.Chain.Balance(addr)
		if err != nil {
			return err
		}

		fmt.Printf("Address: %s  Balance: %s\n", addr, bal)
	}

	return nil
}
