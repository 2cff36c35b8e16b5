package commands

import (
	"fmt"
	"strconv"
)

// Blocks prints the blocks between the heights inclusive.
func Blocks(env Env, args []string) error {
	height := env.Chain.Height()
	if height == 0 {
		fmt.Println("chain is empty")
		return nil
	}

	from, to := height, height
	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		from, to = n, n
	}
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		to = min(n, height)
	}

	for h := from; h <= to; h++ {
		block, err := env.Chain.GetBlockByHeight(h)
		if err != nil {
			return err
		}

		fmt.Printf("Height: %d  Hash: %s\n", block.Height, block.Hash())
		fmt.Printf("  Previous: %s  Timestamp: %d  Protocol: %d\n", block.PreviousHash, block.Timestamp, block.Protocol)
		fmt.Printf("  Validator: %s  Transactions: %d\n", block.Validator, len(block.TransactionHashes))
		for _, txHash := range block.TransactionHashes {
			fmt.Printf("    %s\n", txHash)
		}
	}

	return nil
}
