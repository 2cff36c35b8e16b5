package commands

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Transactions prints the committed transactions that involved an address.
func Transactions(env Env, args []string) error {
	addr, err := database.ToAddress(args[0])
	if err != nil {
		return err
	}

	hashes, err := env.Chain.GetTransactionHashesForAddress(addr)
	if err != nil {
		return err
	}

	for _, hash := range hashes {
		tx, err := env.Chain.GetTransaction(hash)
		if err != nil {
			return err
		}

		blockHash, err := env.Chain.GetBlockHashOfTransaction(hash)
		if err != nil {
			return err
		}

		fmt.Printf("Hash: %s  Block: %s  Sender: %s  Expiration: %d\n", hash, blockHash, tx.Sender, tx.Expiration)
	}

	return nil
}

// Script disassembles the script of a committed transaction.
func Script(env Env, args []string) error {
	hash, err := database.ToHash(args[0])
	if err != nil {
		return err
	}

	tx, err := env.Chain.GetTransaction(hash)
	if err != nil {
		return err
	}

	script, err := vm.DecodeScript(tx.Script)
	if err != nil {
		return err
	}

	for i, ins := range script {
		fmt.Printf("%04d  %s\n", i, ins)
	}

	return nil
}

// Tasks prints the tasks scheduled on the chain.
func Tasks(env Env, args []string) error {
	tasks, err := env.Chain.GetTasks()
	if err != nil {
		return err
	}

	for _, t := range tasks {
		fmt.Printf("ID: %d  Owner: %s  Call: %s.%s  Mode: %v  Frequency: %d  GasLimit: %d\n",
			t.ID, t.Owner, t.Contract, t.Method, t.Mode, t.Frequency, t.GasLimit)
	}

	return nil
}
