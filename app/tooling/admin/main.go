// This program performs administrative tasks against the database of a
// stopped node.
package main

import (
	"fmt"
	"os"

	"github.com/nexuschain/chaincore/app/tooling/admin/commands"
	"github.com/nexuschain/chaincore/foundation/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	var dbPath, genesisPath, chainName string

	root := cobra.Command{
		Use:           "admin",
		Short:         "Inspect the chains kept by a node",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "zblock/chain.db", "Path to the node database.")
	root.PersistentFlags().StringVar(&genesisPath, "genesis", "zblock/genesis.yaml", "Path to the genesis file.")
	root.PersistentFlags().StringVarP(&chainName, "chain", "c", "", "Name of the chain, the root chain when empty.")

	// withChain opens the chain the flags select for the duration of fn.
	withChain := func(fn func(env commands.Env, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := commands.Open(log, dbPath, genesisPath, chainName)
			if err != nil {
				return err
			}
			defer env.Close()

			return fn(env, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "bals address...",
			Short: "Print the balance of addresses",
			Args:  cobra.MinimumNArgs(1),
			RunE:  withChain(commands.Balances),
		},
		&cobra.Command{
			Use:   "blocks [from] [to]",
			Short: "Print committed blocks, the last one by default",
			Args:  cobra.MaximumNArgs(2),
			RunE:  withChain(commands.Blocks),
		},
		&cobra.Command{
			Use:   "trans address",
			Short: "Print the transactions that involved an address",
			Args:  cobra.ExactArgs(1),
			RunE:  withChain(commands.Transactions),
		},
		&cobra.Command{
			Use:   "script hash",
			Short: "Disassemble the script of a committed transaction",
			Args:  cobra.ExactArgs(1),
			RunE:  withChain(commands.Script),
		},
		&cobra.Command{
			Use:   "tasks",
			Short: "Print the scheduled tasks",
			Args:  cobra.NoArgs,
			RunE:  withChain(commands.Tasks),
		},
		&cobra.Command{
			Use:   "genesis",
			Short: "Validate the genesis file and print its script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return commands.Genesis(genesisPath)
			},
		},
	)

	return root.Execute()
}
