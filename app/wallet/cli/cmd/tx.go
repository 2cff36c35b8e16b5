package cmd

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type txRecord struct {
	Block  database.Hash `json:"block"`
	Result struct {
		Code      uint32 `json:"code"`
		Codespace string `json:"codespace"`
		Message   string `json:"message"`
		GasUsed   uint64 `json:"gas_used"`
	} `json:"result"`
}

var txCmd = &cobra.Command{
	Use:   "tx hash",
	Short: "Print the outcome of a committed transaction",
	Args:  cobra.ExactArgs(1),
	Run:   txRun,
}

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.Flags().StringVarP(&chainName, "chain", "c", "main", "Name of the chain.")
}

func txRun(cmd *cobra.Command, args []string) {
	hash, err := database.ToHash(args[0])
	if err != nil {
		log.Fatal(err)
	}

	var rec txRecord
	if err := get(fmt.Sprintf("/v1/chains/%s/tx/hash/%s", chainName, hash), &rec); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Block:   ", rec.Block)
	fmt.Println("Code:    ", rec.Result.Code)
	fmt.Println("Gas Used:", rec.Result.GasUsed)
	if rec.Result.Message != "" {
		fmt.Println("Message: ", rec.Result.Message)
	}
}

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
