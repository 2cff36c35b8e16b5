package cmd

import (
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
	"github.com/spf13/cobra"
)

var (
	chainName string
	to        string
	amount    int64
	gasPrice  int64
	gasLimit  uint64
	expires   time.Duration
	payload   []byte
)

type submitted struct {
	Hash     database.Hash `json:"hash"`
	Response struct {
		Code      uint32 `json:"code"`
		Codespace string `json:"codespace"`
		Log       string `json:"log"`
	} `json:"response"`
}

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send gas to another address",
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendRun(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&chainName, "chain", "c", "main", "Name of the chain.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the gas.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.Flags().Int64Var(&gasPrice, "gas-price", 1, "Price paid per unit of gas.")
	sendCmd.Flags().Uint64Var(&gasLimit, "gas-limit", 1_000, "Most gas the transaction may use.")
	sendCmd.Flags().DurationVarP(&expires, "expires", "e", 5*time.Minute, "Time the transaction stays valid.")
	sendCmd.Flags().BytesHexVarP(&payload, "data", "d", nil, "Data to attach.")
}

func sendRun() error {
	privateKey, from, err := loadAccount()
	if err != nil {
		return err
	}

	toAddr, err := database.ToAddress(to)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if toAddr.IsNull() {
		return fmt.Errorf("to: address is required")
	}

	script := vm.NewBuilder().
		AllowGas(from, chain.Address(chainName), big.NewInt(gasPrice), gasLimit).
		CallContract(native.GasName, "Transfer", vm.Address(from), vm.Address(toAddr), vm.Int(amount)).
		SpendGas(from).
		Bytes()

	return submit(privateKey, from, script)
}
