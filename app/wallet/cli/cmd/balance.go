package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&chainName, "chain", "c", "main", "Name of the chain.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	_, addr, err := loadAccount()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Address:", addr)

	var b balance
	if err := get(fmt.Sprintf("/v1/chains/%s/balance/%s", chainName, addr), &b); err != nil {
		log.Fatal(err)
	}

	fmt.Println(b.Balance)
}
