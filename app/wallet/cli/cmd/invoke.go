package cmd

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
	"github.com/spf13/cobra"
)

type invokeResult struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
	GasUsed uint64 `json:"gas_used"`
	Value   string `json:"value"`
}

var invokeCmd = &cobra.Command{
	Use:   "invoke contract method [type:value]...",
	Short: "Call a contract method against committed state",
	Long: `Call a contract method against committed state without a transaction.
Arguments are typed: int:5, text:hello, bool:true, hex:00ff, address:P...
The keyword me stands for the address of the wallet.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := invokeRun(args[0], args[1], args[2:]); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	invokeCmd.Flags().StringVarP(&chainName, "chain", "c", "main", "Name of the chain.")
}

func invokeRun(contract string, method string, raw []string) error {
	values := make([]vm.Value, len(raw))
	for i, arg := range raw {
		v, err := parseValue(arg)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}

	in := struct {
		Script []byte `json:"script"`
	}{
		Script: vm.NewBuilder().CallContract(contract, method, values...).Bytes(),
	}

	var res invokeResult
	if err := post(fmt.Sprintf("/v1/chains/%s/invoke", chainName), in, &res); err != nil {
		return err
	}

	if res.Code != 0 {
		return fmt.Errorf("invoke failed: code[%d] gas[%d]: %s", res.Code, res.GasUsed, res.Message)
	}

	fmt.Println(res.Value)
	return nil
}

func parseValue(arg string) (vm.Value, error) {
	kind, text, found := strings.Cut(arg, ":")
	if !found {
		return vm.Value{}, fmt.Errorf("missing type in %q", arg)
	}

	switch kind {
	case "int":
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Int(n), nil

	case "text":
		return vm.Text(text), nil

	case "bool":
		b, err := strconv.ParseBool(text)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Bool(b), nil

	case "hex":
		b, err := hexBytes(text)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Bytes(b), nil

	case "address":
		if text == "me" {
			_, addr, err := loadAccount()
			if err != nil {
				return vm.Value{}, err
			}
			return vm.Address(addr), nil
		}
		addr, err := database.ToAddress(text)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Address(addr), nil
	}

	return vm.Value{}, fmt.Errorf("unknown type %q", kind)
}
