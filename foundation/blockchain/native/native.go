// Package native implements the contracts built into every chain: gas,
// governance, validator, account and organization. Each contract declares
// its storage fields and a fixed method table; the helpers in this package
// give the chain direct access to the same fields.
package native

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Names of the native contracts.
const (
	GasName          = vm.GasContract
	GovernanceName   = "governance"
	ValidatorName    = "validator"
	AccountName      = "account"
	OrganizationName = "organization"
)

// Set of error variables returned by native methods.
var (
	ErrWitness      = errors.New("invalid witness")
	ErrInsufficient = errors.New("insufficient balance")
	ErrNotAllowed   = errors.New("operation not allowed")
)

// Register adds every native contract to the registry.
func Register(reg *contract.Registry) error {
	natives := []*contract.Native{
		newGas(),
		newGovernance(),
		newValidator(),
		newAccount(),
		newOrganization(),
	}

	for _, n := range natives {
		if err := reg.Register(n); err != nil {
			return fmt.Errorf("registering %s: %w", n.Name(), err)
		}
	}

	return nil
}

// =============================================================================

// requireWitness fails unless the address has witnessed the transaction.
func requireWitness(rt contract.Runtime, addr database.Address) error {
	ok, err := rt.IsWitness(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrWitness, addr)
	}
	return nil
}

// requireGenesisAuthority allows bootstrap calls before the chain has a
// genesis block and afterwards only when the genesis owner witnessed.
func requireGenesisAuthority(rt contract.Runtime) error {
	if !rt.HasGenesis() {
		return nil
	}
	return requireWitness(rt, rt.GenesisAddress())
}

func addressArg(args []vm.Value, i int) (database.Address, error) {
	return args[i].AsAddress()
}

func numberArg(args []vm.Value, i int) (*big.Int, error) {
	return args[i].AsNumber()
}

func textArg(args []vm.Value, i int) (string, error) {
	return args[i].AsText()
}

func bytesArg(args []vm.Value, i int) ([]byte, error) {
	return args[i].AsBytes()
}

func param(name string, t vm.Type) vm.Parameter {
	return vm.Parameter{Name: name, Type: t}
}
