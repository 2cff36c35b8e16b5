// Package contract defines what a contract is to the runtime. Native
// contracts are Go code dispatched through a static method table; custom
// contracts are scripts deployed on chain. Both satisfy the same Contract
// interface and are resolved through an explicit Registry.
package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Set of error variables for contract resolution and dispatch.
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrMethodNotFound   = errors.New("method not found")
	ErrArguments        = errors.New("invalid arguments")
	ErrDuplicate        = errors.New("contract already registered")
)

// Kind identifies the contract variant.
type Kind byte

// Set of contract kinds.
const (
	KindNative Kind = iota + 1
	KindCustom
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindCustom:
		return "custom"
	}
	return "unknown"
}

// Trigger names a method the runtime invokes on its own when an event
// happens to the owning address.
const (
	TriggerOnWitness = "OnWitness"
	TriggerOnUpgrade = "OnUpgrade"
	TriggerOnKill    = "OnKill"
)

// Storage is the view of chain state contracts read and write.
type Storage interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte)
	Delete(key []byte)
}

// Runtime is the execution context handed to a contract method.
type Runtime interface {
	Storage() Storage
	Oracle() oracle.Reader

	ChainName() string
	ChainAddress() database.Address
	IsRootChain() bool
	HasGenesis() bool
	GenesisAddress() database.Address

	Height() uint64
	Time() uint64
	Validator() database.Address
	Transaction() *database.Transaction
	IsReadOnly() bool
	ActiveContract() string

	IsWitness(addr database.Address) (bool, error)
	Notify(kind database.EventKind, addr database.Address, data []byte) error
	CallContract(name string, method string, args ...vm.Value) (vm.Value, error)
	GovernanceValue(name string) (*big.Int, error)
	Random() *big.Int

	UsedGas() uint64
	MinimumFee() *big.Int

	// SetGasAllowance records the escrow made by the payer. A zero limit
	// marks the escrow as settled.
	SetGasAllowance(payer database.Address, price *big.Int, limit uint64) error
}

// Invoker is the runtime as seen by a contract being invoked. It adds the
// ability to run a scripted method.
type Invoker interface {
	Runtime
	RunScript(c *Custom, offset int, args []vm.Value) (vm.Value, error)
}

// Contract is the capability every contract exposes to the runtime.
type Contract interface {
	Name() string
	Address() database.Address
	Kind() Kind
	ABI() vm.ABI
	Cost(method string) uint64
	Invoke(inv Invoker, method string, args []vm.Value) (vm.Value, error)
}

// checkArguments validates the arguments against the method description.
func checkArguments(m vm.Method, args []vm.Value) error {
	if len(args) != len(m.Parameters) {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrArguments, m.Name, len(m.Parameters), len(args))
	}

	for i, p := range m.Parameters {
		if p.Type == vm.TypeNone || args[i].Type == p.Type {
			continue
		}

		// Addresses are accepted in their text form.
		if p.Type == vm.TypeAddress && args[i].Type == vm.TypeText {
			if _, err := args[i].AsAddress(); err == nil {
				continue
			}
		}

		return fmt.Errorf("%w: %s parameter %q expects %s, got %s", ErrArguments, m.Name, p.Name, p.Type, args[i].Type)
	}

	return nil
}
