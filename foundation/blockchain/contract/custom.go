package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Custom is a contract whose methods are script offsets.
type Custom struct {
	name    string
	address database.Address
	owner   database.Address
	script  vm.Script
	abi     vm.ABI
}

// NewCustom constructs a scripted contract. An account script uses the
// address of the account it protects; every other contract derives its
// address from its name.
func NewCustom(name string, owner database.Address, script vm.Script, abi vm.ABI) (*Custom, error) {
	if err := abi.Validate(len(script)); err != nil {
		return nil, fmt.Errorf("contract %s: %w", name, err)
	}

	c := Custom{
		name:    name,
		address: database.SystemAddress(name),
		owner:   owner,
		script:  script,
		abi:     abi,
	}

	return &c, nil
}

// NewAccountScript constructs the contract attached to a user address.
func NewAccountScript(owner database.Address, script vm.Script, abi vm.ABI) (*Custom, error) {
	c, err := NewCustom(owner.String(), owner, script, abi)
	if err != nil {
		return nil, err
	}
	c.address = owner
	return c, nil
}

// Name returns the name of the contract.
func (c *Custom) Name() string {
	return c.name
}

// Address returns the address of the contract.
func (c *Custom) Address() database.Address {
	return c.address
}

// Owner returns the address allowed to act for the contract.
func (c *Custom) Owner() database.Address {
	return c.owner
}

// Kind returns KindCustom.
func (c *Custom) Kind() Kind {
	return KindCustom
}

// ABI returns the method descriptions.
func (c *Custom) ABI() vm.ABI {
	return c.abi
}

// Script returns the instructions of the contract.
func (c *Custom) Script() vm.Script {
	return c.script
}

// Cost is zero since every instruction of the method is charged as it runs.
func (c *Custom) Cost(string) uint64 {
	return 0
}

// Trigger returns the method implementing the trigger if the ABI has one.
func (c *Custom) Trigger(name string) (vm.Method, bool) {
	return c.abi.Method(name)
}

// Invoke runs the method through the runtime interpreter.
func (c *Custom) Invoke(inv Invoker, method string, args []vm.Value) (vm.Value, error) {
	m, exists := c.abi.Method(method)
	if !exists {
		return vm.None(), fmt.Errorf("%w: %s.%s", ErrMethodNotFound, c.name, method)
	}

	if err := checkArguments(m, args); err != nil {
		return vm.None(), err
	}

	return inv.RunScript(c, m.Offset, args)
}

// =============================================================================

// record is the persisted form of a custom contract.
type record struct {
	Name   string           `json:"name"`
	Owner  database.Address `json:"owner"`
	Script vm.Script        `json:"script"`
	ABI    vm.ABI           `json:"abi"`
}

func addressKey(addr database.Address) []byte {
	return []byte("contract." + addr.String())
}

// Deploy persists the contract under its address.
func Deploy(st Storage, c *Custom) error {
	key := addressKey(c.address)

	exists, err := st.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, c.name)
	}

	data, err := json.Marshal(record{Name: c.name, Owner: c.owner, Script: c.script, ABI: c.abi})
	if err != nil {
		return err
	}

	st.Put(key, data)
	return nil
}

// Load reads a deployed contract by address.
func Load(st Storage, addr database.Address) (*Custom, error) {
	data, err := st.Get(addressKey(addr))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr)
		}
		return nil, err
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding contract %s: %w", addr, err)
	}

	c := Custom{
		name:    r.Name,
		address: addr,
		owner:   r.Owner,
		script:  r.Script,
		abi:     r.ABI,
	}

	return &c, nil
}
