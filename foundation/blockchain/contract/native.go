package contract

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Handler is the Go implementation of a native method.
type Handler func(rt Runtime, args []vm.Value) (vm.Value, error)

// Method binds a native method description to its handler. Gas is charged
// on top of the cost of the call instruction.
type Method struct {
	Name       string
	Parameters []vm.Parameter
	Returns    vm.Type
	Gas        uint64
	Handler    Handler
}

// Native is a contract implemented in Go.
type Native struct {
	name    string
	address database.Address
	abi     vm.ABI
	table   map[string]Method
	fields  []Field
}

// NewNative constructs a native contract. The dispatch table is fixed once
// the contract is built.
func NewNative(name string, methods []Method, fields ...Field) *Native {
	n := Native{
		name:    name,
		address: database.SystemAddress(name),
		table:   make(map[string]Method, len(methods)),
		fields:  fields,
	}

	for _, m := range methods {
		if _, exists := n.table[m.Name]; exists {
			panic(fmt.Sprintf("contract %s: duplicate method %s", name, m.Name))
		}
		n.table[m.Name] = m
		n.abi.Methods = append(n.abi.Methods, vm.Method{
			Name:       m.Name,
			Parameters: m.Parameters,
			Returns:    m.Returns,
			Offset:     -1,
		})
	}

	return &n
}

// Name returns the name of the contract.
func (n *Native) Name() string {
	return n.name
}

// Address returns the system address derived from the name.
func (n *Native) Address() database.Address {
	return n.address
}

// Kind returns KindNative.
func (n *Native) Kind() Kind {
	return KindNative
}

// ABI returns the method descriptions.
func (n *Native) ABI() vm.ABI {
	return n.abi
}

// Fields returns the storage fields declared by the contract.
func (n *Native) Fields() []Field {
	return n.fields
}

// Cost returns the gas charged for the method.
func (n *Native) Cost(method string) uint64 {
	return n.table[method].Gas
}

// Invoke dispatches the call through the method table.
func (n *Native) Invoke(inv Invoker, method string, args []vm.Value) (vm.Value, error) {
	m, exists := n.table[method]
	if !exists {
		return vm.None(), fmt.Errorf("%w: %s.%s", ErrMethodNotFound, n.name, method)
	}

	desc, _ := n.abi.Method(method)
	if err := checkArguments(desc, args); err != nil {
		return vm.None(), err
	}

	return m.Handler(inv, args)
}
