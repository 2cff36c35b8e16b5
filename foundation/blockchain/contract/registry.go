package contract

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// Registry resolves contracts by name or address. Native contracts are
// registered at startup; custom contracts are looked up in chain storage.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]Contract
	byAddress map[database.Address]Contract
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]Contract),
		byAddress: make(map[database.Address]Contract),
	}
}

// Register adds a contract to the registry.
func (r *Registry) Register(c Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, c.Name())
	}

	r.byName[c.Name()] = c
	r.byAddress[c.Address()] = c
	return nil
}

// Lookup returns the registered contract with the name.
func (r *Registry) Lookup(name string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.byName[name]
	return c, exists
}

// IsNative reports if the address belongs to a registered contract.
func (r *Registry) IsNative(addr database.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.byAddress[addr]
	return exists
}

// Names returns the sorted list of registered contract names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve finds the named contract in the registry and then in storage.
func (r *Registry) Resolve(st Storage, name string) (Contract, error) {
	if c, exists := r.Lookup(name); exists {
		return c, nil
	}

	custom, err := Load(st, database.SystemAddress(name))
	if err != nil {
		return nil, err
	}
	return custom, nil
}

// ResolveAddress finds the contract at the address in the registry and then
// in storage.
func (r *Registry) ResolveAddress(st Storage, addr database.Address) (Contract, error) {
	r.mu.RLock()
	c, exists := r.byAddress[addr]
	r.mu.RUnlock()

	if exists {
		return c, nil
	}

	custom, err := Load(st, addr)
	if err != nil {
		return nil, err
	}
	return custom, nil
}
