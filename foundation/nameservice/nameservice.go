// Package nameservice reads a folder of key files and creates a name
// service lookup for the addresses they control.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	addresses map[database.Address]string
	names     map[string]database.Address
}

// New constructs a name service with the addresses of the .ecdsa files
// found under the root folder. The file name is the name of the address.
func New(root string) (*NameService, error) {
	ns := NameService{
		addresses: make(map[database.Address]string),
		names:     make(map[string]database.Address),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		addr := database.PublicKeyToAddress(privateKey.PublicKey)
		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		ns.addresses[addr] = name
		ns.names[name] = addr

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(addr database.Address) string {
	name, exists := ns.addresses[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Resolve returns the address for a name or the address in text form.
func (ns *NameService) Resolve(nameOrAddress string) (database.Address, error) {
	if addr, exists := ns.names[nameOrAddress]; exists {
		return addr, nil
	}
	return database.ToAddress(nameOrAddress)
}

// Copy returns a copy of the map of names and addresses.
func (ns *NameService) Copy() map[database.Address]string {
	cpy := make(map[database.Address]string, len(ns.addresses))
	for addr, name := range ns.addresses {
		cpy[addr] = name
	}
	return cpy
}
