// Package genesis maintains access to the genesis file and builds the
// transaction the first block of a chain executes.
package genesis

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
	"github.com/spf13/viper"
)

// Balance is an initial fuel allocation.
type Balance struct {
	Address string `mapstructure:"address" json:"address"`
	Amount  uint64 `mapstructure:"amount" json:"amount"`
}

// Validator is an initial validator of the chain.
type Validator struct {
	Name    string `mapstructure:"name" json:"name"`       // Consensus name the proposer uses in block headers.
	Address string `mapstructure:"address" json:"address"` // User address that signs the blocks.
	Type    string `mapstructure:"type" json:"type"`       // primary or secondary.
}

// Value is a governance value created at genesis.
type Value struct {
	Name  string `mapstructure:"name" json:"name"`
	Value uint64 `mapstructure:"value" json:"value"`
	Min   uint64 `mapstructure:"min" json:"min"`
	Max   uint64 `mapstructure:"max" json:"max"`
}

// Genesis represents the genesis file.
type Genesis struct {
	Nexus      string      `mapstructure:"nexus" json:"nexus"`         // Name of the network.
	Chain      string      `mapstructure:"chain" json:"chain"`         // Name of the root chain.
	Owner      string      `mapstructure:"owner" json:"owner"`         // Address allowed to sign the genesis transaction.
	Timestamp  uint64      `mapstructure:"timestamp" json:"timestamp"` // Unix seconds before which the first block cannot be produced.
	Balances   []Balance   `mapstructure:"balances" json:"balances"`
	Validators []Validator `mapstructure:"validators" json:"validators"`
	Values     []Value     `mapstructure:"values" json:"values"`
}

// Load opens and consumes the genesis file. The format follows the file
// extension: yaml, json and toml are accepted.
func Load(path string) (Genesis, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("chain", "main")

	if err := v.ReadInConfig(); err != nil {
		return Genesis{}, fmt.Errorf("reading genesis %s: %w", path, err)
	}

	var g Genesis
	if err := v.Unmarshal(&g); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	if err := g.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("genesis %s: %w", path, err)
	}

	return g, nil
}

// Validate checks the genesis can produce a working chain.
func (g Genesis) Validate() error {
	if g.Nexus == "" {
		return errors.New("nexus name is required")
	}

	owner, err := database.ToAddress(g.Owner)
	if err != nil || !owner.IsUser() {
		return fmt.Errorf("owner %q is not a user address", g.Owner)
	}

	var primaries int
	names := make(map[string]bool)
	for _, val := range g.Validators {
		if _, err := val.address(); err != nil {
			return err
		}
		vt, err := val.kind()
		if err != nil {
			return err
		}
		if names[val.Name] {
			return fmt.Errorf("validator name %q used twice", val.Name)
		}
		names[val.Name] = true
		if vt == native.ValidatorPrimary {
			primaries++
		}
	}
	if primaries == 0 {
		return errors.New("at least one primary validator is required")
	}

	for _, b := range g.Balances {
		addr, err := database.ToAddress(b.Address)
		if err != nil || addr.IsNull() {
			return fmt.Errorf("balance address %q is invalid", b.Address)
		}
	}

	for _, gv := range g.Values {
		if gv.Min > gv.Max || gv.Value < gv.Min || gv.Value > gv.Max {
			return fmt.Errorf("governance value %s: %d out of range [%d, %d]", gv.Name, gv.Value, gv.Min, gv.Max)
		}
	}

	return nil
}

// OwnerAddress returns the address that signs the genesis transaction.
func (g Genesis) OwnerAddress() database.Address {
	addr, _ := database.ToAddress(g.Owner)
	return addr
}

// Initials maps the consensus names of the validators to their address.
// It is used to resolve block proposers before the validator contract holds
// any entry.
func (g Genesis) Initials() map[string]database.Address {
	m := make(map[string]database.Address, len(g.Validators))
	for _, val := range g.Validators {
		addr, _ := val.address()
		m[val.Name] = addr
	}
	return m
}

// Script returns the script of the genesis transaction: it mints the
// balances, creates the governance values and installs the validators.
func (g Genesis) Script() ([]byte, error) {
	b := vm.NewBuilder()

	for _, bal := range g.Balances {
		addr, err := database.ToAddress(bal.Address)
		if err != nil {
			return nil, err
		}
		b.CallContract(native.GasName, "Mint", vm.Address(addr), vm.Uint(bal.Amount))
	}

	for _, gv := range g.Values {
		b.CallContract(native.GovernanceName, "CreateValue",
			vm.Text(gv.Name),
			vm.Uint(gv.Value),
			vm.Uint(gv.Min),
			vm.Uint(gv.Max),
		)
	}

	for _, val := range g.Validators {
		addr, err := val.address()
		if err != nil {
			return nil, err
		}
		vt, err := val.kind()
		if err != nil {
			return nil, err
		}
		b.CallContract(native.ValidatorName, "SetValidator", vm.Address(addr), vm.Text(val.Name), vm.Uint(uint64(vt)))
	}

	return b.Bytes(), nil
}

// Transaction builds the genesis transaction signed by the owner.
func (g Genesis) Transaction(privateKey *ecdsa.PrivateKey, expiration uint64) (database.Transaction, error) {
	owner := g.OwnerAddress()
	if database.PublicKeyToAddress(privateKey.PublicKey) != owner {
		return database.Transaction{}, fmt.Errorf("key does not belong to owner %s", owner)
	}

	script, err := g.Script()
	if err != nil {
		return database.Transaction{}, err
	}

	tx := database.NewTransaction(g.Nexus, g.Chain, script, owner, expiration, []byte("genesis"))
	if err := tx.Sign(privateKey); err != nil {
		return database.Transaction{}, err
	}

	return tx, nil
}

// =============================================================================

func (val Validator) address() (database.Address, error) {
	addr, err := database.ToAddress(val.Address)
	if err != nil || !addr.IsUser() {
		return database.NullAddress, fmt.Errorf("validator %q: %q is not a user address", val.Name, val.Address)
	}
	return addr, nil
}

func (val Validator) kind() (native.ValidatorType, error) {
	switch val.Type {
	case "", "primary":
		return native.ValidatorPrimary, nil
	case "secondary":
		return native.ValidatorSecondary, nil
	}
	return native.ValidatorInvalid, fmt.Errorf("validator %q: unknown type %q", val.Name, val.Type)
}
