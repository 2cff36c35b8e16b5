package native

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// accountScript is the persisted form of a script attached to an address.
type accountScript struct {
	Script vm.Script `json:"script"`
	ABI    vm.ABI    `json:"abi"`
}

var (
	accountScripts = contract.NewMap[accountScript](AccountName, "scripts")
	accountNames   = contract.NewMap[database.Address](AccountName, "names")
	accountLookup  = contract.NewMap[string](AccountName, "lookup")
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]{2,14}$`)

func newAccount() *contract.Native {
	methods := []contract.Method{
		{
			Name:       "RegisterScript",
			Parameters: []vm.Parameter{param("target", vm.TypeAddress), param("script", vm.TypeBytes), param("abi", vm.TypeBytes)},
			Gas:        100,
			Handler:    registerScript,
		},
		{
			Name:       "RegisterName",
			Parameters: []vm.Parameter{param("target", vm.TypeAddress), param("name", vm.TypeText)},
			Gas:        50,
			Handler:    registerName,
		},
		{
			Name:       "LookUpName",
			Parameters: []vm.Parameter{param("name", vm.TypeText)},
			Returns:    vm.TypeAddress,
			Gas:        5,
			Handler:    lookUpName,
		},
		{
			Name:       "LookUpAddress",
			Parameters: []vm.Parameter{param("address", vm.TypeAddress)},
			Returns:    vm.TypeText,
			Gas:        5,
			Handler:    lookUpAddress,
		},
	}

	return contract.NewNative(AccountName, methods, accountScripts, accountNames, accountLookup)
}

func registerScript(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	target, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	scriptData, err := bytesArg(args, 1)
	if err != nil {
		return vm.None(), err
	}
	abiData, err := bytesArg(args, 2)
	if err != nil {
		return vm.None(), err
	}

	if !target.IsUser() {
		return vm.None(), fmt.Errorf("scripts can only be attached to user addresses, got %s", target)
	}
	if err := requireWitness(rt, target); err != nil {
		return vm.None(), err
	}

	script, err := vm.DecodeScript(scriptData)
	if err != nil {
		return vm.None(), err
	}
	abi, err := vm.DecodeABI(abiData)
	if err != nil {
		return vm.None(), err
	}
	if err := abi.Validate(len(script)); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	exists, err := accountScripts.Has(st, target.String())
	if err != nil {
		return vm.None(), err
	}
	if exists {
		return vm.None(), fmt.Errorf("address %s already has a script", target)
	}

	if err := accountScripts.Set(st, target.String(), accountScript{Script: script, ABI: abi}); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventAddressRegister, target, []byte("script"))
}

func registerName(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	target, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	name, err := textArg(args, 1)
	if err != nil {
		return vm.None(), err
	}

	if !validName.MatchString(name) {
		return vm.None(), fmt.Errorf("invalid account name %q", name)
	}
	if err := requireWitness(rt, target); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	if taken, err := accountNames.Has(st, name); err != nil || taken {
		if err != nil {
			return vm.None(), err
		}
		return vm.None(), fmt.Errorf("account name %q already taken", name)
	}
	if named, err := accountLookup.Has(st, target.String()); err != nil || named {
		if err != nil {
			return vm.None(), err
		}
		return vm.None(), fmt.Errorf("address %s already has a name", target)
	}

	if err := accountNames.Set(st, name, target); err != nil {
		return vm.None(), err
	}
	if err := accountLookup.Set(st, target.String(), name); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventAddressRegister, target, []byte(name))
}

func lookUpName(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	name, err := textArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	addr, found, err := accountNames.Get(rt.Storage(), name)
	if err != nil {
		return vm.None(), err
	}
	if !found {
		return vm.Address(database.NullAddress), nil
	}
	return vm.Address(addr), nil
}

func lookUpAddress(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	addr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	name, _, err := accountLookup.Get(rt.Storage(), addr.String())
	if err != nil {
		return vm.None(), err
	}
	return vm.Text(name), nil
}

// =============================================================================

// ErrNoScript is returned when an address has no script attached.
var ErrNoScript = errors.New("address has no script")

// AccountScript returns the contract attached to the user address.
func AccountScript(st contract.Storage, addr database.Address) (*contract.Custom, error) {
	rec, found, err := accountScripts.Get(st, addr.String())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoScript
	}
	return contract.NewAccountScript(addr, rec.Script, rec.ABI)
}

// AccountNameOf returns the name registered for the address, if any.
func AccountNameOf(st contract.Storage, addr database.Address) (string, error) {
	name, _, err := accountLookup.Get(st, addr.String())
	return name, err
}
