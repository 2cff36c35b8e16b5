package native

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// ErrNoValidators is returned when a block producer is needed and the
// validator list has no primaries.
var ErrNoValidators = errors.New("no primary validators")

// ValidatorType describes the role of a validator.
type ValidatorType byte

// Set of validator types.
const (
	ValidatorInvalid ValidatorType = iota
	ValidatorPrimary
	ValidatorSecondary
)

// String implements the fmt.Stringer interface.
func (vt ValidatorType) String() string {
	switch vt {
	case ValidatorPrimary:
		return "primary"
	case ValidatorSecondary:
		return "secondary"
	}
	return "invalid"
}

// Validator is an entry in the validator list.
type Validator struct {
	Address   database.Address `json:"address"`
	Type      ValidatorType    `json:"type"`
	Consensus string           `json:"consensus"`
	Election  uint64           `json:"election"`
}

var validators = contract.NewList[Validator](ValidatorName, "entries")

func newValidator() *contract.Native {
	methods := []contract.Method{
		{
			Name:       "SetValidator",
			Parameters: []vm.Parameter{param("address", vm.TypeAddress), param("consensus", vm.TypeText), param("type", vm.TypeNumber)},
			Gas:        50,
			Handler:    setValidator,
		},
		{
			Name:       "RemoveValidator",
			Parameters: []vm.Parameter{param("address", vm.TypeAddress)},
			Gas:        50,
			Handler:    removeValidator,
		},
		{
			Name:       "Migrate",
			Parameters: []vm.Parameter{param("from", vm.TypeAddress), param("to", vm.TypeAddress)},
			Gas:        50,
			Handler:    migrateValidator,
		},
		{
			Name:       "IsValidator",
			Parameters: []vm.Parameter{param("address", vm.TypeAddress)},
			Returns:    vm.TypeBool,
			Gas:        5,
			Handler:    isValidator,
		},
		{
			Name:    "GetValidators",
			Returns: vm.TypeBytes,
			Gas:     10,
			Handler: getValidators,
		},
	}

	return contract.NewNative(ValidatorName, methods, validators)
}

func setValidator(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	addr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	consensus, err := textArg(args, 1)
	if err != nil {
		return vm.None(), err
	}
	kind, err := args[2].AsUint64()
	if err != nil {
		return vm.None(), err
	}

	vt := ValidatorType(kind)
	if vt != ValidatorPrimary && vt != ValidatorSecondary {
		return vm.None(), fmt.Errorf("invalid validator type %d", kind)
	}
	if !addr.IsUser() {
		return vm.None(), fmt.Errorf("validator %s must be a user address", addr)
	}

	if err := requireGenesisAuthority(rt); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	entries, err := validators.All(st)
	if err != nil {
		return vm.None(), err
	}

	primaries := 0
	for _, e := range entries {
		if e.Type == ValidatorPrimary && e.Address != addr {
			primaries++
		}
	}
	if vt == ValidatorPrimary {
		limit, err := GovernanceValueOr(st, ValidatorCount, 0)
		if err != nil {
			return vm.None(), err
		}
		if limit > 0 && uint64(primaries+1) > limit {
			return vm.None(), fmt.Errorf("primary validator limit %d reached", limit)
		}
	}

	v := Validator{Address: addr, Type: vt, Consensus: consensus, Election: rt.Time()}

	switch i := indexOfValidator(entries, addr); {
	case i >= 0:
		if err := validators.Replace(st, i, v); err != nil {
			return vm.None(), err
		}
	default:
		if err := validators.Add(st, v); err != nil {
			return vm.None(), err
		}
	}

	kindEvent := database.EventValidatorElect
	if vt == ValidatorSecondary {
		kindEvent = database.EventValidatorPropose
	}

	return vm.None(), rt.Notify(kindEvent, addr, []byte(consensus))
}

func removeValidator(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	addr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	if err := requireGenesisAuthority(rt); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	entries, err := validators.All(st)
	if err != nil {
		return vm.None(), err
	}

	i := indexOfValidator(entries, addr)
	if i < 0 {
		return vm.None(), fmt.Errorf("%s is not a validator", addr)
	}
	if err := validators.RemoveAt(st, i); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventValidatorRemove, addr, nil)
}

func migrateValidator(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	from, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	to, err := addressArg(args, 1)
	if err != nil {
		return vm.None(), err
	}

	if !to.IsUser() {
		return vm.None(), fmt.Errorf("validator %s must be a user address", to)
	}
	if err := requireWitness(rt, from); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	entries, err := validators.All(st)
	if err != nil {
		return vm.None(), err
	}

	i := indexOfValidator(entries, from)
	if i < 0 {
		return vm.None(), fmt.Errorf("%s is not a validator", from)
	}
	if indexOfValidator(entries, to) >= 0 {
		return vm.None(), fmt.Errorf("%s is already a validator", to)
	}

	v := entries[i]
	v.Address = to
	if err := validators.Replace(st, i, v); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventAddressMigration, to, []byte(from.String()))
}

func isValidator(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	addr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	entries, err := validators.All(rt.Storage())
	if err != nil {
		return vm.None(), err
	}
	return vm.Bool(indexOfValidator(entries, addr) >= 0), nil
}

func getValidators(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	entries, err := validators.All(rt.Storage())
	if err != nil {
		return vm.None(), err
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return vm.None(), err
	}
	return vm.Bytes(data), nil
}

func indexOfValidator(entries []Validator, addr database.Address) int {
	for i, e := range entries {
		if e.Address == addr {
			return i
		}
	}
	return -1
}

// =============================================================================

// Validators returns the validator list in registration order.
func Validators(st contract.Storage) ([]Validator, error) {
	return validators.All(st)
}

// Primaries returns the primary validators in registration order.
func Primaries(st contract.Storage) ([]Validator, error) {
	entries, err := validators.All(st)
	if err != nil {
		return nil, err
	}

	var primaries []Validator
	for _, e := range entries {
		if e.Type == ValidatorPrimary {
			primaries = append(primaries, e)
		}
	}
	return primaries, nil
}

// IsPrimary reports if the address is a primary validator.
func IsPrimary(st contract.Storage, addr database.Address) (bool, error) {
	primaries, err := Primaries(st)
	if err != nil {
		return false, err
	}
	return indexOfValidator(primaries, addr) >= 0, nil
}

// ExpectedValidator returns the primary validator whose turn covers the
// timestamp. Turns rotate every rotation seconds starting at genesis.
func ExpectedValidator(st contract.Storage, genesisTime uint64, timestamp uint64) (database.Address, error) {
	primaries, err := Primaries(st)
	if err != nil {
		return database.NullAddress, err
	}
	if len(primaries) == 0 {
		return database.NullAddress, ErrNoValidators
	}

	rotation, err := GovernanceValueOr(st, ValidatorRotationTime, 120)
	if err != nil {
		return database.NullAddress, err
	}
	if rotation == 0 {
		rotation = 1
	}

	var elapsed uint64
	if timestamp > genesisTime {
		elapsed = timestamp - genesisTime
	}

	slot := (elapsed / rotation) % uint64(len(primaries))
	return primaries[slot].Address, nil
}
