package native

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Names of the governance values the chain itself reads.
const (
	GasMinimumFee         = "gas.minimum.fee"
	InflationPeriod       = "inflation.period"
	InflationAmount       = "inflation.amount"
	ValidatorRotationTime = "validator.rotation.time"
	ValidatorCount        = "validator.count"
	ProtocolVersion       = "protocol.version"
)

// ErrValueNotFound is returned when a governance value was never created.
var ErrValueNotFound = errors.New("governance value not found")

// GovValue is a named chain parameter with the range it may move in.
type GovValue struct {
	Name  string   `json:"name"`
	Value *big.Int `json:"value"`
	Min   *big.Int `json:"min"`
	Max   *big.Int `json:"max"`
}

func (gv GovValue) inRange(v *big.Int) bool {
	return v.Cmp(gv.Min) >= 0 && v.Cmp(gv.Max) <= 0
}

var (
	govValues = contract.NewMap[GovValue](GovernanceName, "values")
	govNames  = contract.NewList[string](GovernanceName, "names")
)

func newGovernance() *contract.Native {
	methods := []contract.Method{
		{
			Name:       "CreateValue",
			Parameters: []vm.Parameter{param("name", vm.TypeText), param("value", vm.TypeNumber), param("min", vm.TypeNumber), param("max", vm.TypeNumber)},
			Gas:        50,
			Handler:    createValue,
		},
		{
			Name:       "SetValue",
			Parameters: []vm.Parameter{param("name", vm.TypeText), param("value", vm.TypeNumber)},
			Gas:        50,
			Handler:    setValue,
		},
		{
			Name:       "GetValue",
			Parameters: []vm.Parameter{param("name", vm.TypeText)},
			Returns:    vm.TypeNumber,
			Gas:        5,
			Handler:    getValue,
		},
		{
			Name:       "HasValue",
			Parameters: []vm.Parameter{param("name", vm.TypeText)},
			Returns:    vm.TypeBool,
			Gas:        5,
			Handler:    hasValue,
		},
	}

	return contract.NewNative(GovernanceName, methods, govValues, govNames)
}

func createValue(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	name, err := textArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	value, err := numberArg(args, 1)
	if err != nil {
		return vm.None(), err
	}
	minimum, err := numberArg(args, 2)
	if err != nil {
		return vm.None(), err
	}
	maximum, err := numberArg(args, 3)
	if err != nil {
		return vm.None(), err
	}

	if err := requireGenesisAuthority(rt); err != nil {
		return vm.None(), err
	}

	if name == "" {
		return vm.None(), errors.New("governance value name is empty")
	}
	if minimum.Cmp(maximum) > 0 {
		return vm.None(), fmt.Errorf("governance value %s: min %s above max %s", name, minimum, maximum)
	}

	gv := GovValue{Name: name, Value: value, Min: minimum, Max: maximum}
	if !gv.inRange(value) {
		return vm.None(), fmt.Errorf("governance value %s: %s out of range [%s, %s]", name, value, minimum, maximum)
	}

	st := rt.Storage()
	exists, err := govValues.Has(st, name)
	if err != nil {
		return vm.None(), err
	}
	if exists {
		return vm.None(), fmt.Errorf("governance value %s already exists", name)
	}

	if err := govValues.Set(st, name, gv); err != nil {
		return vm.None(), err
	}
	if err := govNames.Add(st, name); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventValueCreate, rt.ChainAddress(), []byte(name))
}

func setValue(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	name, err := textArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	value, err := numberArg(args, 1)
	if err != nil {
		return vm.None(), err
	}

	if err := requireGenesisAuthority(rt); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	gv, found, err := govValues.Get(st, name)
	if err != nil {
		return vm.None(), err
	}
	if !found {
		return vm.None(), fmt.Errorf("%w: %s", ErrValueNotFound, name)
	}
	if !gv.inRange(value) {
		return vm.None(), fmt.Errorf("governance value %s: %s out of range [%s, %s]", name, value, gv.Min, gv.Max)
	}

	gv.Value = value
	if err := govValues.Set(st, name, gv); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventValueUpdate, rt.ChainAddress(), []byte(name))
}

func getValue(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	name, err := textArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	v, err := GovernanceValue(rt.Storage(), name)
	if err != nil {
		return vm.None(), err
	}
	return vm.Number(v), nil
}

func hasValue(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	name, err := textArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	exists, err := govValues.Has(rt.Storage(), name)
	if err != nil {
		return vm.None(), err
	}
	return vm.Bool(exists), nil
}

// =============================================================================

// GovernanceValue returns the current value of the named parameter.
func GovernanceValue(st contract.Storage, name string) (*big.Int, error) {
	gv, found, err := govValues.Get(st, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrValueNotFound, name)
	}
	return new(big.Int).Set(gv.Value), nil
}

// GovernanceValueOr returns the named parameter or the fallback when it was
// never created.
func GovernanceValueOr(st contract.Storage, name string, fallback uint64) (uint64, error) {
	v, err := GovernanceValue(st, name)
	if err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return fallback, nil
		}
		return 0, err
	}
	return v.Uint64(), nil
}

// GovernanceValues returns every parameter in creation order.
func GovernanceValues(st contract.Storage) ([]GovValue, error) {
	names, err := govNames.All(st)
	if err != nil {
		return nil, err
	}

	values := make([]GovValue, 0, len(names))
	for _, name := range names {
		gv, found, err := govValues.Get(st, name)
		if err != nil {
			return nil, err
		}
		if found {
			values = append(values, gv)
		}
	}

	return values, nil
}
