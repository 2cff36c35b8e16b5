package runtime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
	"github.com/nexuschain/chaincore/foundation/blockchain/task"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// interop is a runtime service a script reaches with the INTEROP opcode.
type interop struct {
	argc int
	cost uint64
	fn   func(rt *Runtime, args []vm.Value) (vm.Value, error)
}

// interops is filled in init since the handlers reach back into the
// interpreter that dispatches them.
var interops map[string]interop

func init() {
	interops = map[string]interop{
		"Runtime.Time":               {0, 1, interopTime},
		"Runtime.Height":             {0, 1, interopHeight},
		"Runtime.Validator":          {0, 1, interopValidator},
		"Runtime.TransactionHash":    {0, 1, interopTransactionHash},
		"Runtime.IsWitness":          {1, 5, interopIsWitness},
		"Runtime.Notify":             {3, 5, interopNotify},
		"Runtime.Log":                {1, 2, interopLog},
		"Runtime.Random":             {0, 2, interopRandom},
		"Runtime.GetGovernanceValue": {1, 2, interopGovernanceValue},
		"Runtime.StartTask":          {7, 100, interopStartTask},
		"Runtime.StopTask":           {1, 20, interopStopTask},
		"Runtime.DeployContract":     {4, 200, interopDeployContract},
		"Data.Get":                   {1, 5, interopDataGet},
		"Data.Set":                   {2, 20, interopDataSet},
		"Data.Delete":                {1, 10, interopDataDelete},
		"Oracle.Read":                {1, 50, interopOracleRead},
		"Oracle.Price":               {1, 50, interopOraclePrice},
	}
}

func (rt *Runtime) callInterop(name string, args []vm.Value) (vm.Value, error) {
	in, exists := interops[name]
	if !exists {
		return vm.None(), faultf("unknown interop %s", name)
	}
	if len(args) != in.argc {
		return vm.None(), faultf("interop %s expects %d arguments, got %d", name, in.argc, len(args))
	}

	if err := rt.ConsumeGas(in.cost); err != nil {
		return vm.None(), err
	}

	v, err := in.fn(rt, args)
	if err != nil {
		return vm.None(), asFault(err, "interop %s", name)
	}
	return v, nil
}

// =============================================================================

func interopTime(rt *Runtime, _ []vm.Value) (vm.Value, error) {
	return vm.Uint(rt.Time()), nil
}

func interopHeight(rt *Runtime, _ []vm.Value) (vm.Value, error) {
	return vm.Uint(rt.Height()), nil
}

func interopValidator(rt *Runtime, _ []vm.Value) (vm.Value, error) {
	return vm.Address(rt.Validator()), nil
}

func interopTransactionHash(rt *Runtime, _ []vm.Value) (vm.Value, error) {
	tx := rt.Transaction()
	if tx == nil {
		return vm.Bytes(nil), nil
	}
	h := tx.Hash()
	return vm.Bytes(h[:]), nil
}

func interopIsWitness(rt *Runtime, args []vm.Value) (vm.Value, error) {
	addr, err := args[0].AsAddress()
	if err != nil {
		return vm.None(), err
	}

	ok, err := rt.IsWitness(addr)
	if err != nil {
		return vm.None(), err
	}
	return vm.Bool(ok), nil
}

func interopNotify(rt *Runtime, args []vm.Value) (vm.Value, error) {
	kind, err := args[0].AsUint64()
	if err != nil {
		return vm.None(), err
	}
	addr, err := args[1].AsAddress()
	if err != nil {
		return vm.None(), err
	}
	data, err := args[2].AsBytes()
	if err != nil {
		return vm.None(), err
	}

	if kind > 255 {
		return vm.None(), fmt.Errorf("invalid event kind %d", kind)
	}

	return vm.None(), rt.Notify(database.EventKind(kind), addr, data)
}

func interopLog(rt *Runtime, args []vm.Value) (vm.Value, error) {
	text, err := args[0].AsText()
	if err != nil {
		return vm.None(), err
	}

	var addr database.Address
	if f := rt.top(); f != nil && !f.address.IsNull() {
		addr = f.address
	} else if tx := rt.Transaction(); tx != nil {
		addr = tx.Sender
	}

	return vm.None(), rt.Notify(database.EventLog, addr, []byte(text))
}

func interopRandom(rt *Runtime, _ []vm.Value) (vm.Value, error) {
	return vm.Number(rt.Random()), nil
}

func interopGovernanceValue(rt *Runtime, args []vm.Value) (vm.Value, error) {
	name, err := args[0].AsText()
	if err != nil {
		return vm.None(), err
	}

	v, err := rt.GovernanceValue(name)
	if err != nil {
		return vm.None(), err
	}
	return vm.Number(v), nil
}

// =============================================================================

func interopStartTask(rt *Runtime, args []vm.Value) (vm.Value, error) {
	owner, err := args[0].AsAddress()
	if err != nil {
		return vm.None(), err
	}
	contractName, err := args[1].AsText()
	if err != nil {
		return vm.None(), err
	}
	method, err := args[2].AsText()
	if err != nil {
		return vm.None(), err
	}
	frequency, err := args[3].AsUint64()
	if err != nil {
		return vm.None(), err
	}
	modeName, err := args[4].AsText()
	if err != nil {
		return vm.None(), err
	}
	delay, err := args[5].AsUint64()
	if err != nil {
		return vm.None(), err
	}
	gasLimit, err := args[6].AsUint64()
	if err != nil {
		return vm.None(), err
	}

	mode, err := task.ParseMode(modeName)
	if err != nil {
		return vm.None(), err
	}

	if err := rt.requireWitness(owner); err != nil {
		return vm.None(), err
	}

	c, err := rt.cfg.Registry.Resolve(rt.cfg.ChangeSet, contractName)
	if err != nil {
		return vm.None(), err
	}
	if !c.ABI().HasMethod(method) {
		return vm.None(), fmt.Errorf("%w: %s.%s", contract.ErrMethodNotFound, contractName, method)
	}
	if gasLimit == 0 {
		return vm.None(), errors.New("task gas limit must be greater than zero")
	}

	t := task.Task{
		Owner:         owner,
		Contract:      contractName,
		Method:        method,
		Frequency:     frequency,
		Mode:          mode,
		Delay:         delay,
		GasLimit:      gasLimit,
		CreatedHeight: rt.Height(),
		CreatedTime:   rt.Time(),
	}

	t, err = task.NewStore(rt.cfg.ChangeSet).Add(t)
	if err != nil {
		return vm.None(), err
	}

	rt.emit(database.Event{Kind: database.EventTaskStart, Address: owner, Data: []byte(strconv.FormatUint(t.ID, 10))})
	return vm.Uint(t.ID), nil
}

func interopStopTask(rt *Runtime, args []vm.Value) (vm.Value, error) {
	id, err := args[0].AsUint64()
	if err != nil {
		return vm.None(), err
	}

	store := task.NewStore(rt.cfg.ChangeSet)
	t, err := store.Get(id)
	if err != nil {
		return vm.None(), err
	}

	// A running task may always stop itself.
	if current := rt.root().cfg.Task; current == nil || current.ID != id {
		if err := rt.requireWitness(t.Owner); err != nil {
			return vm.None(), err
		}
	}

	if err := store.Remove(id); err != nil {
		return vm.None(), err
	}

	rt.emit(database.Event{Kind: database.EventTaskStop, Address: t.Owner, Data: []byte(strconv.FormatUint(id, 10))})
	return vm.None(), nil
}

var validContractName = regexp.MustCompile(`^[a-z][a-z0-9_.]{2,31}$`)

func interopDeployContract(rt *Runtime, args []vm.Value) (vm.Value, error) {
	owner, err := args[0].AsAddress()
	if err != nil {
		return vm.None(), err
	}
	name, err := args[1].AsText()
	if err != nil {
		return vm.None(), err
	}
	scriptData, err := args[2].AsBytes()
	if err != nil {
		return vm.None(), err
	}
	abiData, err := args[3].AsBytes()
	if err != nil {
		return vm.None(), err
	}

	if !validContractName.MatchString(name) {
		return vm.None(), fmt.Errorf("invalid contract name %q", name)
	}
	if _, exists := rt.cfg.Registry.Lookup(name); exists {
		return vm.None(), fmt.Errorf("%w: %s", contract.ErrDuplicate, name)
	}
	if err := rt.requireWitness(owner); err != nil {
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

	c, err := contract.NewCustom(name, owner, script, abi)
	if err != nil {
		return vm.None(), err
	}
	if err := contract.Deploy(rt.cfg.ChangeSet, c); err != nil {
		return vm.None(), err
	}

	rt.emit(database.Event{Kind: database.EventContractDeploy, Address: c.Address(), Data: []byte(name)})
	return vm.Address(c.Address()), nil
}

// =============================================================================

// dataKey scopes a key to the contract on top of the call stack.
func (rt *Runtime) dataKey(v vm.Value) ([]byte, error) {
	key, err := v.AsText()
	if err != nil {
		return nil, err
	}

	f := rt.top()
	if f == nil || f.address.IsNull() {
		return nil, errors.New("data access requires a contract context")
	}

	return []byte("data." + f.address.String() + "." + key), nil
}

func interopDataGet(rt *Runtime, args []vm.Value) (vm.Value, error) {
	key, err := rt.dataKey(args[0])
	if err != nil {
		return vm.None(), err
	}

	data, err := rt.cfg.ChangeSet.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return vm.None(), nil
		}
		return vm.None(), err
	}
	return vm.DecodeValue(data)
}

func interopDataSet(rt *Runtime, args []vm.Value) (vm.Value, error) {
	key, err := rt.dataKey(args[0])
	if err != nil {
		return vm.None(), err
	}

	if args[1].IsNone() {
		rt.cfg.ChangeSet.Delete(key)
		return vm.None(), nil
	}

	rt.cfg.ChangeSet.Put(key, args[1].Encode())
	return vm.None(), nil
}

func interopDataDelete(rt *Runtime, args []vm.Value) (vm.Value, error) {
	key, err := rt.dataKey(args[0])
	if err != nil {
		return vm.None(), err
	}

	rt.cfg.ChangeSet.Delete(key)
	return vm.None(), nil
}

// =============================================================================

func interopOracleRead(rt *Runtime, args []vm.Value) (vm.Value, error) {
	url, err := args[0].AsText()
	if err != nil {
		return vm.None(), err
	}
	if rt.cfg.Oracle == nil {
		return vm.None(), errors.New("oracle unavailable")
	}

	content, err := rt.cfg.Oracle.Read(rt.Time(), url)
	if err != nil {
		return vm.None(), err
	}
	return vm.Bytes(content), nil
}

func interopOraclePrice(rt *Runtime, args []vm.Value) (vm.Value, error) {
	symbol, err := args[0].AsText()
	if err != nil {
		return vm.None(), err
	}
	if rt.cfg.Oracle == nil {
		return vm.None(), errors.New("oracle unavailable")
	}

	price, err := rt.cfg.Oracle.Price(rt.Time(), symbol)
	if err != nil {
		return vm.None(), err
	}
	return vm.Number(price), nil
}

// requireWitness faults unless the address witnessed the execution.
func (rt *Runtime) requireWitness(addr database.Address) error {
	ok, err := rt.IsWitness(addr)
	if err != nil {
		return err
	}
	if !ok {
		return faultf("invalid witness: %s", addr)
	}
	return nil
}
