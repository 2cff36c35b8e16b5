// Package runtime executes scripts against the pending state of a chain.
// A runtime charges gas for every step, resolves witnesses, fires account
// triggers and turns a top level fault into a failure result that still
// pays for the gas it burned.
package runtime

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
	"github.com/nexuschain/chaincore/foundation/blockchain/task"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// Limits applied to every execution.
const (
	DefaultMaxGas = 10_000
	MaxCallDepth  = 32
	MaxSteps      = 1 << 20
)

// EntryContext is the name of the context running a transaction script.
const EntryContext = "entry"

// EventHandler defines a function that is called when events occur in the
// processing of scripts.
type EventHandler func(v string, args ...any)

// State represents where a runtime is in its life.
type State byte

// Set of runtime states.
const (
	StateCreated State = iota
	StateRunning
	StateHalted
	StateFaulted
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

// ChainContext is what a runtime needs to know about the chain it runs on.
type ChainContext interface {
	Nexus() string
	Name() string
	Address() database.Address
	IsRoot() bool
	HasGenesis() bool
	GenesisAddress() database.Address
}

// Config represents everything a runtime needs to execute a script.
type Config struct {
	TxIndex      int
	Script       []byte
	Offset       int
	Chain        ChainContext
	Height       uint64
	Validator    database.Address
	Time         uint64
	Transaction  *database.Transaction
	ChangeSet    *changeset.ChangeSet
	Oracle       oracle.Reader
	Task         *task.Task
	DelayPayment bool
	ReadOnly     bool
	Parent       *Runtime
	Registry     *contract.Registry
	MinimumFee   *big.Int
	MaxGas       uint64
	EvHandler    EventHandler
}

// Result is the outcome of an execution.
type Result struct {
	State   State
	Code    uint32
	Message string
	GasUsed uint64
	Value   vm.Value
	Events  []database.Event
}

// Failed reports if the execution did not halt normally.
func (r Result) Failed() bool {
	return r.State != StateHalted
}

// TxResult converts the result into the form stored in a block.
func (r Result) TxResult() database.TxResult {
	tr := database.TxResult{
		Code:    r.Code,
		Message: r.Message,
		GasUsed: r.GasUsed,
		Result:  r.Value.Encode(),
	}
	if r.Code != CodeOK {
		tr.Codespace = Codespace
	}
	return tr
}

// =============================================================================

// frame is one level of the call stack.
type frame struct {
	name    string
	address database.Address
	script  vm.Script
	pc      int
	stack   []vm.Value
}

// allowance is the gas escrow recorded by the gas contract.
type allowance struct {
	payer database.Address
	price *big.Int
	limit uint64
}

// Runtime executes one script. It is not safe for concurrent use.
type Runtime struct {
	cfg        Config
	state      State
	frames     []*frame
	events     []database.Event
	usedGas    uint64
	maxGas     uint64
	steps      int
	gas        *allowance
	paid       bool
	checkpoint int
	version    uint64
	seed       *big.Int
	guards     map[string]bool
	signers    []database.Address
	loaded     bool
}

// New constructs a runtime ready to execute the configured script.
func New(cfg Config) (*Runtime, error) {
	if cfg.Chain == nil {
		return nil, errors.New("runtime: chain context is required")
	}
	if cfg.ChangeSet == nil {
		return nil, errors.New("runtime: change set is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("runtime: registry is required")
	}

	if cfg.MaxGas == 0 {
		cfg.MaxGas = DefaultMaxGas
	}
	if cfg.MinimumFee == nil {
		cfg.MinimumFee = new(big.Int)
	}
	if cfg.EvHandler == nil {
		cfg.EvHandler = func(v string, args ...any) {}
	}

	rt := Runtime{
		cfg:        cfg,
		state:      StateCreated,
		maxGas:     cfg.MaxGas,
		checkpoint: cfg.ChangeSet.Checkpoint(),
		version:    cfg.ChangeSet.Version(),
	}

	if cfg.Parent == nil {
		rt.guards = make(map[string]bool)
	}

	return &rt, nil
}

// Execute runs the script to completion. A fault at the top level is
// absorbed: the changes are discarded, the result carries a single
// ExecutionFailure event and the payer is still charged for the gas used.
// Nested and delayed-payment runtimes return the fault instead. Fatal
// conditions are always returned as errors.
func (rt *Runtime) Execute() (Result, error) {
	if rt.state != StateCreated {
		return Result{}, fatal(ErrState)
	}
	rt.state = StateRunning

	script, err := vm.DecodeScript(rt.cfg.Script)
	if err != nil {
		return rt.finish(vm.None(), &Fault{Code: CodeFault, Message: "invalid script", Err: err})
	}

	entry := frame{
		name:   EntryContext,
		script: script,
		pc:     rt.cfg.Offset,
	}

	return rt.finish(rt.start(&entry))
}

// start pushes the entry frame and runs it.
func (rt *Runtime) start(entry *frame) (vm.Value, error) {
	rt.state = StateRunning
	rt.frames = append(rt.frames, entry)

	value, err := rt.run(entry)
	if err != nil {
		return vm.None(), err
	}

	if err := rt.popFrame(entry); err != nil {
		return vm.None(), err
	}

	return value, rt.checkPayment()
}

// finish turns the outcome of the entry frame into a result.
func (rt *Runtime) finish(value vm.Value, err error) (Result, error) {
	if rt.cfg.ReadOnly && rt.cfg.ChangeSet.Version() != rt.version {
		rt.state = StateFaulted
		rt.cfg.EvHandler("runtime: execute: tx[%d]: read-only execution changed state", rt.cfg.TxIndex)
		return rt.result(vm.None(), CodeFault, ErrReadOnlyMutation.Error()), fatal(ErrReadOnlyMutation)
	}

	if err == nil {
		rt.state = StateHalted
		return rt.result(value, CodeOK, ""), nil
	}

	rt.state = StateFaulted
	rt.frames = nil

	if IsFatal(err) {
		rt.cfg.EvHandler("runtime: execute: tx[%d]: fatal: %s", rt.cfg.TxIndex, err)
		return rt.result(vm.None(), CodeFault, err.Error()), err
	}

	if terr := rt.cfg.ChangeSet.Truncate(rt.checkpoint); terr != nil {
		return rt.result(vm.None(), CodeFault, err.Error()), fatal(terr)
	}
	rt.events = nil

	code := CodeFault
	var f *Fault
	if errors.As(err, &f) {
		code = f.Code
	}

	if rt.cfg.Parent != nil || rt.cfg.DelayPayment || rt.cfg.ReadOnly {
		return rt.result(vm.None(), code, err.Error()), err
	}

	return rt.absorb(code, err)
}

// absorb records the fault and charges the payer through the gas contract.
// When the settlement faults as well it is rolled back and no fee is taken.
func (rt *Runtime) absorb(code uint32, cause error) (Result, error) {
	rt.cfg.EvHandler("runtime: execute: tx[%d]: fault: used[%d]: %s", rt.cfg.TxIndex, rt.usedGas, cause)

	if err := rt.settle(); err != nil {
		if IsFatal(err) {
			return rt.result(vm.None(), code, cause.Error()), err
		}

		rt.cfg.EvHandler("runtime: execute: tx[%d]: settlement failed, no fee charged: %s", rt.cfg.TxIndex, err)
		if terr := rt.cfg.ChangeSet.Truncate(rt.checkpoint); terr != nil {
			return rt.result(vm.None(), code, cause.Error()), fatal(terr)
		}
	}

	var sender database.Address
	if rt.cfg.Transaction != nil {
		sender = rt.cfg.Transaction.Sender
	}

	rt.events = []database.Event{{
		Kind:    database.EventExecutionFailure,
		Address: sender,
		Data:    []byte(cause.Error()),
	}}

	return rt.result(vm.None(), code, cause.Error()), nil
}

func (rt *Runtime) result(value vm.Value, code uint32, message string) Result {
	events := make([]database.Event, len(rt.events))
	copy(events, rt.events)

	return Result{
		State:   rt.state,
		Code:    code,
		Message: message,
		GasUsed: rt.usedGas,
		Value:   value,
		Events:  events,
	}
}

// =============================================================================

// Storage returns the pending state the runtime writes to.
func (rt *Runtime) Storage() contract.Storage {
	return rt.cfg.ChangeSet
}

// Oracle returns the oracle for the block being built.
func (rt *Runtime) Oracle() oracle.Reader {
	return rt.cfg.Oracle
}

// ChainName returns the name of the chain.
func (rt *Runtime) ChainName() string {
	return rt.cfg.Chain.Name()
}

// ChainAddress returns the address of the chain.
func (rt *Runtime) ChainAddress() database.Address {
	return rt.cfg.Chain.Address()
}

// IsRootChain reports if the runtime runs on the root chain.
func (rt *Runtime) IsRootChain() bool {
	return rt.cfg.Chain.IsRoot()
}

// HasGenesis reports if the chain committed its genesis block.
func (rt *Runtime) HasGenesis() bool {
	return rt.cfg.Chain.HasGenesis()
}

// GenesisAddress returns the address that owns the genesis block.
func (rt *Runtime) GenesisAddress() database.Address {
	return rt.cfg.Chain.GenesisAddress()
}

// Height returns the height of the block being built.
func (rt *Runtime) Height() uint64 {
	return rt.cfg.Height
}

// Time returns the timestamp of the block being built.
func (rt *Runtime) Time() uint64 {
	return rt.cfg.Time
}

// Validator returns the validator producing the block.
func (rt *Runtime) Validator() database.Address {
	return rt.cfg.Validator
}

// Transaction returns the transaction being executed, nil for system work.
func (rt *Runtime) Transaction() *database.Transaction {
	return rt.cfg.Transaction
}

// IsReadOnly reports if the runtime must not change state.
func (rt *Runtime) IsReadOnly() bool {
	return rt.cfg.ReadOnly
}

// State returns the current state of the runtime.
func (rt *Runtime) State() State {
	return rt.state
}

// Events returns the events emitted so far.
func (rt *Runtime) Events() []database.Event {
	return rt.events
}

// ActiveContract returns the name of the context on top of the call stack.
func (rt *Runtime) ActiveContract() string {
	if f := rt.top(); f != nil {
		return f.name
	}
	return ""
}

// MinimumFee returns the lowest gas price the chain accepts.
func (rt *Runtime) MinimumFee() *big.Int {
	return new(big.Int).Set(rt.cfg.MinimumFee)
}

// GovernanceValue returns the named chain parameter.
func (rt *Runtime) GovernanceValue(name string) (*big.Int, error) {
	v, err := native.GovernanceValue(rt.cfg.ChangeSet, name)
	if err != nil {
		return nil, asFault(err, "governance value %s", name)
	}
	return v, nil
}

// Notify emits an event on behalf of the active contract. Kinds reserved
// for other contracts fault.
func (rt *Runtime) Notify(kind database.EventKind, addr database.Address, data []byte) error {
	active := rt.ActiveContract()
	if !kind.AllowedFrom(active) {
		return faultf("event %s not allowed from %s", kind, active)
	}

	rt.emit(database.Event{Kind: kind, Address: addr, Contract: active, Data: data})
	return nil
}

// emit records an event without checking who emits it.
func (rt *Runtime) emit(e database.Event) {
	rt.events = append(rt.events, e)
}

func (rt *Runtime) top() *frame {
	if len(rt.frames) == 0 {
		return nil
	}
	return rt.frames[len(rt.frames)-1]
}

func (rt *Runtime) popFrame(f *frame) error {
	if rt.top() != f {
		return fatal(fmt.Errorf("%w: expected %s", ErrFrameMismatch, f.name))
	}
	rt.frames = rt.frames[:len(rt.frames)-1]
	return nil
}

// root returns the outermost runtime.
func (rt *Runtime) root() *Runtime {
	r := rt
	for r.cfg.Parent != nil {
		r = r.cfg.Parent
	}
	return r
}
