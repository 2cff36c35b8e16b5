package runtime

import (
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// maxDelegation bounds how many owners are followed for a system address.
const maxDelegation = 8

// IsWitness reports if the address authorized the current execution.
//
// The chain address never witnesses. The owner of the task being run
// witnesses for its own task. A system address witnesses while its
// contract is on the call stack, when it is an organization whose threshold
// of members signed the transaction, or when the owner of the deployed
// contract witnesses. A user address with an account script is decided by
// the OnWitness trigger of that script and otherwise by the signatures of
// the transaction.
func (rt *Runtime) IsWitness(addr database.Address) (bool, error) {
	return rt.isWitness(addr, 0)
}

func (rt *Runtime) isWitness(addr database.Address, depth int) (bool, error) {
	if addr.IsNull() || addr == rt.cfg.Chain.Address() {
		return false, nil
	}

	if t := rt.root().cfg.Task; t != nil && t.Owner == addr {
		return true, nil
	}

	switch {
	case addr.IsSystem():
		return rt.isSystemWitness(addr, depth)

	case addr.IsUser():
		c, err := native.AccountScript(rt.cfg.ChangeSet, addr)
		switch {
		case err == nil:
			result, value, err := rt.InvokeTrigger(c, contract.TriggerOnWitness, vm.Address(addr))
			if err != nil {
				return false, err
			}
			switch result {
			case TriggerSuccess:
				ok, err := value.AsBool()
				return err == nil && ok, nil
			case TriggerFailure:
				return false, nil
			}

		case !errors.Is(err, native.ErrNoScript):
			return false, asFault(err, "loading script of %s", addr)
		}

		return rt.isSigner(addr)
	}

	return false, nil
}

func (rt *Runtime) isSystemWitness(addr database.Address, depth int) (bool, error) {
	for r := rt; r != nil; r = r.cfg.Parent {
		for _, f := range r.frames {
			if f.address == addr {
				return true, nil
			}
		}
	}

	org, err := native.OrganizationOf(rt.cfg.ChangeSet, addr)
	switch {
	case err == nil:
		signed := 0
		for _, m := range org.Members {
			ok, err := rt.isSigner(m)
			if err != nil {
				return false, err
			}
			if ok {
				signed++
			}
		}
		return signed >= org.Threshold, nil

	case !errors.Is(err, native.ErrNoOrganization):
		return false, asFault(err, "loading organization %s", addr)
	}

	if depth >= maxDelegation {
		return false, nil
	}

	c, err := rt.cfg.Registry.ResolveAddress(rt.cfg.ChangeSet, addr)
	if err != nil {
		if errors.Is(err, contract.ErrContractNotFound) {
			return false, nil
		}
		return false, asFault(err, "resolving %s", addr)
	}

	custom, ok := c.(*contract.Custom)
	if !ok || custom.Owner().IsNull() || custom.Owner() == addr {
		return false, nil
	}

	return rt.isWitness(custom.Owner(), depth+1)
}

// isSigner reports if the transaction carries a signature by the address.
// The signers are recovered once per root runtime.
func (rt *Runtime) isSigner(addr database.Address) (bool, error) {
	root := rt.root()
	if root.cfg.Transaction == nil {
		return false, nil
	}

	if !root.loaded {
		signers, err := root.cfg.Transaction.Signers()
		if err != nil {
			return false, asFault(err, "recovering signers")
		}
		root.signers = signers
		root.loaded = true
	}

	for _, s := range root.signers {
		if s == addr {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================

// TriggerResult is the outcome of invoking a trigger.
type TriggerResult byte

// Set of trigger results.
const (
	TriggerMissing TriggerResult = iota
	TriggerSuccess
	TriggerFailure
)

// String implements the fmt.Stringer interface.
func (tr TriggerResult) String() string {
	switch tr {
	case TriggerSuccess:
		return "success"
	case TriggerFailure:
		return "failure"
	}
	return "missing"
}

// InvokeTrigger runs the trigger method of a custom contract in a nested
// runtime that shares this runtime's change set and charges this runtime's
// gas. A trigger that faults has its changes discarded and reports
// TriggerFailure. Re-entering a trigger that is already running is fatal.
func (rt *Runtime) InvokeTrigger(c *contract.Custom, trigger string, args ...vm.Value) (TriggerResult, vm.Value, error) {
	m, exists := c.Trigger(trigger)
	if !exists {
		return TriggerMissing, vm.None(), nil
	}

	guard := c.Address().String() + ":" + trigger
	root := rt.root()
	if root.guards[guard] {
		return TriggerFailure, vm.None(), fatal(fmt.Errorf("%w: %s", ErrTriggerLoop, guard))
	}
	root.guards[guard] = true
	defer delete(root.guards, guard)

	cfg := rt.cfg
	cfg.Parent = rt
	cfg.Script = nil
	cfg.Offset = m.Offset

	child, err := New(cfg)
	if err != nil {
		return TriggerFailure, vm.None(), fatal(err)
	}

	entry := frame{
		name:    c.Name(),
		address: c.Address(),
		script:  c.Script(),
		pc:      m.Offset,
		stack:   append([]vm.Value(nil), args...),
	}

	res, err := child.finish(child.start(&entry))
	if err != nil {
		if IsFatal(err) {
			return TriggerFailure, vm.None(), err
		}
		rt.cfg.EvHandler("runtime: trigger: %s: failed: %s", guard, err)
		return TriggerFailure, vm.None(), nil
	}

	rt.events = append(rt.events, res.Events...)
	return TriggerSuccess, res.Value, nil
}
