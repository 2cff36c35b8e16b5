package runtime

import (
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// ConsumeGas charges the amount to the execution. Every charge in the
// runtime goes through here. Work done on behalf of the gas contract is
// free, a nested runtime charges its parent, and the limit is only enforced
// once the chain has a genesis block and payment is not delayed.
func (rt *Runtime) ConsumeGas(amount uint64) error {
	if amount == 0 || rt.ActiveContract() == vm.GasContract {
		return nil
	}

	if p := rt.cfg.Parent; p != nil {
		if p.ActiveContract() == vm.GasContract {
			return nil
		}
		if err := p.ConsumeGas(amount); err != nil {
			return err
		}
		rt.usedGas += amount
		return nil
	}

	rt.usedGas += amount

	if !rt.enforcesGas() {
		return nil
	}

	if rt.usedGas > rt.maxGas {
		return &Fault{
			Code:    CodeOutOfGas,
			Message: fmt.Sprintf("out of gas: used %d, limit %d", rt.usedGas, rt.maxGas),
		}
	}

	return nil
}

// UsedGas returns the gas consumed so far.
func (rt *Runtime) UsedGas() uint64 {
	return rt.root().usedGas
}

// MaxGas returns the current gas limit.
func (rt *Runtime) MaxGas() uint64 {
	return rt.root().maxGas
}

// SetGasAllowance records the escrow made by the gas contract and raises
// the gas limit to it. A zero limit marks the escrow as settled.
func (rt *Runtime) SetGasAllowance(payer database.Address, price *big.Int, limit uint64) error {
	if rt.ActiveContract() != vm.GasContract {
		return faultf("gas allowance can only be set by the %s contract", vm.GasContract)
	}

	root := rt.root()

	if limit == 0 {
		if root.gas == nil || root.gas.payer != payer {
			return faultf("no gas allowance for %s", payer)
		}
		root.paid = true
		return nil
	}

	if root.gas != nil && !root.paid {
		return faultf("gas allowance already set by %s", root.gas.payer)
	}

	root.gas = &allowance{payer: payer, price: new(big.Int).Set(price), limit: limit}
	root.paid = false
	root.maxGas = limit

	return nil
}

// enforcesGas reports if the execution must pay for itself.
func (rt *Runtime) enforcesGas() bool {
	return rt.cfg.Parent == nil && !rt.cfg.DelayPayment && !rt.cfg.ReadOnly && rt.cfg.Chain.HasGenesis()
}

// checkPayment faults a top level execution that halted without settling
// its gas.
func (rt *Runtime) checkPayment() error {
	if !rt.enforcesGas() || rt.cfg.Transaction == nil || rt.paid {
		return nil
	}

	if rt.gas == nil {
		return &Fault{Code: CodeUnpaid, Message: "transaction did not allow gas"}
	}
	return &Fault{Code: CodeUnpaid, Message: fmt.Sprintf("gas allowed by %s was not spent", rt.gas.payer)}
}

// settle charges the recorded allowance after a fault. The state changes of
// the execution are already discarded, so the escrow is made again and then
// spent for the gas used.
func (rt *Runtime) settle() error {
	if rt.gas == nil || rt.paid {
		return nil
	}

	a := *rt.gas
	rt.gas = nil

	ctx := frame{name: vm.GasContract, address: database.SystemAddress(vm.GasContract)}
	rt.frames = []*frame{&ctx}
	defer func() { rt.frames = nil }()

	args := []vm.Value{vm.Address(a.payer), vm.Address(rt.cfg.Chain.Address()), vm.Number(a.price), vm.Uint(a.limit)}
	if _, err := rt.CallContract(vm.GasContract, vm.AllowGas, args...); err != nil {
		return err
	}

	if _, err := rt.CallContract(vm.GasContract, vm.SpendGas, vm.Address(a.payer)); err != nil {
		return err
	}

	return nil
}
