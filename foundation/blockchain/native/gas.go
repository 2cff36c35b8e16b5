package native

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// escrow is the fuel set aside by AllowGas until SpendGas settles it.
type escrow struct {
	Target database.Address `json:"target"`
	Price  *big.Int         `json:"price"`
	Limit  uint64           `json:"limit"`
}

var (
	gasBalances  = contract.NewMap[*big.Int](GasName, "balances")
	gasEscrows   = contract.NewMap[escrow](GasName, "escrows")
	gasRewards   = contract.NewValue[*big.Int](GasName, "rewards")
	gasSupply    = contract.NewValue[*big.Int](GasName, "supply")
	gasInflation = contract.NewValue[uint64](GasName, "inflation")
)

func newGas() *contract.Native {
	methods := []contract.Method{
		{
			Name:       vm.AllowGas,
			Parameters: []vm.Parameter{param("from", vm.TypeAddress), param("target", vm.TypeAddress), param("price", vm.TypeNumber), param("limit", vm.TypeNumber)},
			Handler:    allowGas,
		},
		{
			Name:       vm.SpendGas,
			Parameters: []vm.Parameter{param("from", vm.TypeAddress)},
			Handler:    spendGas,
		},
		{
			Name:       "BalanceOf",
			Parameters: []vm.Parameter{param("address", vm.TypeAddress)},
			Returns:    vm.TypeNumber,
			Gas:        5,
			Handler:    balanceOf,
		},
		{
			Name:       "Transfer",
			Parameters: []vm.Parameter{param("from", vm.TypeAddress), param("to", vm.TypeAddress), param("amount", vm.TypeNumber)},
			Gas:        20,
			Handler:    transfer,
		},
		{
			Name:       "Mint",
			Parameters: []vm.Parameter{param("to", vm.TypeAddress), param("amount", vm.TypeNumber)},
			Gas:        20,
			Handler:    mint,
		},
		{
			Name:    "ApplyInflation",
			Gas:     50,
			Handler: applyInflation,
		},
		{
			Name:    "Rewards",
			Returns: vm.TypeNumber,
			Gas:     5,
			Handler: rewards,
		},
	}

	return contract.NewNative(GasName, methods, gasBalances, gasEscrows, gasRewards, gasSupply, gasInflation)
}

func allowGas(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	from, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	target, err := addressArg(args, 1)
	if err != nil {
		return vm.None(), err
	}
	price, err := numberArg(args, 2)
	if err != nil {
		return vm.None(), err
	}
	limit, err := args[3].AsUint64()
	if err != nil {
		return vm.None(), err
	}

	if err := requireWitness(rt, from); err != nil {
		return vm.None(), err
	}

	if price.Cmp(rt.MinimumFee()) < 0 {
		return vm.None(), fmt.Errorf("gas price %s below minimum %s", price, rt.MinimumFee())
	}
	if limit == 0 {
		return vm.None(), errors.New("gas limit must be greater than zero")
	}

	st := rt.Storage()
	if has, err := gasEscrows.Has(st, from.String()); err != nil || has {
		if err != nil {
			return vm.None(), err
		}
		return vm.None(), fmt.Errorf("gas already allowed for %s", from)
	}

	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(limit))
	if err := Debit(st, from, amount); err != nil {
		return vm.None(), err
	}

	if err := gasEscrows.Set(st, from.String(), escrow{Target: target, Price: price, Limit: limit}); err != nil {
		return vm.None(), err
	}

	if err := rt.SetGasAllowance(from, price, limit); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventGasEscrow, from, amount.Bytes())
}

func spendGas(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	from, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	e, found, err := gasEscrows.Get(st, from.String())
	if err != nil {
		return vm.None(), err
	}
	if !found {
		return vm.None(), fmt.Errorf("no gas allowed for %s", from)
	}

	used := rt.UsedGas()
	if used > e.Limit {
		used = e.Limit
	}

	fee := new(big.Int).Mul(e.Price, new(big.Int).SetUint64(used))
	escrowed := new(big.Int).Mul(e.Price, new(big.Int).SetUint64(e.Limit))
	refund := new(big.Int).Sub(escrowed, fee)

	if err := Credit(st, from, refund); err != nil {
		return vm.None(), err
	}
	if err := addRewards(st, fee); err != nil {
		return vm.None(), err
	}
	gasEscrows.Delete(st, from.String())

	if err := rt.SetGasAllowance(from, e.Price, 0); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventGasPayment, rt.Validator(), fee.Bytes())
}

func balanceOf(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	addr, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}

	bal, err := Balance(rt.Storage(), addr)
	if err != nil {
		return vm.None(), err
	}
	return vm.Number(bal), nil
}

func transfer(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	from, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	to, err := addressArg(args, 1)
	if err != nil {
		return vm.None(), err
	}
	amount, err := numberArg(args, 2)
	if err != nil {
		return vm.None(), err
	}

	if amount.Sign() <= 0 {
		return vm.None(), errors.New("transfer amount must be positive")
	}
	if from == to {
		return vm.None(), errors.New("cannot transfer to self")
	}
	if err := requireWitness(rt, from); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	if err := Debit(st, from, amount); err != nil {
		return vm.None(), err
	}
	if err := Credit(st, to, amount); err != nil {
		return vm.None(), err
	}

	if err := rt.Notify(database.EventTokenSend, from, amount.Bytes()); err != nil {
		return vm.None(), err
	}
	return vm.None(), rt.Notify(database.EventTokenReceive, to, amount.Bytes())
}

func mint(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	to, err := addressArg(args, 0)
	if err != nil {
		return vm.None(), err
	}
	amount, err := numberArg(args, 1)
	if err != nil {
		return vm.None(), err
	}

	if amount.Sign() <= 0 {
		return vm.None(), errors.New("mint amount must be positive")
	}
	if err := requireGenesisAuthority(rt); err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	if err := Credit(st, to, amount); err != nil {
		return vm.None(), err
	}
	if err := addSupply(st, amount); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventTokenMint, to, amount.Bytes())
}

func applyInflation(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	if !rt.IsRootChain() {
		return vm.None(), fmt.Errorf("%w: inflation only runs on the root chain", ErrNotAllowed)
	}

	period, err := rt.GovernanceValue(InflationPeriod)
	if err != nil {
		return vm.None(), err
	}
	amount, err := rt.GovernanceValue(InflationAmount)
	if err != nil {
		return vm.None(), err
	}

	st := rt.Storage()
	due, err := InflationDue(st, rt.Time(), period.Uint64())
	if err != nil {
		return vm.None(), err
	}
	if !due {
		return vm.None(), errors.New("inflation not due")
	}

	if err := addRewards(st, amount); err != nil {
		return vm.None(), err
	}
	if err := addSupply(st, amount); err != nil {
		return vm.None(), err
	}
	if err := gasInflation.Set(st, rt.Time()); err != nil {
		return vm.None(), err
	}

	return vm.None(), rt.Notify(database.EventInflation, rt.ChainAddress(), amount.Bytes())
}

func rewards(rt contract.Runtime, args []vm.Value) (vm.Value, error) {
	r, _, err := gasRewards.Get(rt.Storage())
	if err != nil {
		return vm.None(), err
	}
	return vm.Number(r), nil
}

// =============================================================================

// Balance returns the fuel balance of the address.
func Balance(st contract.Storage, addr database.Address) (*big.Int, error) {
	bal, found, err := gasBalances.Get(st, addr.String())
	if err != nil {
		return nil, err
	}
	if !found || bal == nil {
		return new(big.Int), nil
	}
	return bal, nil
}

// Credit adds the amount to the balance of the address.
func Credit(st contract.Storage, addr database.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}

	bal, err := Balance(st, addr)
	if err != nil {
		return err
	}
	return gasBalances.Set(st, addr.String(), bal.Add(bal, amount))
}

// Debit removes the amount from the balance of the address.
func Debit(st contract.Storage, addr database.Address, amount *big.Int) error {
	bal, err := Balance(st, addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficient, addr, bal, amount)
	}
	return gasBalances.Set(st, addr.String(), bal.Sub(bal, amount))
}

// TakeRewards returns the accumulated block rewards and empties the pool.
func TakeRewards(st contract.Storage) (*big.Int, error) {
	r, found, err := gasRewards.Get(st)
	if err != nil {
		return nil, err
	}
	if !found || r == nil || r.Sign() == 0 {
		return new(big.Int), nil
	}

	gasRewards.Clear(st)
	return r, nil
}

// InflationDue reports if a full period passed since the last inflation.
// The first inflation is due right away.
func InflationDue(st contract.Storage, now uint64, period uint64) (bool, error) {
	last, found, err := gasInflation.Get(st)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return now >= last+period, nil
}

func addRewards(st contract.Storage, amount *big.Int) error {
	r, found, err := gasRewards.Get(st)
	if err != nil {
		return err
	}
	if !found || r == nil {
		r = new(big.Int)
	}
	return gasRewards.Set(st, r.Add(r, amount))
}

func addSupply(st contract.Storage, amount *big.Int) error {
	s, found, err := gasSupply.Get(st)
	if err != nil {
		return err
	}
	if !found || s == nil {
		s = new(big.Int)
	}
	return gasSupply.Set(st, s.Add(s, amount))
}
