package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/oracle"
	"github.com/nexuschain/chaincore/foundation/blockchain/runtime"
	"github.com/nexuschain/chaincore/foundation/blockchain/task"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// InflationMethod is the gas contract entry point the chain calls when
// inflation is due.
const InflationMethod = "ApplyInflation"

// BeginBlock opens a new block on top of the last committed one. The
// validator is resolved from the proposer identity, first against the
// validator contract and then against the initial validators consensus
// knows about before genesis. The system transactions executed while
// opening the block are returned for inclusion.
func (c *Chain) BeginBlock(h Header, initialValidators map[string]database.Address) ([]database.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.Halted(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	if c.state != StateIdle {
		return nil, ErrBlockOpen
	}

	c.evHandler("chain: BeginBlock: %s: height[%d] proposer[%s]", c.name, h.Height, h.Proposer)

	view := changeset.New(c.store)

	if err := c.checkHeader(view, h.Height, h.PreviousHash, h.Timestamp, h.Protocol); err != nil {
		return nil, NewBlockError(h.Height, err)
	}

	validator, err := c.resolveValidator(view, h.Proposer, initialValidators)
	if err != nil {
		return nil, NewBlockError(h.Height, err)
	}

	minFee, err := c.blockFee(view)
	if err != nil {
		return nil, err
	}

	block := database.NewBlock(h.Height, c.address, h.Timestamp, h.PreviousHash, h.Protocol, validator, h.Payload)
	bo := oracle.NewBlockOracle(nil, c.fetcher, c.oracleCache)

	system, err := c.openBlock(block, bo, minFee)
	if err != nil {
		return nil, err
	}

	out := make([]database.Transaction, len(system))
	copy(out, system)

	return out, nil
}

// CheckTx performs the admission checks for a transaction against the
// current time. It is used by the mempool before a transaction is accepted.
func (c *Chain) CheckTx(tx database.Transaction) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if resp := c.checkTx(tx, uint64(time.Now().Unix())); !resp.IsOK() {
		return resp
	}

	included, err := c.isIncluded(tx.Hash())
	if err != nil {
		return reject(CodeInternal, "%s", err)
	}
	if included {
		return reject(CodeDuplicate, "transaction %s already included", tx.Hash())
	}

	return Response{Code: CodeOK}
}

// DeliverTx executes a transaction in the open block. Failures are
// reported in the response; only the effects of the transaction itself are
// discarded.
func (c *Chain) DeliverTx(tx database.Transaction) Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return reject(CodeNoBlock, "%s", ErrNoBlock)
	}

	return c.deliverTx(c.open, tx)
}

// EndBlock closes the open block and returns the block level events.
func (c *Chain) EndBlock() ([]database.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return nil, ErrNoBlock
	}

	if err := c.closeBlock(c.open); err != nil {
		c.discard()
		return nil, err
	}

	events := make([]database.Event, len(c.open.block.BlockEvents))
	copy(events, c.open.block.BlockEvents)

	return events, nil
}

// Commit writes the closed block and every change it made to storage in
// one atomic step.
func (c *Chain) Commit() (*database.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.Halted(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	if c.state != StateClosing {
		return nil, ErrNoBlock
	}

	return c.commit(c.open)
}

// Discard drops the open block. Nothing it did reaches storage.
func (c *Chain) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		c.evHandler("chain: Discard: %s: height[%d]", c.name, c.open.block.Height)
	}
	c.discard()
}

// =============================================================================

// checkHeader validates a new block position against the last committed
// block.
func (c *Chain) checkHeader(view *changeset.ChangeSet, height uint64, previous database.Hash, timestamp uint64, protocol uint32) error {
	var lastHeight, lastTime uint64
	var lastHash database.Hash
	if c.last != nil {
		lastHeight = c.last.Height
		lastTime = c.last.Timestamp
		lastHash = c.last.Hash()
	}

	if height != lastHeight+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrHeightMismatch, height, lastHeight+1)
	}

	if previous != lastHash {
		return fmt.Errorf("%w: got %s, exp %s", ErrPreviousHashMismatch, previous, lastHash)
	}

	if timestamp < lastTime {
		return fmt.Errorf("%w: got %d, last %d", ErrTimestamp, timestamp, lastTime)
	}

	minimum, err := native.GovernanceValueOr(view, native.ProtocolVersion, DefaultProtocol)
	if err != nil {
		return err
	}
	if protocol == 0 || uint64(protocol) < minimum || protocol > c.maxProtocol {
		return fmt.Errorf("%w: got %d, supported %d..%d", ErrUnknownProtocol, protocol, minimum, c.maxProtocol)
	}

	return nil
}

// resolveValidator maps the consensus identity of the proposer to an
// address.
func (c *Chain) resolveValidator(view *changeset.ChangeSet, proposer string, initial map[string]database.Address) (database.Address, error) {
	validators, err := native.Validators(view)
	if err != nil {
		return database.NullAddress, err
	}

	for _, v := range validators {
		if v.Consensus == proposer {
			return v.Address, nil
		}
	}

	if addr, exists := initial[proposer]; exists && addr.IsUser() {
		return addr, nil
	}

	if addr, err := database.ToAddress(proposer); err == nil && addr.IsUser() {
		return addr, nil
	}

	return database.NullAddress, fmt.Errorf("%w: unknown proposer %q", ErrInvalidValidator, proposer)
}

// blockFee returns the minimum gas price for the next block.
func (c *Chain) blockFee(view *changeset.ChangeSet) (*big.Int, error) {
	fee, err := native.GovernanceValue(view, native.GasMinimumFee)
	if err != nil {
		if errors.Is(err, native.ErrValueNotFound) {
			return new(big.Int).Set(c.minimumFee), nil
		}
		return nil, err
	}
	return fee, nil
}

// openBlock binds a fresh change set to the block and runs the system
// transactions.
func (c *Chain) openBlock(block *database.Block, bo *oracle.BlockOracle, minFee *big.Int) ([]database.Transaction, error) {
	start := time.Now()

	c.open = &openBlock{
		block:  block,
		cs:     changeset.New(c.store),
		oracle: bo,
		txs:    make(map[database.Hash]database.Transaction),
		minFee: minFee,
	}
	c.state = StateOpen

	if err := c.runInflation(c.open); err != nil {
		c.discard()
		return nil, err
	}

	if err := c.runTasks(c.open); err != nil {
		c.discard()
		return nil, err
	}

	metrics.ChainStageHistogram.WithLabelValues(c.name, "begin").Observe(time.Since(start).Seconds())

	return c.open.system, nil
}

// runInflation executes the inflation entry point on the root chain when a
// full period passed since the last run.
func (c *Chain) runInflation(ob *openBlock) error {
	due, err := c.inflationDue(ob.cs, ob.block.Timestamp)
	if err != nil || !due {
		return err
	}

	script := vm.NewBuilder().CallContract(native.GasName, InflationMethod).Bytes()
	payload := []byte("inflation:" + strconv.FormatUint(ob.block.Height, 10))
	tx := database.NewTransaction(c.nexus, c.name, script, c.address, ob.block.Timestamp, payload)

	checkpoint := ob.cs.Checkpoint()
	res, err := c.execute(ob, tx, func(cfg *runtime.Config) {
		cfg.DelayPayment = true
	})
	if err != nil {
		if runtime.IsFatal(err) {
			return err
		}
		c.evHandler("chain: BeginBlock: %s: inflation failed: %s", c.name, err)
		return ob.cs.Truncate(checkpoint)
	}

	c.include(ob, tx, res)
	return nil
}

// inflationDue reports if a block at the timestamp runs the inflation.
func (c *Chain) inflationDue(view *changeset.ChangeSet, timestamp uint64) (bool, error) {
	if !c.root || !c.HasGenesis() {
		return false, nil
	}

	period, err := native.GovernanceValueOr(view, native.InflationPeriod, 0)
	if err != nil {
		return false, err
	}
	amount, err := native.GovernanceValueOr(view, native.InflationAmount, 0)
	if err != nil {
		return false, err
	}
	if period == 0 || amount == 0 {
		return false, nil
	}

	return native.InflationDue(view, timestamp, period)
}

// runTasks executes the tasks due in this block. A task that fails leaves
// no trace in the block and is removed.
func (c *Chain) runTasks(ob *openBlock) error {
	store := task.NewStore(ob.cs)
	sched := task.NewScheduler(store, task.EventHandler(c.evHandler))

	var fatalErr error
	run := func(t task.Task) (bool, error) {
		if fatalErr != nil {
			return false, fatalErr
		}

		tx := c.taskTransaction(t, ob.block.Height, ob.block.Timestamp, ob.minFee)

		checkpoint := ob.cs.Checkpoint()
		res, err := c.execute(ob, tx, func(cfg *runtime.Config) {
			cfg.Task = &t
		})
		if err != nil {
			if runtime.IsFatal(err) {
				fatalErr = err
			}
			if terr := ob.cs.Truncate(checkpoint); terr != nil {
				fatalErr = terr
			}
			metrics.RuntimeTaskCounter.WithLabelValues(c.name, "crashed").Inc()
			return false, err
		}

		if res.Failed() {
			if err := ob.cs.Truncate(checkpoint); err != nil {
				fatalErr = err
				return false, err
			}
			metrics.RuntimeTaskCounter.WithLabelValues(c.name, "crashed").Inc()
			return false, fmt.Errorf("task %d: code %d: %s", t.ID, res.Code, res.Message)
		}

		c.include(ob, tx, res)

		var halt bool
		if !res.Value.IsNone() {
			if halt, err = res.Value.AsBool(); err != nil {
				halt = false
			}
		}

		status := "continue"
		if halt {
			status = "halted"
		}
		metrics.RuntimeTaskCounter.WithLabelValues(c.name, status).Inc()

		return halt, nil
	}

	if _, err := sched.Process(ob.block.Height, ob.block.Timestamp, run); err != nil {
		return err
	}

	return fatalErr
}

// taskTransaction builds the system transaction that runs a task on behalf
// of its owner.
func (c *Chain) taskTransaction(t task.Task, height uint64, timestamp uint64, minFee *big.Int) database.Transaction {
	script := vm.NewBuilder().
		AllowGas(t.Owner, c.address, minFee, t.GasLimit).
		CallContract(t.Contract, t.Method).
		SpendGas(t.Owner).
		Bytes()

	payload := fmt.Sprintf("task:%d:%d", t.ID, height)

	return database.NewTransaction(c.nexus, c.name, script, c.address, timestamp, []byte(payload))
}

// checkTx performs the stateless admission checks.
func (c *Chain) checkTx(tx database.Transaction, now uint64) Response {
	if err := tx.Validate(c.nexus, c.name, now); err != nil {
		switch {
		case errors.Is(err, database.ErrWrongNexus):
			return reject(CodeWrongNexus, "%s", err)
		case errors.Is(err, database.ErrWrongChain):
			return reject(CodeWrongChain, "%s", err)
		case errors.Is(err, database.ErrExpired):
			return reject(CodeExpired, "%s", err)
		default:
			return reject(CodeEmptyScript, "%s", err)
		}
	}

	if tx.Sender == c.address {
		return reject(CodeInvalidSender, "transaction sender is the chain itself")
	}

	if len(tx.Signatures) == 0 {
		return reject(CodeUnsigned, "transaction is not signed")
	}

	if _, err := tx.Signers(); err != nil {
		return reject(CodeBadSignature, "%s", err)
	}

	if !tx.Sender.IsUser() {
		return reject(CodeInvalidSender, "sender %s is not a user address", tx.Sender)
	}

	if !tx.IsSignedBy(tx.Sender) {
		return reject(CodeBadSignature, "transaction not signed by sender %s", tx.Sender)
	}

	return Response{Code: CodeOK}
}

// deliverTx checks and executes a transaction in the open block.
func (c *Chain) deliverTx(ob *openBlock, tx database.Transaction) Response {
	hash := tx.Hash()

	// System transactions ran while the block was opened.
	if ob.block.HasTransaction(hash) {
		r := ob.block.Results[hash]
		return Response{Code: r.Code, Codespace: r.Codespace, Log: "already included", GasUsed: r.GasUsed}
	}

	checkpoint := ob.cs.Checkpoint()

	if resp := c.checkTx(tx, ob.block.Timestamp); !resp.IsOK() {
		if err := ob.cs.Truncate(checkpoint); err != nil {
			return reject(CodeInternal, "%s", err)
		}
		return resp
	}

	included, err := c.isIncluded(hash)
	if err != nil {
		return reject(CodeInternal, "%s", err)
	}
	if included {
		return reject(CodeDuplicate, "transaction %s already included", hash)
	}

	res, err := c.execute(ob, tx, nil)
	if err != nil {
		c.evHandler("chain: DeliverTx: %s: tx[%s]: dropped: %s", c.name, hash, err)
		if terr := ob.cs.Truncate(checkpoint); terr != nil {
			return reject(CodeInternal, "%s", terr)
		}
		return reject(CodeInternal, "%s", err)
	}

	c.include(ob, tx, res)

	resp := Response{Code: res.Code, Log: res.Message, GasUsed: res.GasUsed}
	if res.Code != runtime.CodeOK {
		resp.Codespace = runtime.Codespace
	}
	return resp
}

// execute runs the script of the transaction in a fresh runtime bound to
// the open block.
func (c *Chain) execute(ob *openBlock, tx database.Transaction, mod func(cfg *runtime.Config)) (runtime.Result, error) {
	cfg := runtime.Config{
		TxIndex:     len(ob.block.TransactionHashes),
		Script:      tx.Script,
		Chain:       c,
		Height:      ob.block.Height,
		Validator:   ob.block.Validator,
		Time:        ob.block.Timestamp,
		Transaction: &tx,
		ChangeSet:   ob.cs,
		Oracle:      ob.oracle,
		Registry:    c.registry,
		MinimumFee:  ob.minFee,
		EvHandler:   runtime.EventHandler(c.evHandler),
	}
	if mod != nil {
		mod(&cfg)
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		return runtime.Result{}, err
	}

	res, err := rt.Execute()
	if err != nil {
		return res, err
	}

	metrics.RuntimeGasHistogram.WithLabelValues(c.name).Observe(float64(res.GasUsed))
	metrics.ChainTxCounter.WithLabelValues(c.name, strconv.FormatUint(uint64(res.Code), 10)).Inc()

	return res, nil
}

// include records an executed transaction in the open block.
func (c *Chain) include(ob *openBlock, tx database.Transaction, res runtime.Result) {
	hash := tx.Hash()

	ob.block.AddTransaction(hash, res.TxResult(), res.Events)
	ob.txs[hash] = tx
	if tx.Sender == c.address {
		ob.system = append(ob.system, tx)
	}

	c.evHandler("chain: include: %s: tx[%s] code[%d] gas[%d]", c.name, hash, res.Code, res.GasUsed)
}

// closeBlock records the validator switch and pays the block rewards.
func (c *Chain) closeBlock(ob *openBlock) error {
	block := ob.block

	if c.last != nil && c.last.Validator != block.Validator {
		block.Notify(database.Event{
			Kind:    database.EventValidatorSwitch,
			Address: block.Validator,
			Data:    []byte(c.last.Validator.String()),
		})
	}

	if err := c.distributeRewards(ob); err != nil {
		return fmt.Errorf("distributing rewards: %w", err)
	}

	c.state = StateClosing
	return nil
}

// distributeRewards splits the reward pool evenly among the primary
// validators. The remainder goes to the validator of the block. Before
// genesis everything goes to the genesis address.
func (c *Chain) distributeRewards(ob *openBlock) error {
	amount, err := native.TakeRewards(ob.cs)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}

	credit := func(addr database.Address, value *big.Int) error {
		if value.Sign() == 0 {
			return nil
		}
		if err := native.Credit(ob.cs, addr, value); err != nil {
			return err
		}
		ob.block.Notify(database.Event{
			Kind:     database.EventTokenReceive,
			Address:  addr,
			Contract: native.GasName,
			Data:     value.Bytes(),
		})
		return nil
	}

	if !c.HasGenesis() {
		return credit(c.genesisAddress, amount)
	}

	primaries, err := native.Primaries(ob.cs)
	if err != nil {
		return err
	}
	if len(primaries) == 0 {
		return credit(ob.block.Validator, amount)
	}

	share, remainder := new(big.Int).QuoRem(amount, big.NewInt(int64(len(primaries))), new(big.Int))
	for _, v := range primaries {
		value := new(big.Int).Set(share)
		if v.Address == ob.block.Validator {
			value.Add(value, remainder)
			remainder = new(big.Int)
		}
		if err := credit(v.Address, value); err != nil {
			return err
		}
	}

	return credit(ob.block.Validator, remainder)
}
