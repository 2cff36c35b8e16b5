package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/state"
)

// CORE NOTE: Production is managed by this function which runs on its own
// goroutine. At the beginning of each cycle every chain of the node is
// offered a block. The chain decides from its validator list whose turn
// the current time is; a node that is not expected simply waits for the
// next cycle.

// poaOperations handles the production cycle.
func (w *Worker) poaOperations() {
	w.evHandler("worker: poaOperations: G started")
	defer w.evHandler("worker: poaOperations: G completed")

	ticker := time.NewTicker(w.cycle)
	defer ticker.Stop()

	// Start this on a cycle mark: ex. MM.00, MM.12, MM.24, MM.36.
	resetTicker(ticker, w.cycle, w.cycle)

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				for _, name := range w.state.Chains() {
					w.runPoaOperation(name)
				}
			}
		case <-w.shut:
			w.evHandler("worker: poaOperations: received shut signal")
			return
		}

		// Reset the ticker for the next cycle.
		resetTicker(ticker, w.cycle, 0)
	}
}

// requestOperations handles the production requests signaled when
// transactions arrive.
func (w *Worker) requestOperations() {
	w.evHandler("worker: requestOperations: G started")
	defer w.evHandler("worker: requestOperations: G completed")

	for {
		select {
		case name := <-w.produce:
			if !w.isShutdown() {
				w.runPoaOperation(name)
			}
		case <-w.shut:
			w.evHandler("worker: requestOperations: received shut signal")
			return
		}
	}
}

// runPoaOperation produces the next block of the chain if this node is the
// expected validator.
func (w *Worker) runPoaOperation(name string) {

	// Shutdown cancels a block that is being built.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.state.ProduceBlock(ctx, name, uint64(w.now().Unix()))
	duration := time.Since(t)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions):
		case errors.Is(err, state.ErrNotSelected):
			w.evHandler("worker: runPoaOperation: %s: not selected: %s", name, err)
		case ctx.Err() != nil:
			w.evHandler("worker: runPoaOperation: %s: CANCEL: complete", name)
		default:
			w.evHandler("worker: runPoaOperation: %s: ERROR: %s", name, err)
		}
		return
	}

	w.evHandler("worker: runPoaOperation: %s: produced: height[%d] duration[%v]", name, block.Height, duration)
}

// =============================================================================

// resetTicker makes sure the next tick happens on the described cadence.
func resetTicker(ticker *time.Ticker, cycle time.Duration, waitOnSecond time.Duration) {
	nextTick := time.Now().Add(cycle)
	if waitOnSecond > 0 {
		nextTick = nextTick.Round(waitOnSecond)
	}
	ticker.Reset(time.Until(nextTick))
}
