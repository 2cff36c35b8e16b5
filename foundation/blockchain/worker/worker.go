// Package worker implements block production for the chains of the node.
package worker

import (
	"sync"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/state"
)

// DefaultCycle is the time between two production rounds.
const DefaultCycle = 12 * time.Second

// maxProduceRequests represents the max number of pending production
// requests. Requests beyond that are dropped since a round is coming
// anyway.
const maxProduceRequests = 32

// =============================================================================

// Worker manages the POA workflows for the chains of the node.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	cycle     time.Duration
	shut      chan struct{}
	produce   chan string
	evHandler state.EventHandler
	now       func() time.Time
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cycle time.Duration, evHandler state.EventHandler) *Worker {
	if cycle <= 0 {
		cycle = DefaultCycle
	}

	w := Worker{
		state:     st,
		cycle:     cycle,
		shut:      make(chan struct{}),
		produce:   make(chan string, maxProduceRequests),
		evHandler: evHandler,
		now:       time.Now,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.poaOperations,
		w.requestOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalProduce asks for a production round on the chain. If the request
// queue is full the signal is dropped.
func (w *Worker) SignalProduce(chain string) {
	select {
	case w.produce <- chain:
		w.evHandler("worker: SignalProduce: %s: signaled", chain)
	default:
		w.evHandler("worker: SignalProduce: %s: queue full, request dropped", chain)
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
