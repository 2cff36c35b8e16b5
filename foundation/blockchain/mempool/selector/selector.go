// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO   = "fifo"
	StrategySender = "sender"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:   fifoSelect,
	StrategySender: senderSelect,
}

// Func defines a function that takes the pending transactions in arrival
// order and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST keep the arrival order of the
// transactions of one sender. Receiving -1 for howMany must return all the
// transactions in the strategies ordering.
type Func func(transactions []database.Transaction, howMany int) []database.Transaction

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// Strategies returns the names of the known strategies.
func Strategies() []string {
	return []string{StrategyFIFO, StrategySender}
}
