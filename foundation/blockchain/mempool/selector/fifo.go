package selector

import (
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// fifoSelect returns the transactions in the order they arrived.
var fifoSelect = func(txs []database.Transaction, howMany int) []database.Transaction {
	if howMany == -1 || howMany > len(txs) {
		howMany = len(txs)
	}

	final := make([]database.Transaction, howMany)
	copy(final, txs[:howMany])

	return final
}
