package selector

import (
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// senderSelect takes one transaction per sender in turns so a single busy
// sender cannot fill a block while others wait.
var senderSelect = func(txs []database.Transaction, howMany int) []database.Transaction {
	if howMany == -1 || howMany > len(txs) {
		howMany = len(txs)
	}

	/*
		Bill: tx1, tx2, tx3
		Pavl: tx4
		Edua: tx5, tx6
	*/

	// Group the transactions by sender, keeping senders in the order their
	// first transaction arrived.
	var senders []database.Address
	m := make(map[database.Address][]database.Transaction)
	for _, tx := range txs {
		if _, exists := m[tx.Sender]; !exists {
			senders = append(senders, tx.Sender)
		}
		m[tx.Sender] = append(m[tx.Sender], tx)
	}

	/*
		0: Bill: tx1, Pavl: tx4, Edua: tx5
		1: Bill: tx2, Edua: tx6
		2: Bill: tx3
	*/

	// Pick the first transaction of each sender. Each pass represents a new
	// row of selections. Keep doing that until enough are selected.
	final := make([]database.Transaction, 0, howMany)
	for len(final) < howMany {
		for _, s := range senders {
			if len(m[s]) == 0 {
				continue
			}
			final = append(final, m[s][0])
			m[s] = m[s][1:]

			if len(final) == howMany {
				break
			}
		}
	}

	return final
}
