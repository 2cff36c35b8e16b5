package public

import (
	"fmt"

	"github.com/nexuschain/chaincore/business/sys/validate"
	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// Tx is a signed transaction submitted by a wallet.
type Tx struct {
	Nexus      string   `json:"nexus" validate:"required"`
	Chain      string   `json:"chain" validate:"required"`
	Script     []byte   `json:"script" validate:"required"`
	Sender     string   `json:"sender" validate:"required,address"`
	Expiration uint64   `json:"expiration" validate:"required"`
	Payload    []byte   `json:"payload"`
	Signatures [][]byte `json:"signatures" validate:"required,min=1"`
}

// Validate checks the data in the model is considered clean.
func (tx Tx) Validate() error {
	return validate.Check(tx)
}

func (tx Tx) toTransaction() (database.Transaction, error) {
	sender, err := database.ToAddress(tx.Sender)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("sender: %w", err)
	}

	dbTx := database.NewTransaction(tx.Nexus, tx.Chain, tx.Script, sender, tx.Expiration, tx.Payload)
	dbTx.Signatures = tx.Signatures

	return dbTx, nil
}

// Invoke is a script run against committed state.
type Invoke struct {
	Script []byte `json:"script" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (iv Invoke) Validate() error {
	return validate.Check(iv)
}

// =============================================================================

type submitted struct {
	Hash     database.Hash  `json:"hash"`
	Response chain.Response `json:"response"`
}

type chainInfo struct {
	Name      string           `json:"name"`
	Address   database.Address `json:"address"`
	Root      bool             `json:"root"`
	Height    uint64           `json:"height"`
	LastBlock database.Hash    `json:"last_block"`
	State     string           `json:"state"`
	Halted    string           `json:"halted,omitempty"`
	Pending   int              `json:"pending"`
}

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type pendingTx struct {
	Hash       database.Hash `json:"hash"`
	Sender     string        `json:"sender"`
	SenderName string        `json:"sender_name"`
	Expiration uint64        `json:"expiration"`
}

type invokeResult struct {
	Code    uint32 `json:"code"`
	Message string `json:"message,omitempty"`
	GasUsed uint64 `json:"gas_used"`
	Value   string `json:"value"`
}
