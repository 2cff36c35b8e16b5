package private

import (
	"github.com/nexuschain/chaincore/business/sys/validate"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// BlockData is a block with the transactions it declares, the unit nodes
// exchange to replay blocks.
type BlockData struct {
	Block        *database.Block        `json:"block" validate:"required"`
	Transactions []database.Transaction `json:"transactions"`
}

// Validate checks the data in the model is considered clean.
func (bd BlockData) Validate() error {
	return validate.Check(bd)
}

// ChainStatus is the tip of one chain.
type ChainStatus struct {
	Name            string        `json:"name"`
	Height          uint64        `json:"height"`
	LatestBlockHash database.Hash `json:"latest_block_hash"`
}

// Status represents information about the node.
type Status struct {
	Nexus     string           `json:"nexus"`
	Validator database.Address `json:"validator"`
	Chains    []ChainStatus    `json:"chains"`
}
