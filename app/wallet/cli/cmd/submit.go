package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

type genesisInfo struct {
	Nexus string `json:"nexus"`
}

// submit signs a transaction carrying the script and posts it to the node.
func submit(privateKey *ecdsa.PrivateKey, from database.Address, script []byte) error {
	var g genesisInfo
	if err := get("/v1/genesis/list", &g); err != nil {
		return fmt.Errorf("reading genesis: %w", err)
	}

	expiration := uint64(time.Now().Add(expires).Unix())

	tx := database.NewTransaction(g.Nexus, chainName, script, from, expiration, payload)
	if err := tx.Sign(privateKey); err != nil {
		return err
	}

	var resp submitted
	if err := post("/v1/tx/submit", tx, &resp); err != nil {
		return err
	}

	if resp.Response.Code != 0 {
		return fmt.Errorf("transaction %s rejected: %s: %d: %s", resp.Hash, resp.Response.Codespace, resp.Response.Code, resp.Response.Log)
	}

	fmt.Println("submitted", resp.Hash)
	return nil
}
