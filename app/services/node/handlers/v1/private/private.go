// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nexuschain/chaincore/business/web/errs"
	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/state"
	"github.com/nexuschain/chaincore/foundation/nameservice"
	"github.com/nexuschain/chaincore/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
}

// ProposeBlock takes a block received from a peer, replays it and if that
// passes, adds the block to the local chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var bd BlockData
	if err := web.Decode(r, &bd); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("propose block", "traceid", v.TraceID, "height", bd.Block.Height, "validator", bd.Block.Validator, "txs", len(bd.Transactions))

	if err := h.State.ProcessBlock(bd.Block, bd.Transactions); err != nil {
		switch {
		case errors.Is(err, state.ErrUnknownChain):
			return errs.NewTrusted(err, http.StatusNotFound)
		case chain.IsBlockError(err):
			return errs.NewTrusted(err, http.StatusNotAcceptable)
		}
		return err
	}

	resp := struct {
		Status string        `json:"status"`
		Hash   database.Hash `json:"hash"`
	}{
		Status: "accepted",
		Hash:   bd.Block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := Status{
		Nexus:     h.State.Nexus(),
		Validator: h.State.Validator(),
	}

	for _, name := range h.State.Chains() {
		c, err := h.State.Chain(name)
		if err != nil {
			return err
		}

		cs := ChainStatus{
			Name:   name,
			Height: c.Height(),
		}
		if last := c.LastBlock(); last != nil {
			cs.LatestBlockHash = last.Hash()
		}
		st.Chains = append(st.Chains, cs)
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// BlocksByHeight returns the blocks between the specified heights with the
// transactions a peer needs to replay them.
func (h Handlers) BlocksByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := height(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := height(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	name := web.Param(r, "chain")

	c, err := h.State.Chain(name)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	blocks, err := h.State.QueryBlocksByHeight(name, from, to)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	data := make([]BlockData, len(blocks))
	for i, block := range blocks {
		txs := make([]database.Transaction, len(block.TransactionHashes))
		for j, hash := range block.TransactionHashes {
			if txs[j], err = c.GetTransaction(hash); err != nil {
				return err
			}
		}
		data[i] = BlockData{Block: block, Transactions: txs}
	}

	return web.Respond(ctx, w, data, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions of a chain.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs, err := h.State.Mempool(web.Param(r, "chain"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// =============================================================================

func height(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid height %q", s)
	}
	return n, nil
}
