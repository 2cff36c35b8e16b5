// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nexuschain/chaincore/business/web/errs"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/state"
	"github.com/nexuschain/chaincore/foundation/events"
	"github.com/nexuschain/chaincore/foundation/nameservice"
	"github.com/nexuschain/chaincore/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Chains returns the status of every chain the node runs.
func (h Handlers) Chains(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	names := h.State.Chains()

	infos := make([]chainInfo, 0, len(names))
	for _, name := range names {
		c, err := h.State.Chain(name)
		if err != nil {
			return err
		}

		ci := chainInfo{
			Name:    name,
			Address: c.Address(),
			Root:    c.IsRoot(),
			Height:  c.Height(),
			State:   c.State().String(),
			Pending: h.State.MempoolLength(name),
		}
		if last := c.LastBlock(); last != nil {
			ci.LastBlock = last.Hash()
		}
		if err := c.Halted(); err != nil {
			ci.Halted = err.Error()
		}

		infos = append(infos, ci)
	}

	return web.Respond(ctx, w, infos, http.StatusOK)
}

// SubmitTransaction runs admission on a signed transaction and adds it to
// the mempool of its chain.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var in Tx
	if err := web.Decode(r, &in); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	tx, err := in.toTransaction()
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "hash", tx.Hash(), "chain", tx.Chain, "sender", tx.Sender, "name", h.NS.Lookup(tx.Sender))

	resp, err := h.State.SubmitTransaction(tx)
	if err != nil {
		if errors.Is(err, state.ErrUnknownChain) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}

	status := http.StatusOK
	if !resp.IsOK() {
		status = http.StatusBadRequest
	}

	return web.Respond(ctx, w, submitted{Hash: tx.Hash(), Response: resp}, status)
}

// Mempool returns the set of uncommitted transactions of a chain, optionally
// filtered by the address that sent them.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs, err := h.State.Mempool(web.Param(r, "chain"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	var sender database.Address
	if s := web.Param(r, "address"); s != "" {
		if sender, err = h.NS.Resolve(s); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	pending := make([]pendingTx, 0, len(txs))
	for _, tx := range txs {
		if !sender.IsNull() && tx.Sender != sender {
			continue
		}

		pending = append(pending, pendingTx{
			Hash:       tx.Hash(),
			Sender:     tx.Sender.String(),
			SenderName: h.NS.Lookup(tx.Sender),
			Expiration: tx.Expiration,
		})
	}

	return web.Respond(ctx, w, pending, http.StatusOK)
}

// Balance returns the committed gas balance of an address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := h.State.Chain(web.Param(r, "chain"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	addr, err := h.NS.Resolve(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := c.Balance(addr)
	if err != nil {
		return err
	}

	b := balance{
		Address: addr.String(),
		Name:    h.NS.Lookup(addr),
		Balance: amount.String(),
	}

	return web.Respond(ctx, w, b, http.StatusOK)
}

// BlocksByHeight returns the blocks between two heights inclusive. The
// keyword latest stands for the last committed block.
func (h Handlers) BlocksByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := height(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to := from
	if s := web.Param(r, "to"); s != "" {
		if to, err = height(s); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByHeight(web.Param(r, "chain"), from, to)
	if err != nil {
		if errors.Is(err, state.ErrUnknownChain) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByHash returns the committed block with the hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := h.State.Chain(web.Param(r, "chain"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	hash, err := database.ToHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	block, err := c.GetBlockByHash(hash)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Transaction returns a committed transaction with its result.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := database.ToHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	rec, err := h.State.QueryTransaction(web.Param(r, "chain"), hash)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, rec, http.StatusOK)
}

// TransactionsByAddress returns the committed transactions that involved an
// address.
func (h Handlers) TransactionsByAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := h.NS.Resolve(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	recs, err := h.State.QueryTransactionsByAddress(web.Param(r, "chain"), addr)
	if err != nil {
		if errors.Is(err, state.ErrUnknownChain) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	if len(recs) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, recs, http.StatusOK)
}

// Tasks returns the tasks scheduled on a chain.
func (h Handlers) Tasks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := h.State.Chain(web.Param(r, "chain"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	tasks, err := c.GetTasks()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, tasks, http.StatusOK)
}

// Invoke runs a read only script against the committed state of a chain.
func (h Handlers) Invoke(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := h.State.Chain(web.Param(r, "chain"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	var in Invoke
	if err := web.Decode(r, &in); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	res, err := c.Invoke(in.Script)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	out := invokeResult{
		Code:    res.Code,
		Message: res.Message,
		GasUsed: res.GasUsed,
		Value:   res.Value.String(),
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// =============================================================================

func height(s string) (uint64, error) {
	if s == "latest" {
		return state.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid height %q", s)
	}
	return n, nil
}
