// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/nexuschain/chaincore/app/services/node/handlers/v1/private"
	"github.com/nexuschain/chaincore/app/services/node/handlers/v1/public"
	"github.com/nexuschain/chaincore/foundation/blockchain/state"
	"github.com/nexuschain/chaincore/foundation/events"
	"github.com/nexuschain/chaincore/foundation/nameservice"
	"github.com/nexuschain/chaincore/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chains/list", pbl.Chains)
	app.Handle(http.MethodGet, version, "/chains/:chain/balance/:address", pbl.Balance)
	app.Handle(http.MethodGet, version, "/chains/:chain/blocks/list/:from", pbl.BlocksByHeight)
	app.Handle(http.MethodGet, version, "/chains/:chain/blocks/list/:from/:to", pbl.BlocksByHeight)
	app.Handle(http.MethodGet, version, "/chains/:chain/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/chains/:chain/tx/hash/:hash", pbl.Transaction)
	app.Handle(http.MethodGet, version, "/chains/:chain/tx/address/:address", pbl.TransactionsByAddress)
	app.Handle(http.MethodGet, version, "/chains/:chain/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/chains/:chain/tx/uncommitted/list/:address", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/chains/:chain/tasks/list", pbl.Tasks)
	app.Handle(http.MethodPost, version, "/chains/:chain/invoke", pbl.Invoke)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/chains/:chain/block/list/:from/:to", prv.BlocksByHeight)
	app.Handle(http.MethodGet, version, "/node/chains/:chain/tx/list", prv.Mempool)
	app.Handle(http.MethodPost, version, "/node/block/propose", prv.ProposeBlock)
}
