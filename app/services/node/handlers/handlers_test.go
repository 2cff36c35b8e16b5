package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nexuschain/chaincore/app/services/node/handlers"
	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/genesis"
	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
	"github.com/nexuschain/chaincore/foundation/blockchain/native"
	"github.com/nexuschain/chaincore/foundation/blockchain/state"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
	"github.com/nexuschain/chaincore/foundation/events"
	"github.com/nexuschain/chaincore/foundation/nameservice"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	ownerKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	genesisTime = 1_700_000_000
)

func Test_Routes(t *testing.T) {
	pk, err := crypto.HexToECDSA(ownerKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}
	owner := database.PublicKeyToAddress(pk.PublicKey)

	st, err := state.New(state.Config{
		Store: memory.New(),
		Genesis: genesis.Genesis{
			Nexus:      "testnet",
			Chain:      "main",
			Owner:      owner.String(),
			Timestamp:  genesisTime,
			Balances:   []genesis.Balance{{Address: owner.String(), Amount: 1_000_000}},
			Validators: []genesis.Validator{{Name: "node0", Address: owner.String()}},
		},
		ValidatorKey: pk,
		Consensus:    "node0",
		MinimumFee:   big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}
	defer st.Shutdown()

	if _, err := st.ProduceBlock(context.Background(), "main", genesisTime); err != nil {
		t.Fatalf("\t%s\tShould be able to produce the genesis: %v", failed, err)
	}

	ns, err := nameservice.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the name service: %v", failed, err)
	}

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New(),
	}
	public := handlers.PublicMux(cfg)
	private := handlers.PrivateMux(cfg)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	debug := handlers.DebugMux("test", cfg.Log, st, reg)

	script := vm.NewBuilder().
		AllowGas(owner, chain.Address("main"), big.NewInt(1), 1_000).
		CallContract(native.GasName, "Transfer", vm.Address(owner), vm.Address(chain.Address("main")), vm.Int(10)).
		SpendGas(owner).
		Bytes()

	tx := database.NewTransaction("testnet", "main", script, owner, genesisTime+3600, nil)
	if err := tx.Sign(pk); err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}
	txData, _ := json.Marshal(tx)

	badTx := tx
	badTx.Nexus = "other"
	badData, _ := json.Marshal(badTx)

	unsigned := tx
	unsigned.Signatures = nil
	unsignedData, _ := json.Marshal(unsigned)

	type table struct {
		name   string
		mux    http.Handler
		method string
		path   string
		body   []byte
		status int
	}

	tt := []table{
		{"genesis", public, http.MethodGet, "/v1/genesis/list", nil, http.StatusOK},
		{"chains", public, http.MethodGet, "/v1/chains/list", nil, http.StatusOK},
		{"balance", public, http.MethodGet, fmt.Sprintf("/v1/chains/main/balance/%s", owner), nil, http.StatusOK},
		{"badaddress", public, http.MethodGet, "/v1/chains/main/balance/nobody", nil, http.StatusBadRequest},
		{"unknownchain", public, http.MethodGet, fmt.Sprintf("/v1/chains/nope/balance/%s", owner), nil, http.StatusNotFound},
		{"latest", public, http.MethodGet, "/v1/chains/main/blocks/list/latest", nil, http.StatusOK},
		{"range", public, http.MethodGet, "/v1/chains/main/blocks/list/1/9", nil, http.StatusOK},
		{"badrange", public, http.MethodGet, "/v1/chains/main/blocks/list/5/1", nil, http.StatusBadRequest},
		{"submit", public, http.MethodPost, "/v1/tx/submit", txData, http.StatusOK},
		{"wrongnexus", public, http.MethodPost, "/v1/tx/submit", badData, http.StatusBadRequest},
		{"unsigned", public, http.MethodPost, "/v1/tx/submit", unsignedData, http.StatusBadRequest},
		{"mempool", public, http.MethodGet, "/v1/chains/main/tx/uncommitted/list", nil, http.StatusOK},
		{"tasks", public, http.MethodGet, "/v1/chains/main/tasks/list", nil, http.StatusOK},
		{"history", public, http.MethodGet, fmt.Sprintf("/v1/chains/main/tx/address/%s", owner), nil, http.StatusOK},
		{"status", private, http.MethodGet, "/v1/node/status", nil, http.StatusOK},
		{"peerblocks", private, http.MethodGet, "/v1/node/chains/main/block/list/1/latest", nil, http.StatusOK},
		{"readiness", debug, http.MethodGet, "/debug/readiness", nil, http.StatusOK},
		{"liveness", debug, http.MethodGet, "/debug/liveness", nil, http.StatusOK},
		{"metrics", debug, http.MethodGet, "/metrics", nil, http.StatusOK},
	}

	t.Log("Given the need to serve the node API.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen calling %s %s.", testID, tst.method, tst.path)
				{
					w := httptest.NewRecorder()
					r := httptest.NewRequest(tst.method, tst.path, bytes.NewReader(tst.body))
					tst.mux.ServeHTTP(w, r)

					if w.Code != tst.status {
						t.Logf("\t%s\tTest %d:\tbody: %s", failed, testID, w.Body.String())
						t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d: %d", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould receive a status code of %d.", success, testID, tst.status)
				}
			}

			t.Run(tst.name, f)
		}
	}

	t.Log("Given the need to replay a block through the private API.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the submitted transaction is produced.", testID)
		{
			block, err := st.ProduceBlock(context.Background(), "main", genesisTime+10)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to produce the block: %v", failed, testID, err)
			}
			if !block.HasTransaction(tx.Hash()) {
				t.Fatalf("\t%s\tTest %d:\tShould include the submitted transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould include the submitted transaction.", success, testID)

			w := httptest.NewRecorder()
			private.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/chains/main/tx/hash/%s", tx.Hash()), nil))
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould not serve public routes on the private mux: %d", failed, testID, w.Code)
			}

			w = httptest.NewRecorder()
			public.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/chains/main/tx/hash/%s", tx.Hash()), nil))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould find the committed transaction: %d", failed, testID, w.Code)
			}

			var rec state.TxRecord
			if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the record: %v", failed, testID, err)
			}
			if rec.Block != block.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould point at the including block: %s", failed, testID, rec.Block)
			}
			t.Logf("\t%s\tTest %d:\tShould find the committed transaction.", success, testID)

			w = httptest.NewRecorder()
			private.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/node/block/propose", bytes.NewReader([]byte(`{"block":null}`))))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould refuse an empty proposal: %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse an empty proposal.", success, testID)
		}
	}
}
