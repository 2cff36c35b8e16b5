package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/nexuschain/chaincore/business/sys/validate"
	"github.com/nexuschain/chaincore/business/web/errs"
	"github.com/nexuschain/chaincore/business/web/mid"
	"github.com/nexuschain/chaincore/foundation/logger"
	"github.com/nexuschain/chaincore/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Middleware(t *testing.T) {
	log, err := logger.New("TEST")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the logger: %v", failed, err)
	}
	defer log.Sync()

	app := web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Metrics(), mid.Panics())

	handlers := map[string]web.Handler{
		"/ok": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, map[string]string{"status": "ok"}, http.StatusOK)
		},
		"/trusted": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return errs.NewTrusted(errors.New("unknown chain"), http.StatusNotFound)
		},
		"/fields": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return validate.FieldErrors{{Field: "chain", Error: "chain is a required field"}}
		},
		"/internal": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return errors.New("disk on fire")
		},
		"/panic": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			panic("boom")
		},
	}
	for path, h := range handlers {
		app.Handle(http.MethodGet, "", path, h, mid.Cors("*"))
	}

	type table struct {
		path   string
		status int
		error  string
		field  string
	}

	tt := []table{
		{"/ok", http.StatusOK, "", ""},
		{"/trusted", http.StatusNotFound, "unknown chain", ""},
		{"/fields", http.StatusBadRequest, "data validation error", "chain"},
		{"/internal", http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), ""},
		{"/panic", http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), ""},
	}

	t.Log("Given the need to render handler errors uniformly.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen calling %s.", testID, tst.path)
				{
					w := httptest.NewRecorder()
					app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tst.path, nil))

					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould receive status %d : %d", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould receive status %d.", success, testID, tst.status)

					if w.Header().Get("Access-Control-Allow-Origin") != "*" {
						t.Fatalf("\t%s\tTest %d:\tShould set the CORS headers.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould set the CORS headers.", success, testID)

					if tst.error == "" {
						return
					}

					var er errs.Response
					if err := json.NewDecoder(w.Body).Decode(&er); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to decode the error: %v", failed, testID, err)
					}
					if er.Error != tst.error || (tst.field != "" && er.Fields[tst.field] == "") {
						t.Fatalf("\t%s\tTest %d:\tShould render the error: %+v", failed, testID, er)
					}
					t.Logf("\t%s\tTest %d:\tShould render the error.", success, testID)
				}
			}

			t.Run(tst.path, f)
		}
	}
}
