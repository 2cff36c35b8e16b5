package mid

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
	"github.com/nexuschain/chaincore/foundation/web"
)

// Metrics updates program counters for every route.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			v, verr := web.GetValues(ctx)
			if verr != nil {
				return err
			}

			status := v.StatusCode
			if status == 0 {
				status = http.StatusOK
			}

			metrics.WebRequestCounter.WithLabelValues(v.Route, strconv.Itoa(status)).Inc()
			metrics.WebRequestHistogram.WithLabelValues(v.Route).Observe(time.Since(v.Now).Seconds())

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
