package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eugenenazirov/knapsack/pkg/metrics"
)

// metricsMiddleware records per-route request counts and latency. It labels
// by route pattern rather than raw path to keep label cardinality bounded.
func metricsMiddleware(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					endpoint = pattern
				}
			}
			m.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}
