// Package reports serves the aggregated KPI summary.
package reports

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openrescue/dispatch/core/reports"
	"github.com/openrescue/dispatch/core/store"
)

// NewSummaryHandler returns an HTTP handler computing the report over the
// current store contents via GET /api/reports/summary.
func NewSummaryHandler(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		reqs, err := st.Requests().List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		drvs, err := st.Drivers().List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sum := reports.Build(reqs, drvs, time.Now())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sum); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
