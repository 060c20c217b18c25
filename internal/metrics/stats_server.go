package metrics

import (
	"encoding/json"
	"net/http"
)

// StatsHandler returns an http.Handler serving GET /stats.json with the
// current Snapshot, matching spec.md §6's literal wire shape:
// {"totals": {...}, "rates": {...}}.
func (r *Registry) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Snapshot())
	})
}

// NewStatsServer builds an *http.Server exposing /stats.json on addr. The
// caller is responsible for calling ListenAndServe/Shutdown.
func NewStatsServer(addr string, r *Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/stats.json", r.StatsHandler())

	return &http.Server{Addr: addr, Handler: mux}
}
