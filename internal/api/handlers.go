package api

import (
	"net/http"

	"github.com/ignite/profilebot/internal/pkg/httputil"
)

// handleStats serves the counter snapshot.
//
//	GET /stats
func handleStats(src StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, src.Snapshot())
	}
}
