package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/talkgest/internal/dump"
)

// handleListDumps lists the dump files available at the configured index.
func (s *Server) handleListDumps(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dumps == nil {
		jsonError(w, "dump listing unavailable", http.StatusServiceUnavailable)
		return
	}
	links, err := s.deps.Dumps.ListDumps(r.Context(), s.cfg.DumpsURL, s.pattern)
	if err != nil {
		var retryErr *dump.RetryableError
		code := http.StatusBadGateway
		if errors.As(err, &retryErr) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, "failed to list dumps: "+err.Error(), code)
		return
	}
	if links == nil {
		links = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"index": s.cfg.DumpsURL,
		"dumps": links,
	})
}
