package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleParseStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics == nil || s.deps.Metrics.Latency == nil {
		jsonError(w, "parse stats unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"latency": s.deps.Metrics.Latency.Snapshot(),
	}
	if s.deps.Orchestrator != nil {
		resp["queue_depth"] = s.deps.Orchestrator.QueueDepth()
	}
	if s.deps.Trees != nil {
		if n, err := s.deps.Trees.Count(r.Context()); err == nil {
			resp["stored_trees"] = n
		} else {
			s.log.Warn("count stored trees failed", "error", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
