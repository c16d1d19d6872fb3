package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/talkgest/internal/export"
	"github.com/dgallion1/talkgest/internal/talktree"
)

// handleListTrees returns the stored trees of one page. Only the sqlite sink
// can be queried.
func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	if s.deps.Trees == nil {
		jsonError(w, "tree listing requires the sqlite sink", http.StatusNotImplemented)
		return
	}
	page := r.URL.Query().Get("page")
	if page == "" {
		jsonError(w, "page query parameter is required", http.StatusBadRequest)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	trees, err := s.deps.Trees.ListByPage(r.Context(), page)
	if err != nil {
		jsonError(w, "failed to list trees: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if format != export.FormatJSON {
		body, err := export.Render(format, trees)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Write([]byte(body))
		return
	}

	if trees == nil {
		trees = []talktree.ConversationTree{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"page":  page,
		"trees": trees,
	})
}
