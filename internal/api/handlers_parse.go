package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/talkgest/internal/export"
	"github.com/dgallion1/talkgest/internal/parser"
	"github.com/dgallion1/talkgest/internal/talktree"
)

type parseRequest struct {
	Title     string `json:"title"`
	Namespace string `json:"namespace"`
	Text      string `json:"text"`
}

type parseResponse struct {
	Title         string                      `json:"title"`
	Talk          bool                        `json:"talk"`
	Trees         []talktree.ConversationTree `json:"trees"`
	SectionErrors []string                    `json:"section_errors"`
	Stats         parser.Stats                `json:"stats"`
}

// handleParse parses a single page supplied in the request body.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxPageBytes+64*1024)
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "page exceeds max size", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Namespace == "" {
		req.Namespace = parser.TalkNamespace
	}

	start := time.Now()
	res := s.deps.Parser.ParsePage(parser.Page{Title: req.Title, Namespace: req.Namespace, Text: req.Text})
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordPage(res, time.Since(start))
	}
	if res.Err != nil {
		jsonError(w, res.Err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if format != export.FormatJSON {
		body, err := export.Render(format, res.Trees)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Write([]byte(body))
		return
	}

	resp := parseResponse{
		Title:         res.Title,
		Talk:          res.Talk,
		Trees:         res.Trees,
		SectionErrors: make([]string, 0, len(res.SectionErrors)),
		Stats:         res.Stats,
	}
	if resp.Trees == nil {
		resp.Trees = []talktree.ConversationTree{}
	}
	for _, se := range res.SectionErrors {
		resp.SectionErrors = append(resp.SectionErrors, se.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
