package api

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/dgallion1/talkgest/internal/config"
	"github.com/dgallion1/talkgest/internal/dump"
	"github.com/dgallion1/talkgest/internal/metrics"
	"github.com/dgallion1/talkgest/internal/parser"
	"github.com/dgallion1/talkgest/internal/pipeline"
	"github.com/dgallion1/talkgest/internal/talktree"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TreeLister reads stored trees back. It is nil when the sink cannot be
// queried.
type TreeLister interface {
	ListByPage(ctx context.Context, page string) ([]talktree.ConversationTree, error)
	Count(ctx context.Context) (int, error)
}

// Deps are the collaborators the server calls into.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Parser       *parser.PageParser
	Dumps        *dump.Client
	Metrics      *metrics.Collector
	Trees        TreeLister
}

// Server is the HTTP API server for talkgest.
type Server struct {
	router  chi.Router
	deps    Deps
	pattern *regexp.Regexp
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) (*Server, error) {
	pattern, err := regexp.Compile(cfg.DumpPattern)
	if err != nil {
		return nil, err
	}
	s := &Server{
		deps:    deps,
		pattern: pattern,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/dumps", s.handleListDumps)
		r.Get("/api/stats/parse", s.handleParseStats)

		r.Get("/api/trees", s.handleListTrees)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
