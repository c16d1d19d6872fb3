package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/talkgest/internal/api"
	"github.com/dgallion1/talkgest/internal/dump"
	"github.com/dgallion1/talkgest/internal/metrics"
	"github.com/dgallion1/talkgest/internal/pipeline"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and ingest pipeline",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	if err := cfg.ValidateServe(); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize clients.
	client := dump.NewClient(cfg.HTTPTimeout)
	collector := metrics.NewCollector(nil)
	newSink, store, err := openSinks(cfg, log)
	if err != nil {
		return err
	}

	// Initialize pipeline.
	worker := newWorker(cfg, client, collector, newSink, log)
	orch := pipeline.NewOrchestrator(worker, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	deps := api.Deps{
		Orchestrator: orch,
		Parser:       newPageParser(cfg, log),
		Dumps:        client,
		Metrics:      collector,
	}
	if store != nil {
		deps.Trees = store
	}

	// Initialize HTTP server.
	srv, err := api.NewServer(deps, log, cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		client.Close()
		if store != nil {
			store.Close()
		}
	}()

	log.Info("starting talkgest", "port", cfg.Port, "sink", cfg.Sink)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		stop()
		<-stopped
		return err
	}
	<-stopped
	return nil
}
