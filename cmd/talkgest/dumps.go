package main

import (
	"context"
	"fmt"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/dgallion1/talkgest/internal/dump"
	"github.com/dgallion1/talkgest/internal/metrics"
	"github.com/dgallion1/talkgest/internal/pipeline"
	"github.com/spf13/cobra"
)

var dumpsDownload bool

var dumpsCmd = &cobra.Command{
	Use:   "dumps",
	Short: "List the talk page dumps available for download",
	Long: `Dumps scrapes the configured dump index (DUMPS_URL) for files matching
DUMP_PATTERN. With --download every listed file is fetched into DATA_DIR
(skipping files already present) and parsed in turn.`,
	Args: cobra.NoArgs,
	RunE: runDumps,
}

func init() {
	dumpsCmd.Flags().BoolVar(&dumpsDownload, "download", false, "download and parse each listed dump")
	rootCmd.AddCommand(dumpsCmd)
}

func runDumps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := dump.NewClient(cfg.HTTPTimeout)
	defer client.Close()

	links, err := client.ListDumps(ctx, cfg.DumpsURL, regexp.MustCompile(cfg.DumpPattern))
	if err != nil {
		return err
	}
	if !dumpsDownload {
		for _, l := range links {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	}

	newSink, store, err := openSinks(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	worker := newWorker(cfg, client, metrics.NewCollector(nil), newSink, log)

	var failed int
	for _, l := range links {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		job := pipeline.NewJob(l)
		worker.Process(ctx, job)
		if err := report(cmd, job); err != nil {
			log.Error("dump failed", "url", l, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d dumps failed", failed, len(links))
	}
	return nil
}
