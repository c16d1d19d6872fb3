package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dgallion1/talkgest/internal/dump"
	"github.com/dgallion1/talkgest/internal/metrics"
	"github.com/dgallion1/talkgest/internal/pipeline"
	"github.com/dgallion1/talkgest/internal/sink"
	"github.com/spf13/cobra"
)

var (
	parseOut    string
	parseSQLite string
)

var parseCmd = &cobra.Command{
	Use:   "parse <dump.xml[.bz2]>",
	Short: "Parse one dump file and write its conversation trees",
	Long: `Parse streams every page of a MediaWiki XML dump, builds a conversation
tree for each discussion section of every talk page and writes the trees to
JSON Lines (--out) or SQLite (--sqlite). Without either flag the configured
sink is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "JSON Lines output file")
	parseCmd.Flags().StringVar(&parseSQLite, "sqlite", "", "SQLite database to append trees to")
	parseCmd.MarkFlagsMutuallyExclusive("out", "sqlite")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	switch {
	case parseOut != "":
		cfg.Sink = string(sink.KindJSONL)
	case parseSQLite != "":
		cfg.Sink = string(sink.KindSQLite)
		cfg.SQLitePath = parseSQLite
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)

	newSink, store, err := openSinks(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	if parseOut != "" {
		newSink = func(string) (sink.Sink, error) { return sink.CreateJSONL(parseOut) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := dump.NewClient(cfg.HTTPTimeout)
	defer client.Close()
	worker := newWorker(cfg, client, metrics.NewCollector(nil), newSink, log)

	job := pipeline.NewJob(args[0])
	worker.Process(ctx, job)
	return report(cmd, job)
}

// report prints the job summary and turns a failed job into an error.
func report(cmd *cobra.Command, job *pipeline.Job) error {
	snap := job.Snapshot()
	p := snap.Progress
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (pages %d, talk pages %d, failed %d, trees %d)\n",
		snap.Source, snap.Status, p.PagesSeen, p.TalkPages, p.PagesFailed, p.TreesEmitted)
	if snap.Status == pipeline.StatusFailed {
		if len(p.Errors) > 0 {
			return fmt.Errorf("parse %s: %s", snap.Source, p.Errors[len(p.Errors)-1])
		}
		return fmt.Errorf("parse %s failed", snap.Source)
	}
	return nil
}
