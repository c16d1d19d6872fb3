package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/talkgest/internal/config"
	"github.com/dgallion1/talkgest/internal/dump"
	"github.com/dgallion1/talkgest/internal/metrics"
	"github.com/dgallion1/talkgest/internal/parser"
	"github.com/dgallion1/talkgest/internal/pipeline"
	"github.com/dgallion1/talkgest/internal/sink"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "talkgest",
	Short: "Turn Wikipedia talk pages into conversation trees",
	Long: `talkgest reads MediaWiki XML dumps, splits every talk page into its
discussion sections and turns each section into a tree of alternating
prompter/assistant turns with author and timestamp metadata.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (overrides TALKGEST_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

// loadConfig reads .env, the optional YAML file and the environment.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	if cfgFile != "" {
		os.Setenv("TALKGEST_CONFIG", cfgFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newPageParser(cfg config.Config, log *slog.Logger) *parser.PageParser {
	return parser.NewPageParser(parser.Options{
		TalkNamespaces: cfg.TalkNamespaces,
		MaxDepth:       cfg.MaxReplyDepth,
	}, log)
}

func newWorker(cfg config.Config, client *dump.Client, m *metrics.Collector, newSink pipeline.SinkFactory, log *slog.Logger) *pipeline.Worker {
	return pipeline.NewWorker(client, newPageParser(cfg, log), m, newSink, log, pipeline.WorkerConfig{
		DataDir:      cfg.DataDir,
		PageWorkers:  cfg.PageWorkers,
		MaxPageBytes: cfg.MaxPageBytes,
	})
}

// openSinks builds the per-job sink factory for the configured SINK. For
// sqlite every job shares one store, which is returned so the caller can
// close it and query it.
func openSinks(cfg config.Config, log *slog.Logger) (pipeline.SinkFactory, *sink.SQLiteStore, error) {
	kind, err := sink.ParseKind(cfg.Sink)
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case sink.KindSQLite:
		store, err := sink.NewSQLiteStore(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return func(string) (sink.Sink, error) { return sink.NopCloser(store), nil }, store, nil
	default:
		return func(jobID string) (sink.Sink, error) {
			return sink.CreateJSONL(filepath.Join(cfg.OutputDir, jobID+".jsonl"))
		}, nil, nil
	}
}
