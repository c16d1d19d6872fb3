package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDumpsURL    = "https://dumps.wikimedia.org/enwiki/latest/"
	defaultDumpPattern = `enwiki-latest-pages-meta-current\d+\.xml-p\d+p\d+\.bz2$`
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Dump source
	DumpsURL    string
	DumpPattern string
	DataDir     string
	HTTPTimeout time.Duration

	// Output
	OutputDir  string
	Sink       string
	SQLitePath string

	// Worker pool
	WorkerCount  int
	PageWorkers  int
	MaxQueueSize int

	// Parsing
	MaxReplyDepth  int
	TalkNamespaces []string
	MaxPageBytes   int64

	// Job state
	JobTTL time.Duration

	LogLevel string
}

// fileConfig mirrors Config for the optional YAML file. Zero values mean
// "not set" so the defaults and environment still apply.
type fileConfig struct {
	Port           string   `yaml:"port"`
	DumpsURL       string   `yaml:"dumps_url"`
	DumpPattern    string   `yaml:"dump_pattern"`
	DataDir        string   `yaml:"data_dir"`
	HTTPTimeout    string   `yaml:"http_timeout"`
	OutputDir      string   `yaml:"output_dir"`
	Sink           string   `yaml:"sink"`
	SQLitePath     string   `yaml:"sqlite_path"`
	WorkerCount    int      `yaml:"worker_count"`
	PageWorkers    int      `yaml:"page_workers"`
	MaxQueueSize   int      `yaml:"max_queue_size"`
	MaxReplyDepth  int      `yaml:"max_reply_depth"`
	TalkNamespaces []string `yaml:"talk_namespaces"`
	MaxPageBytes   int64    `yaml:"max_page_bytes"`
	JobTTL         string   `yaml:"job_ttl"`
	LogLevel       string   `yaml:"log_level"`
}

// Load builds the configuration from defaults, then the YAML file named by
// TALKGEST_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("TALKGEST_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("TALKGEST_API_KEY", cfg.APIKey)
	cfg.DumpsURL = envOr("DUMPS_URL", cfg.DumpsURL)
	cfg.DumpPattern = envOr("DUMP_PATTERN", cfg.DumpPattern)
	cfg.DataDir = envOr("DATA_DIR", cfg.DataDir)
	cfg.HTTPTimeout = envDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)
	cfg.Sink = envOr("SINK", cfg.Sink)
	cfg.SQLitePath = envOr("SQLITE_PATH", cfg.SQLitePath)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.PageWorkers = envInt("PAGE_WORKERS", cfg.PageWorkers)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxReplyDepth = envInt("MAX_REPLY_DEPTH", cfg.MaxReplyDepth)
	cfg.TalkNamespaces = envList("TALK_NAMESPACES", cfg.TalkNamespaces)
	cfg.MaxPageBytes = envInt64("MAX_PAGE_BYTES", cfg.MaxPageBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	d := defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = d.PageWorkers
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxReplyDepth <= 0 {
		cfg.MaxReplyDepth = d.MaxReplyDepth
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = d.MaxPageBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = d.HTTPTimeout
	}
	if len(cfg.TalkNamespaces) == 0 {
		cfg.TalkNamespaces = d.TalkNamespaces
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.OutputDir, "trees.db")
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		Port:           "8090",
		DumpsURL:       defaultDumpsURL,
		DumpPattern:    defaultDumpPattern,
		DataDir:        "data",
		HTTPTimeout:    30 * time.Minute,
		OutputDir:      "output",
		Sink:           "jsonl",
		WorkerCount:    2,
		PageWorkers:    4,
		MaxQueueSize:   100,
		MaxReplyDepth:  64,
		TalkNamespaces: []string{"1"},
		MaxPageBytes:   10 << 20, // 10MB
		JobTTL:         24 * time.Hour,
		LogLevel:       "info",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.DumpsURL, fc.DumpsURL)
	setString(&c.DumpPattern, fc.DumpPattern)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.OutputDir, fc.OutputDir)
	setString(&c.Sink, fc.Sink)
	setString(&c.SQLitePath, fc.SQLitePath)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.WorkerCount > 0 {
		c.WorkerCount = fc.WorkerCount
	}
	if fc.PageWorkers > 0 {
		c.PageWorkers = fc.PageWorkers
	}
	if fc.MaxQueueSize > 0 {
		c.MaxQueueSize = fc.MaxQueueSize
	}
	if fc.MaxReplyDepth > 0 {
		c.MaxReplyDepth = fc.MaxReplyDepth
	}
	if fc.MaxPageBytes > 0 {
		c.MaxPageBytes = fc.MaxPageBytes
	}
	if len(fc.TalkNamespaces) > 0 {
		c.TalkNamespaces = fc.TalkNamespaces
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("config file http_timeout: %w", err)
		}
		c.HTTPTimeout = d
	}
	if fc.JobTTL != "" {
		d, err := time.ParseDuration(fc.JobTTL)
		if err != nil {
			return fmt.Errorf("config file job_ttl: %w", err)
		}
		c.JobTTL = d
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Sink {
	case "jsonl", "sqlite":
	default:
		return fmt.Errorf("SINK must be jsonl or sqlite, got %q", c.Sink)
	}
	if _, err := regexp.Compile(c.DumpPattern); err != nil {
		return fmt.Errorf("DUMP_PATTERN is not a valid regexp: %w", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidateServe adds the checks needed to run the HTTP server.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("TALKGEST_API_KEY is required")
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
