package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/talkgest/internal/dump"
	"github.com/dgallion1/talkgest/internal/metrics"
	"github.com/dgallion1/talkgest/internal/parser"
	"github.com/dgallion1/talkgest/internal/sink"
)

// SinkFactory opens the output for one job. The worker closes it when the
// job ends.
type SinkFactory func(jobID string) (sink.Sink, error)

// WorkerConfig holds the knobs a Worker needs from the service config.
type WorkerConfig struct {
	DataDir      string
	PageWorkers  int
	MaxPageBytes int64
}

// Worker processes a single dump job.
type Worker struct {
	client  *dump.Client
	parser  *parser.PageParser
	metrics *metrics.Collector
	newSink SinkFactory
	log     *slog.Logger
	cfg     WorkerConfig

	backoff func(attempt int) time.Duration
}

func NewWorker(client *dump.Client, p *parser.PageParser, m *metrics.Collector, newSink SinkFactory, log *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}
	return &Worker{
		client:  client,
		parser:  p,
		metrics: m,
		newSink: newSink,
		log:     log,
		cfg:     cfg,
		backoff: Backoff,
	}
}

// Process runs the full ingest pipeline for a job: resolve the dump file,
// stream its pages through the parser and write the trees to the sink.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source)
	status := w.process(ctx, job, log)
	if w.metrics != nil {
		w.metrics.RecordJob(string(status))
	}
}

func (w *Worker) process(ctx context.Context, job *Job, log *slog.Logger) JobStatus {
	fail := func(phase string, err error) JobStatus {
		log.Error("job failed", "phase", phase, "error", err)
		job.AddError(fmt.Sprintf("%s: %s", phase, err))
		job.SetStatus(StatusFailed, phase)
		return StatusFailed
	}

	// Phase 1: Download
	job.SetStatus(StatusDownloading, "downloading")
	path, err := w.resolve(ctx, job.Source, log)
	if err != nil {
		return fail("downloading", err)
	}
	job.SetLocalPath(path)

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	r, err := dump.Open(path)
	if err != nil {
		return fail("parsing", err)
	}
	defer r.Close()

	out, err := w.newSink(job.ID)
	if err != nil {
		return fail("parsing", fmt.Errorf("open sink: %w", err))
	}

	pageErrs, readErr := w.parsePages(ctx, r, out, job, log)
	if err := out.Close(); err != nil {
		log.Error("close sink failed", "error", err)
		job.AddError(fmt.Sprintf("close sink: %s", err))
		pageErrs++
	}

	snap := job.Snapshot()
	log.Info("parse complete",
		"pages", snap.Progress.PagesSeen,
		"talk_pages", snap.Progress.TalkPages,
		"pages_failed", snap.Progress.PagesFailed,
		"trees", snap.Progress.TreesEmitted,
	)

	switch {
	case readErr != nil && snap.Progress.PagesSeen == 0:
		return fail("parsing", readErr)
	case readErr != nil:
		job.AddError(fmt.Sprintf("read: %s", readErr))
		job.SetStatus(StatusPartial, "done")
		return StatusPartial
	case pageErrs > 0:
		job.SetStatus(StatusPartial, "done")
		return StatusPartial
	default:
		job.SetStatus(StatusCompleted, "done")
		return StatusCompleted
	}
}

// resolve returns a local path for source, downloading it into the data
// directory when it is a URL.
func (w *Worker) resolve(ctx context.Context, source string, log *slog.Logger) (string, error) {
	if !isURL(source) {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("dump file: %w", err)
		}
		return source, nil
	}

	var lastErr error
	for attempt := range MaxRetries {
		path, downloaded, err := w.client.Fetch(ctx, source, w.cfg.DataDir)
		if err == nil {
			if downloaded {
				log.Info("downloaded dump", "path", path)
			} else {
				log.Info("dump already downloaded", "path", path)
			}
			return path, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		log.Warn("retryable download error", "attempt", attempt, "error", err)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// parsePages fans pages out to PageWorkers goroutines. It returns the number
// of pages that failed and the error that stopped reading, if any.
func (w *Worker) parsePages(ctx context.Context, r *dump.Reader, out sink.Sink, job *Job, log *slog.Logger) (int, error) {
	pages := make(chan dump.Page, w.cfg.PageWorkers*2)
	var failed int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range w.cfg.PageWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pg := range pages {
				if !w.handlePage(ctx, pg, out, job, log) {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	var readErr error
	for {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}
		pg, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		pages <- pg
	}
	close(pages)
	wg.Wait()
	return failed, readErr
}

// handlePage parses and stores one page. It returns false when the page
// failed.
func (w *Worker) handlePage(ctx context.Context, pg dump.Page, out sink.Sink, job *Job, log *slog.Logger) bool {
	if w.cfg.MaxPageBytes > 0 && int64(len(pg.Text)) > w.cfg.MaxPageBytes && w.parser.IsTalk(pg.Namespace) {
		log.Warn("page too large, skipping", "page", pg.Title, "bytes", len(pg.Text))
		if w.metrics != nil {
			w.metrics.RecordOversize()
		}
		job.RecordPage(true, true, 0)
		return false
	}

	start := time.Now()
	res := w.parser.ParsePage(parser.Page(pg))
	if w.metrics != nil {
		w.metrics.RecordPage(res, time.Since(start))
	}

	if res.Err != nil {
		job.AddError(res.Err.Error())
		job.RecordPage(res.Talk, true, 0)
		return false
	}
	if err := out.Write(ctx, res.Title, res.Trees); err != nil {
		log.Error("write trees failed", "page", res.Title, "error", err)
		job.AddError(fmt.Sprintf("write %s: %s", res.Title, err))
		job.RecordPage(res.Talk, true, 0)
		return false
	}
	job.RecordPage(res.Talk, false, len(res.Trees))
	return true
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
