package metrics

import (
	"net/http"
	"time"

	"github.com/dgallion1/talkgest/internal/parser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page outcomes used as the "outcome" label of pages_total.
const (
	OutcomeParsed   = "parsed"
	OutcomeNotTalk  = "not_talk"
	OutcomeFailed   = "failed"
	OutcomeOversize = "oversize"
)

// Collector records parser activity as Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	pages           *prometheus.CounterVec
	sectionsSkipped *prometheus.CounterVec
	sectionsFailed  prometheus.Counter
	trees           prometheus.Counter
	replies         *prometheus.CounterVec
	parseDuration   prometheus.Histogram
	jobs            *prometheus.CounterVec

	Latency *LatencyStats
}

// NewCollector registers all metrics on registry, or on a fresh registry
// when registry is nil.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	const ns = "talkgest"

	c := &Collector{
		registry: registry,
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pages_total",
			Help:      "Pages processed, by outcome",
		}, []string{"outcome"}),
		sectionsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sections_skipped_total",
			Help:      "Sections filtered out before tree building, by reason",
		}, []string{"reason"}),
		sectionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sections_failed_total",
			Help:      "Sections that failed while building a tree",
		}),
		trees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "trees_total",
			Help:      "Conversation trees emitted",
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "replies_total",
			Help:      "Reply fragments seen, by outcome",
		}, []string{"outcome"}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "page_parse_duration_seconds",
			Help:      "Time spent parsing one talk page",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "jobs_total",
			Help:      "Ingest jobs finished, by final status",
		}, []string{"status"}),
		Latency: NewLatencyStats(time.Hour),
	}

	registry.MustRegister(
		c.pages,
		c.sectionsSkipped,
		c.sectionsFailed,
		c.trees,
		c.replies,
		c.parseDuration,
		c.jobs,
	)
	return c
}

// RecordPage records the outcome of one parsed page.
func (c *Collector) RecordPage(res parser.PageResult, d time.Duration) {
	switch {
	case !res.Talk:
		c.pages.WithLabelValues(OutcomeNotTalk).Inc()
		return
	case res.Err != nil:
		c.pages.WithLabelValues(OutcomeFailed).Inc()
	default:
		c.pages.WithLabelValues(OutcomeParsed).Inc()
	}

	c.parseDuration.Observe(d.Seconds())
	c.Latency.Record(d.Microseconds())

	s := res.Stats
	for reason, n := range s.SectionsSkipped {
		c.sectionsSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
	c.sectionsFailed.Add(float64(s.SectionsFailed))
	c.trees.Add(float64(len(res.Trees)))
	c.replies.WithLabelValues("kept").Add(float64(s.RepliesKept))
	c.replies.WithLabelValues("dropped").Add(float64(s.RepliesDropped))
	c.replies.WithLabelValues("blank").Add(float64(s.RepliesBlank))
	c.replies.WithLabelValues("malformed").Add(float64(s.RepliesMalformed))
}

// RecordOversize counts a page skipped for exceeding the size limit.
func (c *Collector) RecordOversize() {
	c.pages.WithLabelValues(OutcomeOversize).Inc()
}

// RecordJob counts a finished ingest job.
func (c *Collector) RecordJob(status string) {
	c.jobs.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
