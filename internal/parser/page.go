package parser

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/talkgest/internal/talktree"
)

// TalkNamespace is the MediaWiki namespace id of article talk pages.
const TalkNamespace = "1"

// Page is one decoded page record from a dump.
type Page struct {
	Title     string
	Namespace string
	Text      string
}

// Stats counts what happened to the sections and replies of a page.
type Stats struct {
	SectionsTotal    int                `json:"sections_total"`
	SectionsSkipped  map[SkipReason]int `json:"sections_skipped"`
	SectionsFailed   int                `json:"sections_failed"`
	TreesEmitted     int                `json:"trees_emitted"`
	RepliesKept      int                `json:"replies_kept"`
	RepliesDropped   int                `json:"replies_dropped"`
	RepliesBlank     int                `json:"replies_blank"`
	RepliesMalformed int                `json:"replies_malformed"`
}

func (s *Stats) skip(reason SkipReason) {
	if s.SectionsSkipped == nil {
		s.SectionsSkipped = make(map[SkipReason]int)
	}
	s.SectionsSkipped[reason]++
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.SectionsTotal += o.SectionsTotal
	s.SectionsFailed += o.SectionsFailed
	s.TreesEmitted += o.TreesEmitted
	s.RepliesKept += o.RepliesKept
	s.RepliesDropped += o.RepliesDropped
	s.RepliesBlank += o.RepliesBlank
	s.RepliesMalformed += o.RepliesMalformed
	for r, n := range o.SectionsSkipped {
		if s.SectionsSkipped == nil {
			s.SectionsSkipped = make(map[SkipReason]int)
		}
		s.SectionsSkipped[r] += n
	}
}

// SectionError records a section that failed to build.
type SectionError struct {
	Index int
	Title string
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d %q: %v", e.Index, e.Title, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// PageResult is the outcome of parsing one page. Err is set when the page as
// a whole failed, in which case Trees is empty.
type PageResult struct {
	Title         string
	Talk          bool
	Trees         []talktree.ConversationTree
	SectionErrors []*SectionError
	Stats         Stats
	Err           error
}

// Options configures a PageParser.
type Options struct {
	TalkNamespaces []string // Defaults to TalkNamespace
	MaxDepth       int      // Defaults to DefaultMaxDepth
}

// PageParser turns talk pages into conversation trees. It holds no mutable
// state and is safe for concurrent use.
type PageParser struct {
	talk     map[string]bool
	maxDepth int
	log      *slog.Logger
}

func NewPageParser(opts Options, log *slog.Logger) *PageParser {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ns := opts.TalkNamespaces
	if len(ns) == 0 {
		ns = []string{TalkNamespace}
	}
	talk := make(map[string]bool, len(ns))
	for _, n := range ns {
		talk[n] = true
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &PageParser{talk: talk, maxDepth: maxDepth, log: log}
}

// IsTalk reports whether namespace is one of the configured talk namespaces.
func (p *PageParser) IsTalk(namespace string) bool {
	return p.talk[namespace]
}

// ParsePage extracts one conversation tree per surviving section of page.
// Non-talk pages yield an empty result. Failures never escape: a broken
// section is recorded in SectionErrors and a broken page in Err.
func (p *PageParser) ParsePage(page Page) (res PageResult) {
	res.Title = page.Title
	if !p.IsTalk(page.Namespace) {
		return res
	}
	res.Talk = true
	log := p.log.With("page", page.Title)

	defer func() {
		if r := recover(); r != nil {
			res.Trees = nil
			res.Stats.TreesEmitted = 0
			res.Err = fmt.Errorf("parse page %q: %v", page.Title, r)
			log.Warn("could not parse page", "error", res.Err)
		}
	}()

	for i, sec := range scanSections(page.Text) {
		res.Stats.SectionsTotal++
		if sec.Skip != "" {
			res.Stats.skip(sec.Skip)
			log.Debug("skipping section", "section", sec.Title, "reason", sec.Skip)
			continue
		}
		// Reply counts from a section that fails are discarded with it.
		var local Stats
		tree, err := p.buildSection(page.Title, sec, &local)
		if err != nil {
			res.Stats.SectionsFailed++
			serr := &SectionError{Index: i, Title: sec.Title, Err: err}
			res.SectionErrors = append(res.SectionErrors, serr)
			log.Warn("could not parse section", "error", serr)
			continue
		}
		res.Stats.Add(local)
		res.Trees = append(res.Trees, tree)
	}
	res.Stats.TreesEmitted = len(res.Trees)
	return res
}

// buildSection builds the tree for one section. The root is kept even when
// its signature cannot be resolved.
func (p *PageParser) buildSection(topic string, sec Section, stats *Stats) (tree talktree.ConversationTree, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	meta := ExtractMetadata(sec.Root)
	if meta.Unresolved() {
		p.log.Debug("could not resolve root signature", "page", topic, "section", sec.Title)
	}
	root := &talktree.Node{
		Text:     Clean(sec.Root),
		Role:     talktree.RolePrompter,
		Children: []*talktree.Node{},
		Metadata: meta,
	}

	b := ReplyBuilder{MaxDepth: p.maxDepth, Stats: stats}
	for _, frag := range sec.Replies {
		child, err := b.Build(root.Role, frag, 1)
		if err != nil {
			return talktree.ConversationTree{}, err
		}
		if child != nil {
			root.Children = append(root.Children, child)
		}
	}

	return talktree.ConversationTree{
		Root: root,
		Metadata: talktree.TreeMetadata{
			Title: sec.Title,
			Topic: topic,
		},
	}, nil
}
