package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/talkgest/internal/talktree"
)

const samplePage = `{{Talk header}}
== Split proposal ==
should this article be split? [[User talk:Alice|Alice]] 12:34, 5 January 2020 (UTC)
:No, it is fine. [[User talk:Bob|Bob]] 13:00, 5 January 2020 (UTC)
::
::Fair enough. [[User talk:Alice|Alice]] 14:00, 5 Jan 2020 (UTC)
:Unsigned comment with no signature
::Reply to unsigned [[User talk:Carol]] 15:00, 6 January 2020 (UTC)
:Agreed. [[User talk:Dave|D]]
== {{Archive box}} ==
{{Archive list}}
== ==
text under an empty header
== Sources ==
another topic without any signature
:reply without signature either
`

func newTestParser() *PageParser {
	return NewPageParser(Options{}, nil)
}

func TestParsePage_BuildsTrees(t *testing.T) {
	res := newTestParser().ParsePage(Page{Title: "Talk:Example", Namespace: "1", Text: samplePage})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Talk {
		t.Error("expected page to be treated as talk page")
	}
	if len(res.Trees) != 2 {
		t.Fatalf("expected 2 trees, got %d", len(res.Trees))
	}

	tree := res.Trees[0]
	if tree.Metadata.Title != "Split proposal" {
		t.Errorf("expected title %q, got %q", "Split proposal", tree.Metadata.Title)
	}
	if tree.Metadata.Topic != "Talk:Example" {
		t.Errorf("expected topic %q, got %q", "Talk:Example", tree.Metadata.Topic)
	}

	root := tree.Root
	if root.Role != talktree.RolePrompter {
		t.Errorf("expected root role prompter, got %q", root.Role)
	}
	if !strings.HasPrefix(root.Text, "should this article be split?") {
		t.Errorf("unexpected root text %q", root.Text)
	}
	if root.Metadata.Author != "Alice" {
		t.Errorf("expected root author Alice, got %q", root.Metadata.Author)
	}
	wantRootTime := time.Date(2020, time.January, 5, 12, 34, 0, 0, time.UTC)
	if root.Metadata.Timestamp == nil || !root.Metadata.Timestamp.Equal(wantRootTime) {
		t.Errorf("expected root timestamp %v, got %v", wantRootTime, root.Metadata.Timestamp)
	}

	// The unsigned reply and its subtree are gone; Dave's author-only reply stays.
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 replies to the root, got %d", len(root.Children))
	}
	bob := root.Children[0]
	if bob.Metadata.Author != "Bob" || bob.Role != talktree.RoleAssistant {
		t.Errorf("expected Bob as assistant, got %q as %q", bob.Metadata.Author, bob.Role)
	}
	if len(bob.Children) != 1 {
		t.Fatalf("expected blank reply to be skipped, got %d children", len(bob.Children))
	}
	alice := bob.Children[0]
	if alice.Role != talktree.RolePrompter || alice.Metadata.Author != "Alice" {
		t.Errorf("expected Alice as prompter, got %q as %q", alice.Metadata.Author, alice.Role)
	}
	wantAliceTime := time.Date(2020, time.January, 5, 14, 0, 0, 0, time.UTC)
	if alice.Metadata.Timestamp == nil || !alice.Metadata.Timestamp.Equal(wantAliceTime) {
		t.Errorf("expected %v, got %v", wantAliceTime, alice.Metadata.Timestamp)
	}
	if dave := root.Children[1]; dave.Metadata.Author != "Dave" || dave.Metadata.Timestamp != nil {
		t.Errorf("expected author-only reply from Dave, got %+v", dave.Metadata)
	}

	for i := range res.Trees {
		if err := talktree.Validate(&res.Trees[i]); err != nil {
			t.Errorf("tree %d: %v", i, err)
		}
	}
}

func TestParsePage_UnresolvedRootKept(t *testing.T) {
	res := newTestParser().ParsePage(Page{Title: "Talk:Example", Namespace: "1", Text: samplePage})
	if len(res.Trees) < 2 {
		t.Fatalf("expected the unsigned section to produce a tree, got %d trees", len(res.Trees))
	}
	tree := res.Trees[1]
	if tree.Metadata.Title != "Sources" {
		t.Errorf("expected title %q, got %q", "Sources", tree.Metadata.Title)
	}
	if !tree.Root.Metadata.Unresolved() {
		t.Errorf("expected unresolved root metadata, got %+v", tree.Root.Metadata)
	}
	if tree.Root.Text != "another topic without any signature" {
		t.Errorf("unexpected root text %q", tree.Root.Text)
	}
	if len(tree.Root.Children) != 0 {
		t.Errorf("expected unsigned depth-1 reply to be dropped, got %d children", len(tree.Root.Children))
	}
}

func TestParsePage_Stats(t *testing.T) {
	res := newTestParser().ParsePage(Page{Title: "Talk:Example", Namespace: "1", Text: samplePage})
	s := res.Stats
	if s.SectionsTotal != 5 {
		t.Errorf("expected 5 sections, got %d", s.SectionsTotal)
	}
	if s.SectionsSkipped[SkipUntitled] != 2 {
		t.Errorf("expected 2 untitled sections, got %d", s.SectionsSkipped[SkipUntitled])
	}
	if s.SectionsSkipped[SkipEmpty] != 1 {
		t.Errorf("expected 1 empty section, got %d", s.SectionsSkipped[SkipEmpty])
	}
	if s.TreesEmitted != 2 {
		t.Errorf("expected 2 trees emitted, got %d", s.TreesEmitted)
	}
	if s.RepliesKept != 3 {
		t.Errorf("expected 3 replies kept, got %d", s.RepliesKept)
	}
	if s.RepliesDropped != 2 {
		t.Errorf("expected 2 replies dropped, got %d", s.RepliesDropped)
	}
	if s.RepliesBlank != 1 {
		t.Errorf("expected 1 blank reply, got %d", s.RepliesBlank)
	}
}

func TestParsePage_NonTalkNamespace(t *testing.T) {
	res := newTestParser().ParsePage(Page{Title: "Example", Namespace: "0", Text: samplePage})
	if res.Talk {
		t.Error("expected article namespace not to be a talk page")
	}
	if len(res.Trees) != 0 {
		t.Errorf("expected no trees, got %d", len(res.Trees))
	}
	if res.Err != nil {
		t.Errorf("expected no error, got %v", res.Err)
	}
}

func TestParsePage_CustomNamespaces(t *testing.T) {
	p := NewPageParser(Options{TalkNamespaces: []string{"1", "3"}}, nil)
	if !p.IsTalk("3") || !p.IsTalk("1") || p.IsTalk("0") {
		t.Error("unexpected namespace membership")
	}
	res := p.ParsePage(Page{Title: "User talk:Alice", Namespace: "3", Text: samplePage})
	if len(res.Trees) != 2 {
		t.Errorf("expected 2 trees for user talk page, got %d", len(res.Trees))
	}
}

func TestParsePage_Idempotent(t *testing.T) {
	p := newTestParser()
	page := Page{Title: "Talk:Example", Namespace: "1", Text: samplePage}
	a := p.ParsePage(page)
	b := p.ParsePage(page)
	if !reflect.DeepEqual(a.Trees, b.Trees) {
		t.Error("expected identical trees across runs")
	}
	if !reflect.DeepEqual(a.Stats, b.Stats) {
		t.Errorf("expected identical stats, got %+v and %+v", a.Stats, b.Stats)
	}
}

func TestParsePage_SectionFailureIsContained(t *testing.T) {
	text := `== Deep ==
deep thread [[User talk:Alice|Alice]] 12:34, 5 January 2020 (UTC)
:one ` + sigBob + `
::two ` + sigAlice + `
:::three ` + sigBob + `
== Shallow ==
shallow thread [[User talk:Alice|Alice]] 12:34, 5 January 2020 (UTC)
:reply ` + sigBob + `
`
	p := NewPageParser(Options{MaxDepth: 2}, nil)
	res := p.ParsePage(Page{Title: "Talk:Deep", Namespace: "1", Text: text})
	if res.Err != nil {
		t.Fatalf("expected page to survive, got %v", res.Err)
	}
	if len(res.Trees) != 1 || res.Trees[0].Metadata.Title != "Shallow" {
		t.Fatalf("expected only the shallow section, got %d trees", len(res.Trees))
	}
	if len(res.SectionErrors) != 1 {
		t.Fatalf("expected 1 section error, got %d", len(res.SectionErrors))
	}
	serr := res.SectionErrors[0]
	if serr.Title != "Deep" || !errors.Is(serr, ErrNestingTooDeep) {
		t.Errorf("expected ErrNestingTooDeep for section Deep, got %v", serr)
	}
	if res.Stats.SectionsFailed != 1 {
		t.Errorf("expected 1 failed section, got %d", res.Stats.SectionsFailed)
	}
	if res.Stats.RepliesKept != 1 {
		t.Errorf("expected only the shallow section's reply to count, got %d kept", res.Stats.RepliesKept)
	}
	if res.Stats.RepliesDropped != 0 || res.Stats.RepliesMalformed != 0 {
		t.Errorf("expected no drops from the failed section, got %+v", res.Stats)
	}
}

func TestParsePage_LessThanInReply(t *testing.T) {
	text := `== Limits ==
is the bound right? [[User talk:Alice|Alice]] 12:34, 5 January 2020 (UTC)
:I think a<b holds here, and the rest matters [[User talk:Bob|B]] 13:00, 5 January 2020 (UTC)
`
	res := newTestParser().ParsePage(Page{Title: "Talk:Limits", Namespace: "1", Text: text})
	if len(res.Trees) != 1 || len(res.Trees[0].Root.Children) != 1 {
		t.Fatalf("expected one tree with one reply, got %+v", res.Trees)
	}
	reply := res.Trees[0].Root.Children[0]
	if !strings.HasPrefix(reply.Text, "I think a<b holds here, and the rest matters") {
		t.Errorf("expected reply text to survive the comparison, got %q", reply.Text)
	}
	if reply.Metadata.Author != "Bob" {
		t.Errorf("expected author Bob, got %q", reply.Metadata.Author)
	}
}

func TestParsePage_NewCommentAfterThreadNotMerged(t *testing.T) {
	text := `== Merge ==
should we merge? [[User talk:Alice|Alice]] 12:34, 5 January 2020 (UTC)
:No. [[User talk:Bob|Bob]] 13:00, 5 January 2020 (UTC)

new unindented comment by carol [[User talk:Carol|C]] 13:00, 6 January 2020 (UTC)
`
	res := newTestParser().ParsePage(Page{Title: "Talk:Merge", Namespace: "1", Text: text})
	if len(res.Trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(res.Trees))
	}
	children := res.Trees[0].Root.Children
	if len(children) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(children))
	}
	bob := children[0]
	if bob.Metadata.Author != "Bob" {
		t.Errorf("expected author Bob, got %q", bob.Metadata.Author)
	}
	if strings.Contains(bob.Text, "carol") {
		t.Errorf("expected carol's comment to stay out of bob's reply, got %q", bob.Text)
	}
}

func TestParsePage_EmptyBody(t *testing.T) {
	res := newTestParser().ParsePage(Page{Title: "Talk:Empty", Namespace: "1"})
	if len(res.Trees) != 0 || res.Err != nil {
		t.Errorf("expected no trees and no error, got %d, %v", len(res.Trees), res.Err)
	}
}

func TestStats_Add(t *testing.T) {
	var total Stats
	total.Add(Stats{SectionsTotal: 2, TreesEmitted: 1, SectionsSkipped: map[SkipReason]int{SkipEmpty: 1}})
	total.Add(Stats{SectionsTotal: 3, RepliesDropped: 4, SectionsSkipped: map[SkipReason]int{SkipEmpty: 2, SkipUntitled: 1}})
	if total.SectionsTotal != 5 || total.TreesEmitted != 1 || total.RepliesDropped != 4 {
		t.Errorf("unexpected totals: %+v", total)
	}
	if total.SectionsSkipped[SkipEmpty] != 3 || total.SectionsSkipped[SkipUntitled] != 1 {
		t.Errorf("unexpected skip totals: %+v", total.SectionsSkipped)
	}
}
