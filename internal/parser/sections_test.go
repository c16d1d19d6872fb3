package parser

import (
	"strings"
	"testing"
)

func TestSplitSections_FiltersAndTitles(t *testing.T) {
	input := `{{Talk header}}
Lead text nobody signs.
== First topic ==
is this right? [[User talk:Alice|Alice]] 12:34, 5 January 2020 (UTC)
===  Nested heading   ===
Yes it is.
== {| ==
{| class="wikitable"
|}
== Empty ==


== ==
orphan text
==Compact==
'''Bold''' opening still counts as prose.
`
	all := scanSections(input)
	if len(all) != 7 {
		t.Fatalf("expected 7 scanned sections, got %d", len(all))
	}

	wantSkip := []SkipReason{SkipUntitled, "", "", SkipNotProse, SkipEmpty, SkipUntitled, ""}
	for i, w := range wantSkip {
		if all[i].Skip != w {
			t.Errorf("section %d (%q): expected skip %q, got %q", i, all[i].Title, w, all[i].Skip)
		}
	}

	kept := SplitSections(input)
	wantTitles := []string{"First topic", "Nested heading", "Compact"}
	if len(kept) != len(wantTitles) {
		t.Fatalf("expected %d sections, got %d", len(wantTitles), len(kept))
	}
	for i, w := range wantTitles {
		if kept[i].Title != w {
			t.Errorf("section %d: expected title %q, got %q", i, w, kept[i].Title)
		}
	}
}

func TestSplitSections_RootAndReplies(t *testing.T) {
	input := `== Topic ==
opening comment
continues here
:first reply
::nested reply
:::deeper reply
::second nested
:second reply
unindented continuation

:third reply`

	secs := SplitSections(input)
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	sec := secs[0]

	if sec.Root != "opening comment\ncontinues here" {
		t.Errorf("expected root %q, got %q", "opening comment\ncontinues here", sec.Root)
	}
	if len(sec.Replies) != 3 {
		t.Fatalf("expected 3 top-level replies, got %d", len(sec.Replies))
	}

	first := sec.Replies[0]
	if first.Depth != 1 || first.Text != ":first reply" {
		t.Errorf("expected depth 1 %q, got depth %d %q", ":first reply", first.Depth, first.Text)
	}
	if len(first.Replies) != 2 {
		t.Fatalf("expected 2 nested replies, got %d", len(first.Replies))
	}
	if first.Replies[0].Text != "::nested reply" || first.Replies[1].Text != "::second nested" {
		t.Errorf("unexpected nested order: %q, %q", first.Replies[0].Text, first.Replies[1].Text)
	}
	if len(first.Replies[0].Replies) != 1 || first.Replies[0].Replies[0].Depth != 3 {
		t.Errorf("expected one depth-3 reply under the first nested reply")
	}

	second := sec.Replies[1]
	if second.Text != ":second reply\nunindented continuation" {
		t.Errorf("expected continuation line to join the reply, got %q", second.Text)
	}
	if sec.Replies[2].Text != ":third reply" {
		t.Errorf("expected %q, got %q", ":third reply", sec.Replies[2].Text)
	}
}

func TestSplitSections_ListClosedByBlankOrSignedLine(t *testing.T) {
	input := `== Topic ==
opening comment [[User talk:Alice|A]] 12:00, 5 January 2020 (UTC)
:reply by bob [[User talk:Bob|B]] 13:00, 5 January 2020 (UTC)

new unindented comment by carol [[User talk:Carol|C]] 13:00, 6 January 2020 (UTC)
:reply to carol [[User talk:Dave|D]] 14:00, 6 January 2020 (UTC)
another unindented comment [[User talk:Erin|E]] 15:00, 6 January 2020 (UTC)
trailing unsigned text
::late nested reply [[User talk:Bob|B]] 16:00, 6 January 2020 (UTC)`

	secs := SplitSections(input)
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	replies := secs[0].Replies
	if len(replies) != 2 {
		t.Fatalf("expected 2 top-level replies, got %d", len(replies))
	}

	bob := replies[0]
	if bob.Text != ":reply by bob [[User talk:Bob|B]] 13:00, 5 January 2020 (UTC)" {
		t.Errorf("expected blank line to close bob's reply, got %q", bob.Text)
	}
	dave := replies[1]
	if dave.Text != ":reply to carol [[User talk:Dave|D]] 14:00, 6 January 2020 (UTC)" {
		t.Errorf("expected signed unindented line to close dave's reply, got %q", dave.Text)
	}
	if len(dave.Replies) != 1 || dave.Replies[0].Depth != 2 {
		t.Fatalf("expected the next reply line to reopen the list under dave, got %+v", dave.Replies)
	}
	for _, f := range replies {
		for _, dropped := range []string{"carol [[User talk:Carol", "Erin", "trailing unsigned text"} {
			if strings.Contains(f.Span(), dropped) {
				t.Errorf("expected %q to be dropped, found it in %q", dropped, f.Span())
			}
		}
	}
}

func TestSplitSections_UnsignedLineAfterSignedReplyJoins(t *testing.T) {
	secs := SplitSections("== T ==\ntext\n:signed [[User talk:Bob|B]] 13:00, 5 January 2020 (UTC)\nP.S. one more thing")
	if len(secs) != 1 || len(secs[0].Replies) != 1 {
		t.Fatalf("expected a single reply, got %+v", secs)
	}
	if !strings.HasSuffix(secs[0].Replies[0].Text, "\nP.S. one more thing") {
		t.Errorf("expected unsigned line to continue the reply, got %q", secs[0].Replies[0].Text)
	}
}

func TestSplitSections_SkippedLevelKeepsDepth(t *testing.T) {
	secs := SplitSections("== T ==\ntext\n::too deep\n:ok")
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	replies := secs[0].Replies
	if len(replies) != 2 {
		t.Fatalf("expected 2 top-level replies, got %d", len(replies))
	}
	if replies[0].Depth != 2 {
		t.Errorf("expected first reply to keep depth 2, got %d", replies[0].Depth)
	}
}

func TestSplitSections_CRLF(t *testing.T) {
	secs := SplitSections("== T ==\r\ntext\r\n:reply\r\n")
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if len(secs[0].Replies) != 1 || strings.ContainsRune(secs[0].Replies[0].Text, '\r') {
		t.Errorf("expected a single clean reply, got %+v", secs[0].Replies)
	}
}

func TestSplitSections_NoHeaders(t *testing.T) {
	if secs := SplitSections("just a lead paragraph\n:with a reply"); len(secs) != 0 {
		t.Errorf("expected no sections without headers, got %d", len(secs))
	}
	if secs := SplitSections(""); len(secs) != 0 {
		t.Errorf("expected no sections for empty input, got %d", len(secs))
	}
}

func TestFragment_Span(t *testing.T) {
	f := &Fragment{
		Depth: 1,
		Text:  ":a",
		Replies: []*Fragment{
			{Depth: 2, Text: "::b", Replies: []*Fragment{{Depth: 3, Text: ":::c"}}},
			{Depth: 2, Text: "::d"},
		},
	}
	want := ":a\n::b\n:::c\n::d"
	if got := f.Span(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplitSections_ProseStartsWithLetterEitherCase(t *testing.T) {
	tests := []struct {
		body string
		skip SkipReason
	}{
		{"Uppercase start", ""},
		{"lowercase start", ""},
		{"[[Link]] start", ""},
		{"1. numbered start", SkipNotProse},
		{"É accented start", SkipNotProse},
		{"* bullet start", SkipNotProse},
	}
	for _, tt := range tests {
		secs := scanSections("== T ==\n" + tt.body)
		if len(secs) != 1 {
			t.Fatalf("%q: expected 1 section, got %d", tt.body, len(secs))
		}
		if secs[0].Skip != tt.skip {
			t.Errorf("%q: expected skip %q, got %q", tt.body, tt.skip, secs[0].Skip)
		}
	}
}
