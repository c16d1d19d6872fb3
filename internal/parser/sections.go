package parser

import (
	"strings"
)

// SkipReason explains why a section produced no tree.
type SkipReason string

const (
	SkipUntitled SkipReason = "untitled"  // lead text before the first header, or "== =="
	SkipEmpty    SkipReason = "empty"     // nothing but whitespace under the header
	SkipNotProse SkipReason = "not_prose" // first char of the stripped body is not an ASCII letter, either case
)

// Fragment is one reply and everything nested beneath it.
type Fragment struct {
	Depth   int         // Leading nesting markers on the reply's first line
	Text    string      // The reply's own lines, markers included, without nested replies
	Replies []*Fragment // Direct sub-replies in document order
}

// Span reassembles the fragment's source text including nested replies.
func (f *Fragment) Span() string {
	var sb strings.Builder
	var write func(f *Fragment)
	write = func(f *Fragment) {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(f.Text)
		for _, r := range f.Replies {
			write(r)
		}
	}
	write(f)
	return sb.String()
}

// Section is one topic of a talk page.
type Section struct {
	Title   string      // Header text, "=" delimiters and whitespace trimmed
	Body    string      // Raw text below the header line
	Root    string      // Raw text preceding the first depth-1 reply
	Replies []*Fragment // Top-level replies in document order
	Skip    SkipReason  // Non-empty when the section is filtered out
}

// SplitSections splits a talk page body into its discussion sections and
// returns only those that look like natural-language conversations.
func SplitSections(body string) []Section {
	var out []Section
	for _, s := range scanSections(body) {
		if s.Skip == "" {
			out = append(out, s)
		}
	}
	return out
}

// scanSections returns every section of body in document order, with Skip
// set on those that should not become trees.
func scanSections(body string) []Section {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")

	var sections []Section
	var (
		title   string
		titled  bool
		current []string
	)
	flush := func() {
		if !titled && len(current) == 0 {
			return
		}
		sections = append(sections, newSection(title, titled, current))
	}

	for _, line := range lines {
		if t, ok := headingTitle(line); ok {
			flush()
			title, titled, current = t, true, nil
			continue
		}
		current = append(current, line)
	}
	flush()
	return sections
}

func newSection(title string, titled bool, lines []string) Section {
	s := Section{
		Title: title,
		Body:  strings.Join(lines, "\n"),
	}
	s.Root, s.Replies = splitReplies(lines)

	switch {
	case !titled || s.Title == "":
		s.Skip = SkipUntitled
	default:
		plain := strings.TrimSpace(stripMarkup(s.Body))
		if plain == "" {
			s.Skip = SkipEmpty
		} else if !isASCIILetter(plain[0]) {
			s.Skip = SkipNotProse
		}
	}
	return s
}

// headingTitle reports whether line is a section header such as "== Title ==".
func headingTitle(line string) (string, bool) {
	t := strings.TrimRight(line, " \t\r")
	if len(t) < 2 || t[0] != '=' || t[len(t)-1] != '=' {
		return "", false
	}
	return strings.Trim(t, "= \t"), true
}

// splitReplies separates the root comment from the indented replies that
// follow it. A reply line attaches to the nearest preceding reply with a
// smaller depth. An unindented line directly after a reply continues it,
// unless the reply is already signed and the line carries a signature of
// its own. A blank line or such a signed line closes the list: unindented
// text after it is dropped until the next reply line.
func splitReplies(lines []string) (string, []*Fragment) {
	var (
		root    []string
		replies []*Fragment
		stack   []*Fragment
		inList  bool
		closed  bool
	)
	for _, line := range lines {
		depth := leadingMarkers(line)
		if depth == 0 {
			switch {
			case !inList:
				root = append(root, line)
			case closed:
			case strings.TrimSpace(line) == "":
				closed = true
			default:
				top := stack[len(stack)-1]
				if signed(line) && signed(top.Text) {
					closed = true
					continue
				}
				top.Text += "\n" + line
			}
			continue
		}

		inList = true
		closed = false
		f := &Fragment{Depth: depth, Text: line}
		for len(stack) > 0 && stack[len(stack)-1].Depth >= depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			replies = append(replies, f)
		} else {
			parent := stack[len(stack)-1]
			parent.Replies = append(parent.Replies, f)
		}
		stack = append(stack, f)
	}
	return strings.Join(root, "\n"), replies
}

// signed reports whether text carries a user talk link or a signature date.
func signed(text string) bool {
	if _, ok := ExtractAuthor(text); ok {
		return true
	}
	_, ok := ExtractTimestamp(text)
	return ok
}

func isASCIILetter(c byte) bool {
	c |= 0x20
	return c >= 'a' && c <= 'z'
}
