// Package export renders conversation trees for human reading.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/talkgest/internal/talktree"
	"github.com/yuin/goldmark"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatOutline  Format = "outline"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown, FormatHTML, FormatOutline:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// ContentType is the HTTP content type for a rendered format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatOutline:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

const timeLayout = "2006-01-02 15:04 UTC"

// Markdown renders trees as headed, nested bullet lists.
func Markdown(trees []talktree.ConversationTree) string {
	var b strings.Builder
	for i := range trees {
		if i > 0 {
			b.WriteString("\n")
		}
		writeMarkdownTree(&b, &trees[i])
	}
	return b.String()
}

func writeMarkdownTree(b *strings.Builder, t *talktree.ConversationTree) {
	fmt.Fprintf(b, "## %s\n\n", t.Metadata.Title)
	if t.Metadata.Topic != "" {
		fmt.Fprintf(b, "*%s*\n\n", t.Metadata.Topic)
	}
	t.Walk(func(n *talktree.Node, depth int) bool {
		indent := strings.Repeat("  ", depth)
		text := n.Text
		if text == "" {
			text = "_(no text)_"
		}
		lines := strings.Split(text, "\n")
		fmt.Fprintf(b, "%s- **%s**%s: %s\n", indent, n.Role, signature(n.Metadata), lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(b, "%s  %s\n", indent, l)
		}
		return true
	})
}

func signature(m talktree.NodeMetadata) string {
	var parts []string
	if m.HasAuthor() {
		parts = append(parts, m.Author)
	}
	if m.HasTimestamp() {
		parts = append(parts, m.Timestamp.UTC().Format(timeLayout))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// HTML renders the Markdown form to HTML. Raw HTML in node text is omitted.
func HTML(trees []talktree.ConversationTree) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(trees)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Outline renders each node on one line, indented with one ':' per depth
// level the way talk pages indent replies.
func Outline(trees []talktree.ConversationTree) string {
	var b strings.Builder
	for i := range trees {
		t := &trees[i]
		fmt.Fprintf(&b, "== %s ==\n", t.Metadata.Title)
		t.Walk(func(n *talktree.Node, depth int) bool {
			text := strings.ReplaceAll(n.Text, "\n", " ")
			fmt.Fprintf(&b, "%s[%s] %s\n", strings.Repeat(":", depth), n.Role, text)
			return true
		})
	}
	return b.String()
}

// Render dispatches to the renderer for f. JSON is not handled here.
func Render(f Format, trees []talktree.ConversationTree) (string, error) {
	switch f {
	case FormatMarkdown:
		return Markdown(trees), nil
	case FormatHTML:
		return HTML(trees)
	case FormatOutline:
		return Outline(trees), nil
	default:
		return "", fmt.Errorf("format %q has no text renderer", f)
	}
}
