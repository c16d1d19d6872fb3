package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// nestingMarker is the character whose repetition at the start of a line
// gives the reply depth.
const nestingMarker = ':'

var (
	templateRe     = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	bareLinkRe     = regexp.MustCompile(`\[\[([^\[\]|]*)\]\]`)
	externalLinkRe = regexp.MustCompile(`\[(?:https?:)?//[^\s\]]+(?:\s+([^\]]*))?\]`)
	emphasisRe     = regexp.MustCompile(`'{2,5}`)
	headingLineRe  = regexp.MustCompile(`(?m)^[ \t]*=+[ \t]*(.*?)[ \t]*=+[ \t]*$`)
)

// maxTemplatePasses bounds the inside-out removal of nested {{templates}}.
const maxTemplatePasses = 8

// Clean turns a raw comment fragment into plain text. Bare [[target]] links
// collapse to their target, aliased [[target|alias]] links are kept as is,
// and leading nesting markers are removed from the start of the result only.
func Clean(fragment string) string {
	s := stripMarkup(fragment)
	s = strings.TrimLeft(s, ": \t\r\n")
	return strings.TrimSpace(s)
}

// stripMarkup removes markup decorations but keeps nesting markers.
func stripMarkup(s string) string {
	s = stripHTML(s)
	s = stripTemplates(s)
	s = bareLinkRe.ReplaceAllString(s, "$1")
	s = externalLinkRe.ReplaceAllString(s, "$1")
	s = emphasisRe.ReplaceAllString(s, "")
	s = headingLineRe.ReplaceAllString(s, "$1")
	return s
}

// inlineTags are the tags talk pages use for decoration. Anything else that
// looks like a tag, such as "a<b", is left as text.
const inlineTags = `small|span|br|sup|sub|s|u|nowiki|ref|font|div|b|i|big|code|tt|del|ins|center|abbr`

var (
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreakRe   = regexp.MustCompile(`(?i)<br\s*/?>`)
	inlineTagRe   = regexp.MustCompile(
		`(?i)</?(?:` + inlineTags + `)` +
			`(?:\s+[a-z][a-z0-9-]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>]+))*\s*/?>`,
	)
)

// stripHTML drops inline tags and comments (<small>, <span>, <!-- -->) and
// decodes entities such as &nbsp;.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	s = htmlCommentRe.ReplaceAllString(s, "")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = inlineTagRe.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}

func stripTemplates(s string) string {
	for range maxTemplatePasses {
		if !strings.Contains(s, "{{") {
			break
		}
		next := templateRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return s
}

// leadingMarkers counts nesting markers at the start of s.
func leadingMarkers(s string) int {
	n := 0
	for n < len(s) && s[n] == nestingMarker {
		n++
	}
	return n
}
