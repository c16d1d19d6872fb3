package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/talkgest/internal/talktree"
)

const userTalkPrefix = "User talk:"

var userTalkRe = regexp.MustCompile(`\[\[User talk:.*?\]\]`)

// signatureRe matches the date part of a signature, e.g. "12:34, 5 January 2020".
// Day digits may carry up to three characters of ordinal debris ("5th").
var signatureRe = regexp.MustCompile(
	`\d{2}:\d{2}, (\b\d{1,2}\D{0,3})?\b` +
		`(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|` +
		`Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|(?:Nov|Dec)(?:ember)?)` +
		`\D?(\d{1,2}\D?)?\D?((19[7-9]\d|20\d{2})|\d{2})`,
)

// timestampLayouts are tried in order; the first that parses wins.
var timestampLayouts = []string{
	"15:04, 2 January 2006",
	"15:04, 2 Jan 2006",
}

// ExtractMetadata returns the author and timestamp found in a raw comment
// fragment. Missing values are left empty; it never fails.
func ExtractMetadata(fragment string) talktree.NodeMetadata {
	var meta talktree.NodeMetadata
	if author, ok := ExtractAuthor(fragment); ok {
		meta.Author = author
	}
	if ts, ok := ExtractTimestamp(fragment); ok {
		meta.Timestamp = &ts
	}
	return meta
}

// ExtractAuthor looks for exactly one [[User talk:Name]] or
// [[User talk:Name|alias]] link. Zero or several links mean the
// attribution is ambiguous and no author is returned.
func ExtractAuthor(fragment string) (string, bool) {
	links := userTalkRe.FindAllString(fragment, -1)
	if len(links) != 1 {
		return "", false
	}
	link := links[0]
	start := strings.Index(link, userTalkPrefix) + len(userTalkPrefix)
	end := strings.IndexByte(link, '|')
	if end == -1 {
		end = strings.LastIndex(link, "]]")
	}
	if end <= start {
		return "", false
	}
	name := link[start:end]
	if name == "" {
		return "", false
	}
	return name, true
}

// ExtractTimestamp finds the first signature date in fragment and parses it
// with the full month layout, then the abbreviated one.
func ExtractTimestamp(fragment string) (time.Time, bool) {
	match := signatureRe.FindString(fragment)
	if match == "" {
		return time.Time{}, false
	}
	return parseSignatureTime(match)
}

func parseSignatureTime(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
