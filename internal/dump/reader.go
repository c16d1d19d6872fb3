package dump

import (
	"bufio"
	"compress/bzip2"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Page is one <page> element of a MediaWiki XML export, reduced to the
// fields needed to parse its latest revision.
type Page struct {
	Title     string
	Namespace string
	Text      string
}

type xmlPage struct {
	Title     string `xml:"title"`
	Namespace string `xml:"ns"`
	Revisions []struct {
		Text string `xml:"text"`
	} `xml:"revision"`
}

// Reader streams pages out of a MediaWiki XML export.
type Reader struct {
	dec    *xml.Decoder
	closer io.Closer
	count  int
}

// Open opens a dump file. Files ending in .bz2 are decompressed on the fly.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	var r io.Reader = bufio.NewReaderSize(f, 1<<20)
	if strings.HasSuffix(path, ".bz2") {
		r = bzip2.NewReader(r)
	}
	rd := NewReader(r)
	rd.closer = f
	return rd, nil
}

// NewReader reads an uncompressed XML export from r.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	return &Reader{dec: dec}
}

// Next returns the next page, or io.EOF once the export is exhausted.
func (r *Reader) Next() (Page, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Page{}, io.EOF
			}
			return Page{}, fmt.Errorf("read dump after %d pages: %w", r.count, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "page" {
			continue
		}

		var p xmlPage
		if err := r.dec.DecodeElement(&p, &se); err != nil {
			return Page{}, fmt.Errorf("decode page %d: %w", r.count+1, err)
		}
		r.count++

		page := Page{Title: p.Title, Namespace: strings.TrimSpace(p.Namespace)}
		if n := len(p.Revisions); n > 0 {
			page.Text = p.Revisions[n-1].Text
		}
		return page, nil
	}
}

// Count is the number of pages read so far.
func (r *Reader) Count() int { return r.count }

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
