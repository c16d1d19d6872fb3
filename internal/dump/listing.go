package dump

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"golang.org/x/net/html"
)

// DefaultPattern matches the split "pages-meta-current" archives, which
// carry the latest revision of every page including talk pages.
var DefaultPattern = regexp.MustCompile(`enwiki-latest-pages-meta-current\d+\.xml-p\d+p\d+\.bz2$`)

// ListDumps fetches the dump index at indexURL and returns the absolute URLs
// of every linked file matching pattern, in page order and without duplicates.
func (c *Client) ListDumps(ctx context.Context, indexURL string, pattern *regexp.Regexp) ([]string, error) {
	if pattern == nil {
		pattern = DefaultPattern
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list dumps: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, indexURL); err != nil {
		return nil, err
	}

	return parseLinks(resp.Body, base, pattern)
}

func parseLinks(r io.Reader, base *url.URL, pattern *regexp.Regexp) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !pattern.MatchString(attr.Val) {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref).String()
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}
