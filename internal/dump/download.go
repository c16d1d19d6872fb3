package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// FileName returns the local file name for a dump URL: its last path segment.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse dump url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("dump url %q has no file name", rawURL)
	}
	return name, nil
}

// Fetch downloads rawURL into dir and returns the local path. When a file of
// the same name already exists it is reused and downloaded is false.
func (c *Client) Fetch(ctx context.Context, rawURL, dir string) (localPath string, downloaded bool, err error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", false, err
	}
	localPath = filepath.Join(dir, name)

	if _, err := os.Stat(localPath); err == nil {
		return localPath, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("stat %s: %w", localPath, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create data dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, rawURL); err != nil {
		return "", false, err
	}

	// Write to a temp file first so an interrupted download never looks complete.
	tmp, err := os.CreateTemp(dir, name+".part-*")
	if err != nil {
		return "", false, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		return "", false, fmt.Errorf("rename %s: %w", name, err)
	}
	return localPath, true, nil
}
