package dump

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultIndexURL lists the most recent English Wikipedia dump files.
const DefaultIndexURL = "https://dumps.wikimedia.org/enwiki/latest/"

const userAgent = "talkgest/1.0 (+https://github.com/dgallion1/talkgest)"

// Client fetches dump listings and dump files over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client whose requests time out after timeout. Dump
// files are large, so a zero timeout (no limit) is common for downloads.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RetryableError indicates a transient HTTP failure that can be retried.
type RetryableError struct {
	URL        string
	StatusCode int
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d) fetching %s", e.StatusCode, e.URL)
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{URL: url, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
