// Package source defines the adapter contract every upstream content
// provider implements, plus the shared JSON fetch client.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// Page is one page of a source's paginated catalog listing.
type Page struct {
	Items      []catalog.ListItem
	TotalPages int
}

// Adapter translates one upstream provider's native listing and detail
// responses into the common RawMovie shape.
type Adapter interface {
	Name() string
	Host() string
	ListPage(ctx context.Context, page int) (Page, error)
	MovieDetail(ctx context.Context, slug string) (*catalog.RawMovie, error)
	// ShouldEnable is the adapter-specific gate evaluated after the config
	// gates; adapters use it to opt out when their upstream is known bad.
	ShouldEnable() bool
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d", e.URL, e.StatusCode)
}

// Client is the HTTP helper shared by adapters. Per-request pacing and
// concurrency belong to the dispatcher, not here.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a Client with the given timeout and user agent.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// AbsoluteImage rewrites a possibly relative image path onto imageHost,
// leaving already absolute URLs alone. Empty paths stay empty.
func AbsoluteImage(imageHost, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(imageHost, "/") + "/" + strings.TrimLeft(path, "/")
}

// ParseModified converts an upstream RFC3339 modification stamp to unix
// seconds, returning 0 for anything unparseable.
func ParseModified(stamp string) int64 {
	if stamp == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, stamp); err == nil {
			return t.Unix()
		}
	}
	return 0
}
