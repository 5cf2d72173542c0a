// Package wiki fetches the introduction of a Wikipedia article as plain text.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/agenthands/beacon/internal/config"
)

type Fetcher interface {
	FetchIntro(ctx context.Context, uri string) (string, error)
}

// Client reads the REST summary endpoint and strips any markup.
type Client struct {
	baseURL string
	http    *http.Client
	policy  *bluemonday.Policy
}

func NewClient(cfg config.WikiConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		policy:  bluemonday.StrictPolicy(),
	}
}

type summary struct {
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
}

// FetchIntro accepts a wiki article uri such as
// http://en.wikipedia.org/wiki/Measles and returns its lead section.
func (c *Client) FetchIntro(ctx context.Context, uri string) (string, error) {
	title, err := articleTitle(uri)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/page/summary/"+url.PathEscape(title), nil)
	if err != nil {
		return "", fmt.Errorf("wiki: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wiki: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wiki: http %d for %s", resp.StatusCode, title)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", fmt.Errorf("wiki: read body: %w", err)
	}
	var s summary
	if err := json.Unmarshal(body, &s); err != nil {
		return "", fmt.Errorf("wiki: json decode: %w", err)
	}

	text := s.Extract
	if s.ExtractHTML != "" {
		text = html.UnescapeString(c.policy.Sanitize(s.ExtractHTML))
	}
	return strings.TrimSpace(text), nil
}

func articleTitle(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("wiki: parse uri %q: %w", uri, err)
	}
	i := strings.LastIndex(u.Path, "/wiki/")
	if i == -1 || i+len("/wiki/") == len(u.Path) {
		return "", fmt.Errorf("wiki: %q is not an article uri", uri)
	}
	return u.Path[i+len("/wiki/"):], nil
}
