// Package ddg is a client for the DuckDuckGo HTML search endpoint.
package ddg

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL    = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
)

// Client performs web searches.
type Client interface {
	// Search returns up to the configured number of results for query.
	Search(ctx context.Context, query string) ([]Result, error)
	// Ping checks that the search endpoint is reachable.
	Ping(ctx context.Context) error
}

// Result is one organic search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default search endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxResults caps the number of results returned per query.
func WithMaxResults(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

type httpClient struct {
	baseURL    string
	maxResults int
	http       *http.Client
}

// NewClient creates a DuckDuckGo HTML search client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:    defaultBaseURL,
		maxResults: defaultMaxResults,
		http: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, query string) (*http.Response, error) {
	u := c.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ddg: create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ddg: send request")
	}
	return resp, nil
}

func (c *httpClient) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ddg: unexpected status %d", resp.StatusCode)
	}

	return parseResults(resp.Body, c.maxResults)
}

// Ping succeeds whenever the endpoint answers, whatever the status.
func (c *httpClient) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "test")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.Body.Close()
}

func parseResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "ddg: parse html")
	}

	var out []Result
	doc.Find(".result").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		a := item.Find(".result__a").First()
		href, _ := a.Attr("href")
		href = CleanURL(href)
		if href == "" {
			return true
		}
		out = append(out, Result{
			URL:     href,
			Title:   squash(a.Text()),
			Snippet: squash(item.Find(".result__snippet").First().Text()),
		})
		return true
	})
	return out, nil
}

// CleanURL unwraps DuckDuckGo redirect links ("/l/?uddg=<target>") into the
// target URL. Other URLs are returned unchanged.
func CleanURL(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if real := u.Query().Get("uddg"); real != "" {
		return real
	}
	return href
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
