// Package pagetext fetches a web page and reduces it to its visible text.
package pagetext

import (
	"context"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	xhtml "golang.org/x/net/html"
)

// DefaultCharLimit is the default maximum length, in characters, of the
// returned text.
const DefaultCharLimit = 120_000

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// noiseSelector lists elements whose text is never visible.
const noiseSelector = "script, style, noscript, svg"

// Fetcher retrieves pages and extracts their text.
type Fetcher struct {
	http      *http.Client
	charLimit int
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		f.http = hc
	}
}

// WithCharLimit overrides the truncation budget.
func WithCharLimit(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.charLimit = n
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:      &http.Client{Timeout: 12 * time.Second},
		charLimit: DefaultCharLimit,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Text fetches url and returns its visible text truncated to the char limit.
func (f *Fetcher) Text(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "pagetext: create request")
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "pagetext: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("pagetext: status %d from %s", resp.StatusCode, url)
	}

	return VisibleText(io.LimitReader(resp.Body, maxBodyBytes), f.charLimit)
}

// VisibleText parses an HTML document, drops script/style/noscript/svg
// elements and returns the remaining text with whitespace collapsed,
// truncated to limit characters (no limit when limit <= 0).
func VisibleText(r io.Reader, limit int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", eris.Wrap(err, "pagetext: parse html")
	}
	doc.Find(noiseSelector).Remove()

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}

	text := html.UnescapeString(strings.Join(parts, " "))
	return truncate(text, limit), nil
}

// collectText gathers text nodes in document order so adjacent elements
// stay separated by a space.
func collectText(n *xhtml.Node, parts *[]string) {
	if n.Type == xhtml.TextNode {
		if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
