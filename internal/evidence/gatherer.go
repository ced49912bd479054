// Package evidence gathers free text about a company from the record's own
// turnover field and, optionally, web search results and fetched pages.
package evidence

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/turnover-cli/internal/model"
	"github.com/sells-group/turnover-cli/pkg/ddg"
)

// PageFetcher returns the visible text of a web page.
type PageFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Cache stores search results and page text between runs. Implementations
// report a miss with ok == false.
type Cache interface {
	GetSearch(ctx context.Context, query string) (results []model.SearchResult, ok bool, err error)
	SetSearch(ctx context.Context, query string, results []model.SearchResult, ttl time.Duration) error
	GetPage(ctx context.Context, url string) (text string, ok bool, err error)
	SetPage(ctx context.Context, url, text string, ttl time.Duration) error
}

// Options selects which network sources are consulted.
type Options struct {
	// Search enables web search snippets and titles. Disabled in fast mode.
	Search bool
	// DeepFetch additionally fetches the text of every unique result URL.
	DeepFetch bool
	// PageConcurrency bounds parallel page fetches within one record.
	PageConcurrency int
	// CacheTTL is how long cached searches and pages stay valid.
	CacheTTL time.Duration
}

// Gatherer assembles Evidence for one record. It is safe for concurrent use.
type Gatherer struct {
	search ddg.Client
	pages  PageFetcher
	probe  *Probe
	cache  Cache
	opts   Options
}

// NewGatherer creates a Gatherer. search and pages may be nil when the
// corresponding mode is off; probe may be nil to skip the availability check.
func NewGatherer(search ddg.Client, pages PageFetcher, probe *Probe, opts Options) *Gatherer {
	if opts.PageConcurrency <= 0 {
		opts.PageConcurrency = 2
	}
	return &Gatherer{
		search: search,
		pages:  pages,
		probe:  probe,
		opts:   opts,
	}
}

// WithCache enables the search/page cache.
func (g *Gatherer) WithCache(c Cache) *Gatherer {
	g.cache = c
	return g
}

// Gather collects evidence for rec. Source failures are logged and skipped;
// Gather never fails.
func (g *Gatherer) Gather(ctx context.Context, rec model.InputRecord) *model.Evidence {
	ev := &model.Evidence{}
	ev.Add(model.EvidenceRawField, rec.TurnoverRaw)

	if !g.opts.Search || g.search == nil {
		return ev
	}
	if g.probe != nil && !g.probe.Available(ctx) {
		return ev
	}

	log := zap.L().With(zap.String("company", rec.Name), zap.String("city", rec.City))

	seen := make(map[string]bool)
	var urls []string
	for _, q := range Queries(rec.Name, rec.City) {
		results, err := g.searchCached(ctx, q)
		if err != nil {
			log.Debug("evidence: search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, r := range results {
			ev.Add(model.EvidenceSearch, r.Snippet)
			ev.Add(model.EvidenceSearch, r.Title)
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}

	if g.opts.DeepFetch && g.pages != nil {
		for _, text := range g.fetchPages(ctx, urls) {
			ev.Add(model.EvidencePage, text)
		}
	}

	log.Debug("evidence: gathered",
		zap.Int("texts", ev.Len()),
		zap.Int("unique_urls", len(urls)),
	)
	return ev
}

// fetchPages fetches urls concurrently and returns their texts in url order.
// Failed fetches yield an empty string.
func (g *Gatherer) fetchPages(ctx context.Context, urls []string) []string {
	texts := make([]string, len(urls))

	var eg errgroup.Group
	eg.SetLimit(g.opts.PageConcurrency)
	for i, u := range urls {
		eg.Go(func() error {
			text, err := g.pageCached(ctx, u)
			if err != nil {
				zap.L().Debug("evidence: page fetch failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = eg.Wait()

	return texts
}

func (g *Gatherer) searchCached(ctx context.Context, query string) ([]model.SearchResult, error) {
	if g.cache != nil {
		cached, ok, err := g.cache.GetSearch(ctx, query)
		if err != nil {
			zap.L().Debug("evidence: search cache read failed", zap.String("query", query), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	hits, err := g.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, model.SearchResult{URL: h.URL, Title: h.Title, Snippet: h.Snippet})
	}

	// Empty pages are often blocks or captchas; retry them on the next run.
	if g.cache != nil && len(results) > 0 {
		if err := g.cache.SetSearch(ctx, query, results, g.opts.CacheTTL); err != nil {
			zap.L().Debug("evidence: search cache write failed", zap.String("query", query), zap.Error(err))
		}
	}
	return results, nil
}

func (g *Gatherer) pageCached(ctx context.Context, url string) (string, error) {
	if g.cache != nil {
		text, ok, err := g.cache.GetPage(ctx, url)
		if err != nil {
			zap.L().Debug("evidence: page cache read failed", zap.String("url", url), zap.Error(err))
		} else if ok {
			return text, nil
		}
	}

	text, err := g.pages.Text(ctx, url)
	if err != nil {
		return "", err
	}

	if g.cache != nil {
		if err := g.cache.SetPage(ctx, url, text, g.opts.CacheTTL); err != nil {
			zap.L().Debug("evidence: page cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return text, nil
}
