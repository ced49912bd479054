package main

import (
	"context"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/turnover-cli/internal/config"
	"github.com/sells-group/turnover-cli/internal/enrich"
	"github.com/sells-group/turnover-cli/internal/evidence"
	"github.com/sells-group/turnover-cli/internal/fetcher"
	"github.com/sells-group/turnover-cli/internal/money"
	"github.com/sells-group/turnover-cli/internal/pipeline"
	"github.com/sells-group/turnover-cli/internal/resilience"
	"github.com/sells-group/turnover-cli/internal/store"
	"github.com/sells-group/turnover-cli/internal/taxonomy"
	"github.com/sells-group/turnover-cli/pkg/ddg"
	"github.com/sells-group/turnover-cli/pkg/pagetext"
)

// pipelineEnv holds the initialized store and pipeline needed by the run and
// serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when no store is configured
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the configured store, builds the search and page
// clients, and wires them into a Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	tx, err := taxonomy.Load(c.Taxonomy.Path)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}

	retry := resilience.FromRetryConfig(c.Fetch.MaxAttempts, c.Fetch.InitialBackoffMs, c.Fetch.MaxBackoffMs)

	limiters := map[string]*fetcher.AdaptiveLimiter{}
	if u, err := url.Parse(c.Search.BaseURL); err == nil && u.Host != "" {
		limiters[u.Host] = fetcher.NewAdaptiveLimiter(rate.Limit(c.Search.RatePerSec), 1)
	}

	searchHTTP := fetcher.NewClient(fetcher.HTTPOptions{
		UserAgent:       c.Search.UserAgent,
		Timeout:         c.Search.Timeout(),
		MaxConnsPerHost: c.Fetch.MaxConnsPerHost,
		Retry:           retry,
		Limiters:        limiters,
	})
	pageHTTP := fetcher.NewClient(fetcher.HTTPOptions{
		UserAgent:       c.Search.UserAgent,
		Timeout:         c.Fetch.Timeout(),
		MaxConnsPerHost: c.Fetch.MaxConnsPerHost,
		Retry:           retry,
	})

	search := ddg.NewClient(
		ddg.WithBaseURL(c.Search.BaseURL),
		ddg.WithHTTPClient(searchHTTP),
		ddg.WithMaxResults(c.Search.MaxResults),
	)
	pages := pagetext.New(
		pagetext.WithHTTPClient(pageHTTP),
		pagetext.WithCharLimit(c.Fetch.PageCharLimit),
	)

	gatherer := evidence.NewGatherer(search, pages, evidence.NewProbe(search.Ping), evidence.Options{
		Search:          !c.Pipeline.FastMode,
		DeepFetch:       c.Pipeline.DeepFetch,
		PageConcurrency: c.Fetch.PageConcurrency,
		CacheTTL:        c.Store.CacheTTL(),
	})

	extractor := money.NewExtractor()
	extractor.Window = c.Extract.Window
	extractor.MinBareAmount = c.Extract.MinBareAmount

	p := pipeline.New(enrich.New(gatherer, extractor, tx), c.Pipeline.Workers)
	if st != nil {
		gatherer.WithCache(st)
		p.WithLedger(st)
	}

	zap.L().Debug("pipeline initialized",
		zap.Bool("fast_mode", c.Pipeline.FastMode),
		zap.Bool("deep_fetch", c.Pipeline.DeepFetch),
		zap.Int("workers", c.Pipeline.Workers),
		zap.String("store", c.Store.Driver),
	)

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

// initStore opens the configured store, failing when none is configured.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errNoStore
	}
	return st, nil
}
