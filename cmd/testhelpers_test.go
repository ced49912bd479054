package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnover-cli/internal/config"
	"github.com/sells-group/turnover-cli/internal/pipeline"
)

// testConfig returns a valid fast-mode config with no store.
func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{Workers: 4, FastMode: true},
		Search: config.SearchConfig{
			BaseURL:     "https://html.duckduckgo.com/html/",
			MaxResults:  5,
			TimeoutSecs: 2,
			RatePerSec:  2,
		},
		Fetch: config.FetchConfig{
			TimeoutSecs:      2,
			PageCharLimit:    120000,
			PageConcurrency:  2,
			MaxAttempts:      1,
			InitialBackoffMs: 10,
			MaxBackoffMs:     10,
			MaxConnsPerHost:  4,
		},
		Extract: config.ExtractConfig{Window: 80, MinBareAmount: 1e6},
		Store:   config.StoreConfig{Driver: "none", CacheTTLHours: 1},
		Server:  config.ServerConfig{Port: 8080, MaxUploadMB: 1},
		Log:     config.LogConfig{Level: "error", Format: "json"},
	}
}

func testPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	env, err := initPipeline(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env.Pipeline
}
