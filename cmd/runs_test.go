package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnover-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Source:    "companies.csv",
			Status:    model.RunStatusComplete,
			Total:     120,
			StartedAt: now,
			Stats: &model.RunStats{
				BySource:   map[model.TurnoverSource]int{model.SourceRawField: 20, model.SourceEstimate: 100},
				DurationMs: 1500,
			},
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    "upload:a-very-long-file-name-that-needs-truncating.csv",
			Status:    model.RunStatusRunning,
			StartedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "companies.csv")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "120")
	assert.Contains(t, output, "1500ms")
	assert.Contains(t, output, "estimate=100,raw_field=20")
	assert.Contains(t, output, "upload:a-very-long-file-nam...")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatBySource_Empty(t *testing.T) {
	assert.Equal(t, "", formatBySource(nil))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestInitStore_NoneConfigured(t *testing.T) {
	_, err := initStore(context.Background(), testConfig())
	require.Error(t, err)
	assert.True(t, eris.Is(err, errNoStore))
}
