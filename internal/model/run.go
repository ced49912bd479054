package model

import "time"

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one batch invocation of the pipeline.
type Run struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"` // input file name or "upload"
	Status      RunStatus  `json:"status"`
	Total       int        `json:"total"`
	Stats       *RunStats  `json:"stats,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunStats counts which fallback stage produced each record's turnover.
type RunStats struct {
	BySource   map[TurnoverSource]int `json:"by_source"`
	DurationMs int64                  `json:"duration_ms"`
}

// Tally returns per-source counts for the given output records.
func Tally(records []OutputRecord) map[TurnoverSource]int {
	out := make(map[TurnoverSource]int)
	for _, r := range records {
		out[r.Source]++
	}
	return out
}
