// Package pipeline fans input records out to a bounded worker pool and
// collects the enriched rows back in input order.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/turnover-cli/internal/model"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 6

// Enricher produces one output record per input record. Implementations must
// be safe for concurrent use and must not fail.
type Enricher interface {
	Enrich(ctx context.Context, rec model.InputRecord) model.OutputRecord
}

// Ledger records batch runs. Ledger errors are logged and never fail a batch.
type Ledger interface {
	CreateRun(ctx context.Context, source string, total int) (*model.Run, error)
	CompleteRun(ctx context.Context, id string, status model.RunStatus, stats *model.RunStats) error
}

// Pipeline orchestrates a batch.
type Pipeline struct {
	enricher Enricher
	workers  int
	ledger   Ledger
}

// New creates a Pipeline running at most workers records at once.
func New(e Enricher, workers int) *Pipeline {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pipeline{enricher: e, workers: workers}
}

// WithLedger enables run bookkeeping.
func (p *Pipeline) WithLedger(l Ledger) *Pipeline {
	p.ledger = l
	return p
}

// Result is the outcome of one batch.
type Result struct {
	RunID   string
	Records []model.OutputRecord // Records[i] corresponds to input i
	Stats   model.RunStats
}

// Process enriches every record and returns the rows in input order,
// independent of completion order. A record never aborts the batch.
func (p *Pipeline) Process(ctx context.Context, source string, records []model.InputRecord) *Result {
	start := time.Now()
	log := zap.L().With(zap.String("source", source))
	res := &Result{Records: make([]model.OutputRecord, len(records))}

	if p.ledger != nil {
		run, err := p.ledger.CreateRun(ctx, source, len(records))
		if err != nil {
			log.Warn("pipeline: failed to create run", zap.Error(err))
		} else {
			res.RunID = run.ID
			log = log.With(zap.String("run_id", run.ID))
		}
	}

	log.Info("pipeline: starting batch",
		zap.Int("records", len(records)),
		zap.Int("workers", p.workers),
	)

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, rec := range records {
		g.Go(func() error {
			res.Records[i] = p.enricher.Enrich(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	res.Stats = model.RunStats{
		BySource:   model.Tally(res.Records),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if p.ledger != nil && res.RunID != "" {
		if err := p.ledger.CompleteRun(context.WithoutCancel(ctx), res.RunID, model.RunStatusComplete, &res.Stats); err != nil {
			log.Warn("pipeline: failed to complete run", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.Int("records", len(records)),
		zap.Int64("duration_ms", res.Stats.DurationMs),
	}
	for src, n := range res.Stats.BySource {
		fields = append(fields, zap.Int("from_"+string(src), n))
	}
	log.Info("pipeline: batch complete", fields...)

	return res
}
