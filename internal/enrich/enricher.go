// Package enrich turns one input record into one output record by running the
// turnover fallback chain and the category lookup.
package enrich

import (
	"context"
	"html"

	"go.uber.org/zap"

	"github.com/sells-group/turnover-cli/internal/model"
	"github.com/sells-group/turnover-cli/internal/money"
	"github.com/sells-group/turnover-cli/internal/taxonomy"
)

// Gatherer collects evidence text for a record.
type Gatherer interface {
	Gather(ctx context.Context, rec model.InputRecord) *model.Evidence
}

// Enricher runs the per-record state machine. It holds no per-record state
// and is safe for concurrent use.
type Enricher struct {
	gatherer  Gatherer
	extractor *money.Extractor
	taxonomy  *taxonomy.Taxonomy
}

// New creates an Enricher. A nil extractor uses money.NewExtractor and a nil
// taxonomy uses taxonomy.Default.
func New(g Gatherer, x *money.Extractor, tx *taxonomy.Taxonomy) *Enricher {
	if x == nil {
		x = money.NewExtractor()
	}
	if tx == nil {
		tx = taxonomy.Default()
	}
	return &Enricher{gatherer: g, extractor: x, taxonomy: tx}
}

// stage tries to produce a turnover value from text.
type stage struct {
	source model.TurnoverSource
	text   func(ev *model.Evidence) string
	try    func(x *money.Extractor, text string) (money.Value, bool)
}

func networkText(ev *model.Evidence) string {
	return ev.Joined(model.EvidenceSearch, model.EvidencePage)
}

func rawText(ev *model.Evidence) string {
	return ev.Joined(model.EvidenceRawField)
}

func single(x *money.Extractor, text string) (money.Value, bool) { return x.Extract(text) }

func ranged(x *money.Extractor, text string) (money.Value, bool) { return x.ExtractRange(text) }

// stages lists the extraction states in the order they are tried.
var stages = []stage{
	{model.SourceEvidence, networkText, single},
	{model.SourceEvidenceRange, networkText, ranged},
	{model.SourceRawField, rawText, single},
	{model.SourceRawFieldRange, rawText, ranged},
}

// Enrich produces the output record for rec. It always returns a turnover
// value: when every extraction stage misses, the keyword estimate is used.
func (e *Enricher) Enrich(ctx context.Context, rec model.InputRecord) model.OutputRecord {
	ev := &model.Evidence{}
	if e.gatherer != nil {
		ev = e.gatherer.Gather(ctx, rec)
	} else {
		ev.Add(model.EvidenceRawField, rec.TurnoverRaw)
	}

	value, source := e.turnover(ev, rec.Name)
	cat := e.taxonomy.InferCategory(rec.Name, html.UnescapeString(networkText(ev)))

	zap.L().Debug("enrich: record done",
		zap.String("company", rec.Name),
		zap.String("city", rec.City),
		zap.String("stage", string(source)),
		zap.String("turnover", value.String()),
	)

	return model.OutputRecord{
		CompanyName:   rec.Name,
		City:          rec.City,
		TurnoverInCr:  value.String(),
		Category:      cat.Category,
		SubCategory:   cat.SubCategory,
		MicroCategory: cat.MicroCategory,
		Source:        source,
	}
}

func (e *Enricher) turnover(ev *model.Evidence, name string) (money.Value, model.TurnoverSource) {
	for _, s := range stages {
		text := s.text(ev)
		if text == "" {
			continue
		}
		if v, ok := s.try(e.extractor, text); ok {
			return v, s.source
		}
	}
	return e.taxonomy.Estimate(name), model.SourceEstimate
}
