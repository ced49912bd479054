package money

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultWindow is the number of characters on each side of a match that
// are searched for turnover vocabulary.
const DefaultWindow = 80

// DefaultMinBareAmount is the smallest number accepted without a magnitude
// word or currency marker.
const DefaultMinBareAmount = 1_000_000

const unitPattern = `crores|crore|cr|lakhs|lakh|thousand|million|mn|m|billion|bn`

var (
	mentionRe = regexp.MustCompile(`(?i)` +
		`(?:(?P<cur1>₹|\$|€|£|\binr|\busd|\beur|\bgbp|\brs\.?)\s*)?` +
		`(?P<num>\d[\d,]*(?:\.\d+)?)` +
		`(?:\s*(?P<unit>` + unitPattern + `)\b)?` +
		`(?:\s*(?P<cur2>inr|usd|eur|gbp)\b)?`)

	turnoverVocabRe = regexp.MustCompile(`\b(turnover|revenue|sales|income|annual report|financial statement|fy\s?\d{2,4})\b`)
	exactPhraseRe   = regexp.MustCompile(`\b(turnover|revenue|annual turnover)\b`)

	idxCur1 = mentionRe.SubexpIndex("cur1")
	idxNum  = mentionRe.SubexpIndex("num")
	idxUnit = mentionRe.SubexpIndex("unit")
	idxCur2 = mentionRe.SubexpIndex("cur2")
)

// Candidate is one monetary mention that survived context filtering.
type Candidate struct {
	Amount   float64
	Unit     string // empty when absent
	Currency string // raw marker, empty when absent
	Context  string // lowercased window around the mention
	Score    float64
	Value    Value
}

// Extractor finds the monetary mention in a text most likely to be an
// annual turnover figure.
type Extractor struct {
	// Window is the context width, in characters, on each side of a match.
	Window int
	// MinBareAmount discards numbers with neither unit nor currency below it.
	MinBareAmount float64
}

// NewExtractor returns an Extractor with the default window and threshold.
func NewExtractor() *Extractor {
	return &Extractor{Window: DefaultWindow, MinBareAmount: DefaultMinBareAmount}
}

var defaultExtractor = NewExtractor()

// Extract runs the default Extractor over text.
func Extract(text string) (Value, bool) {
	return defaultExtractor.Extract(text)
}

// ExtractRange runs the default Extractor's range detection over text.
func ExtractRange(text string) (Value, bool) {
	return defaultExtractor.ExtractRange(text)
}

// Extract returns the canonical value of the best-scoring candidate in text.
// On equal scores the earliest mention wins.
func (x *Extractor) Extract(text string) (Value, bool) {
	best, ok := pickBest(x.Candidates(text))
	if !ok {
		return 0, false
	}
	return best.Value, true
}

func pickBest(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}

// Candidates returns every mention in text that passes context gating and
// the bare-number filter, scored, in text order.
func (x *Extractor) Candidates(text string) []Candidate {
	t := html.UnescapeString(text)

	var out []Candidate
	for _, m := range mentionRe.FindAllStringSubmatchIndex(t, -1) {
		ctx := strings.ToLower(window(t, m[0], m[1], x.Window))
		if !turnoverVocabRe.MatchString(ctx) {
			continue
		}

		amount, err := strconv.ParseFloat(strings.ReplaceAll(group(t, m, idxNum), ",", ""), 64)
		if err != nil {
			continue
		}
		unit := strings.ToLower(group(t, m, idxUnit))
		cur := group(t, m, idxCur1)
		if cur == "" {
			cur = group(t, m, idxCur2)
		}
		if unit == "" && cur == "" && amount < x.MinBareAmount {
			continue
		}

		score := 1.0
		if unit != "" {
			score += 1.0
		}
		if cur != "" {
			score += 0.5
		}
		if exactPhraseRe.MatchString(ctx) {
			score += 1.0
		}

		out = append(out, Candidate{
			Amount:   amount,
			Unit:     unit,
			Currency: cur,
			Context:  ctx,
			Score:    score,
			Value:    Normalize(amount, unit, cur),
		})
	}
	return out
}

const rangeEnd = `(\d[\d,]*(?:\.\d+)?)\s*(` + unitPattern + `)\b`

// "and" only separates the ends after a leading "between".
var rangeRe = regexp.MustCompile(
	`\bbetween\s+` + rangeEnd + `\s*and\s*` + rangeEnd +
		`|` + rangeEnd + `\s*(?:to|-|–)\s*` + rangeEnd)

// ExtractRange finds the first "<num><unit> to <num><unit>" span in text and
// returns the mean of both ends. Each end is rounded to the reporting
// precision before averaging.
func (x *Extractor) ExtractRange(text string) (Value, bool) {
	t := strings.ToLower(html.UnescapeString(text))
	m := rangeRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	if m[1] == "" {
		m = m[4:]
	}
	low, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	high, err := strconv.ParseFloat(strings.ReplaceAll(m[3], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	lowV := Normalize(low, m[2], string(INR)).Rounded()
	highV := Normalize(high, m[4], string(INR)).Rounded()
	return (lowV + highV) / 2, true
}

func group(s string, m []int, idx int) string {
	if idx < 0 || m[2*idx] < 0 {
		return ""
	}
	return s[m[2*idx]:m[2*idx+1]]
}

// window returns s[start:end] widened by n characters (runes) on each side,
// clamped to the string bounds.
func window(s string, start, end, n int) string {
	lo := start
	for i := 0; i < n && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < n && hi < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[hi:])
		hi += size
	}
	return s[lo:hi]
}
