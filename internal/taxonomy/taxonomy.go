// Package taxonomy maps company names and evidence text to industry
// categories and keyword-based turnover estimates.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/turnover-cli/internal/model"
	"github.com/sells-group/turnover-cli/internal/money"
)

// CategoryRule assigns a category triple when any keyword is present.
type CategoryRule struct {
	Keywords             []string `yaml:"keywords"`
	model.CategoryTriple `yaml:",inline"`
}

// EstimateRule assigns a turnover estimate, in crore, when any keyword is
// present in the company name.
type EstimateRule struct {
	Keywords []string `yaml:"keywords"`
	Crore    float64  `yaml:"crore"`
}

// Taxonomy holds the ordered keyword tables. Rules are evaluated in order
// and the first match wins.
type Taxonomy struct {
	Categories      []CategoryRule `yaml:"categories"`
	Estimates       []EstimateRule `yaml:"estimates"`
	DefaultEstimate float64        `yaml:"default_estimate"`
}

// Default returns the built-in tables.
func Default() *Taxonomy {
	return &Taxonomy{
		Categories: []CategoryRule{
			category([]string{"paint", "coating"}, "Manufacturing", "Consumer Goods", "paint products"),
			category([]string{"chemical"}, "Manufacturing", "Industrial", "industrial chemicals"),
			category([]string{"logistics", "transport"}, "Transportation", "Logistics", "freight"),
			category([]string{"electrical", "electronics"}, "Retail", "Specialty", "electronics retail"),
			category([]string{"hardware"}, "Retail", "Specialty", "hardware retail"),
			category([]string{"trader", "trading"}, "Retail", "Store Retail", "general trading"),
			category([]string{"general store", "general stores"}, "Retail", "Store Retail", "general store"),
			category([]string{"polymer"}, "Manufacturing", "Industrial", "polymer products"),
			category([]string{"bitumen"}, "Manufacturing", "Industrial", "bitumen products"),
		},
		Estimates: []EstimateRule{
			{Keywords: []string{"logistics", "transport"}, Crore: 25},
			{Keywords: []string{"bitumen", "polymer", "chemical"}, Crore: 18},
			{Keywords: []string{"paint", "coating"}, Crore: 12},
			{Keywords: []string{"electrical", "electronics"}, Crore: 8},
			{Keywords: []string{"hardware"}, Crore: 7},
			{Keywords: []string{"trader", "trading"}, Crore: 6},
			{Keywords: []string{"store"}, Crore: 5},
		},
		DefaultEstimate: 10,
	}
}

func category(keywords []string, cat, sub, micro string) CategoryRule {
	return CategoryRule{
		Keywords: keywords,
		CategoryTriple: model.CategoryTriple{
			Category:      cat,
			SubCategory:   sub,
			MicroCategory: micro,
		},
	}
}

// Load reads a taxonomy from a YAML file. An empty path returns Default.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML taxonomy document, lowercases and trims its keywords,
// then validates it.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "taxonomy: unmarshal")
	}
	for i := range t.Categories {
		t.Categories[i].Keywords = lowerAll(t.Categories[i].Keywords)
	}
	for i := range t.Estimates {
		t.Estimates[i].Keywords = lowerAll(t.Estimates[i].Keywords)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every rule has keywords and estimates are non-negative.
func (t *Taxonomy) Validate() error {
	for i, r := range t.Categories {
		if len(r.Keywords) == 0 {
			return eris.Errorf("taxonomy: category rule %d has no keywords", i)
		}
		if r.IsZero() {
			return eris.Errorf("taxonomy: category rule %d has no category", i)
		}
	}
	for i, r := range t.Estimates {
		if len(r.Keywords) == 0 {
			return eris.Errorf("taxonomy: estimate rule %d has no keywords", i)
		}
		if r.Crore < 0 {
			return eris.Errorf("taxonomy: estimate rule %d is negative", i)
		}
	}
	if t.DefaultEstimate <= 0 {
		return eris.New("taxonomy: default_estimate must be positive")
	}
	return nil
}

// InferCategory returns the triple of the first category rule with a keyword
// contained in the lowercased company name plus evidence text.
func (t *Taxonomy) InferCategory(company, text string) model.CategoryTriple {
	hay := strings.ToLower(company + " " + text)
	for _, r := range t.Categories {
		if containsAny(hay, r.Keywords) {
			return r.CategoryTriple
		}
	}
	return model.CategoryTriple{}
}

// Estimate returns the keyword-based turnover guess for a company name, or
// the default estimate when no rule matches. It never returns an empty value.
func (t *Taxonomy) Estimate(company string) money.Value {
	name := strings.ToLower(company)
	for _, r := range t.Estimates {
		if containsAny(name, r.Keywords) {
			return money.Value(r.Crore)
		}
	}
	return money.Value(t.DefaultEstimate)
}

func containsAny(hay string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(hay, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
