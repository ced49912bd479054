package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnover-cli/internal/model"
)

func TestInferCategory(t *testing.T) {
	tx := Default()

	tests := []struct {
		name    string
		company string
		text    string
		want    model.CategoryTriple
	}{
		{"paint", "Sunrise Paints Pvt Ltd", "", model.CategoryTriple{Category: "Manufacturing", SubCategory: "Consumer Goods", MicroCategory: "paint products"}},
		{"logistics", "Acme Logistics", "", model.CategoryTriple{Category: "Transportation", SubCategory: "Logistics", MicroCategory: "freight"}},
		{"keyword in evidence only", "Acme Pvt Ltd", "a leading BITUMEN supplier", model.CategoryTriple{Category: "Manufacturing", SubCategory: "Industrial", MicroCategory: "bitumen products"}},
		{"general store", "Sharma General Store", "", model.CategoryTriple{Category: "Retail", SubCategory: "Store Retail", MicroCategory: "general store"}},
		{"no match", "Zenith Holdings", "", model.CategoryTriple{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tx.InferCategory(tt.company, tt.text))
		})
	}
}

func TestInferCategory_PriorityOrder(t *testing.T) {
	tx := Default()

	// chemical is listed before logistics.
	got := tx.InferCategory("Chemical Logistics Co", "")
	assert.Equal(t, "industrial chemicals", got.MicroCategory)

	// Order of words in the name does not matter.
	got = tx.InferCategory("Logistics Chemical Co", "")
	assert.Equal(t, "industrial chemicals", got.MicroCategory)

	// Deterministic across calls.
	for range 10 {
		assert.Equal(t, got, tx.InferCategory("Logistics Chemical Co", ""))
	}
}

func TestEstimate(t *testing.T) {
	tx := Default()

	assert.Equal(t, "25.00 Cr", tx.Estimate("Acme Logistics").String())
	assert.Equal(t, "25.00 Cr", tx.Estimate("Fast TRANSPORT Co").String())
	assert.Equal(t, "18.00 Cr", tx.Estimate("Polymer Works").String())
	assert.Equal(t, "12.00 Cr", tx.Estimate("Royal Coatings").String())
	assert.Equal(t, "8.00 Cr", tx.Estimate("City Electricals").String())
	assert.Equal(t, "7.00 Cr", tx.Estimate("Ram Hardware").String())
	assert.Equal(t, "6.00 Cr", tx.Estimate("Gupta Traders").String())
	assert.Equal(t, "5.00 Cr", tx.Estimate("Corner Store").String())
	assert.Equal(t, "10.00 Cr", tx.Estimate("Zenith Holdings").String())
	assert.Equal(t, "10.00 Cr", tx.Estimate("").String())
}

func TestEstimate_PriorityOrder(t *testing.T) {
	// logistics outranks chemical in the estimate table.
	assert.Equal(t, "25.00 Cr", Default().Estimate("Chemical Logistics Co").String())
}

func TestParse(t *testing.T) {
	doc := `
categories:
  - keywords: [Pharma, medicine]
    category: Manufacturing
    sub_category: Healthcare
    micro_category: pharmaceuticals
estimates:
  - keywords: [pharma]
    crore: 40
default_estimate: 3
`
	tx, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.Len(t, tx.Categories, 1)
	assert.Equal(t, []string{"pharma", "medicine"}, tx.Categories[0].Keywords)
	assert.Equal(t, "pharmaceuticals", tx.InferCategory("Zed Pharma", "").MicroCategory)
	assert.Equal(t, "40.00 Cr", tx.Estimate("Zed Pharma").String())
	assert.Equal(t, "3.00 Cr", tx.Estimate("Zed Foods").String())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"bad yaml", "categories: [", "unmarshal"},
		{"empty keywords", "categories:\n  - category: X\ndefault_estimate: 1\n", "no keywords"},
		{"blank category keyword", "categories:\n  - keywords: [\" \"]\n    category: X\ndefault_estimate: 1\n", "no keywords"},
		{"blank estimate keyword", "estimates:\n  - keywords: [\"\"]\n    crore: 1\ndefault_estimate: 1\n", "no keywords"},
		{"empty triple", "categories:\n  - keywords: [a]\ndefault_estimate: 1\n", "no category"},
		{"negative estimate", "estimates:\n  - keywords: [a]\n    crore: -1\ndefault_estimate: 1\n", "negative"},
		{"missing default", "estimates:\n  - keywords: [a]\n    crore: 1\n", "default_estimate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad(t *testing.T) {
	tx, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tx)

	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_estimate: 2\n"), 0o644))
	tx, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2.00 Cr", tx.Estimate("anything").String())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
