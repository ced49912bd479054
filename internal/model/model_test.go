package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvidence_AddAndJoined(t *testing.T) {
	var e Evidence
	e.Add(EvidenceRawField, "45 crore")
	e.Add(EvidenceSearch, "snippet one")
	e.Add(EvidenceSearch, "")
	e.Add(EvidencePage, "page body")
	e.Add(EvidenceSearch, "title one")

	assert.Equal(t, 4, e.Len())
	assert.Equal(t, []string{"snippet one", "title one"}, e.Texts(EvidenceSearch))
	assert.Equal(t, []EvidenceSource{EvidenceRawField, EvidenceSearch, EvidencePage}, e.Sources())
	assert.Equal(t, "snippet one title one page body", e.Joined(EvidenceSearch, EvidencePage))
	assert.Equal(t, "page body snippet one title one", e.Joined(EvidencePage, EvidenceSearch))
	assert.Empty(t, e.Joined())
}

func TestEvidence_Empty(t *testing.T) {
	var e Evidence
	assert.Zero(t, e.Len())
	assert.Empty(t, e.Sources())
	assert.Nil(t, e.Texts(EvidencePage))
	assert.Empty(t, e.Joined(EvidenceRawField))
}

func TestEvidence_SourcesIsCopy(t *testing.T) {
	var e Evidence
	e.Add(EvidenceSearch, "x")
	s := e.Sources()
	s[0] = EvidencePage
	assert.Equal(t, []EvidenceSource{EvidenceSearch}, e.Sources())
}

func TestCategoryTriple_IsZero(t *testing.T) {
	assert.True(t, CategoryTriple{}.IsZero())
	assert.False(t, CategoryTriple{MicroCategory: "freight"}.IsZero())
}

func TestOutputRecord_Row(t *testing.T) {
	r := OutputRecord{
		CompanyName:   "Acme Logistics",
		City:          "Pune",
		TurnoverInCr:  "25.00 Cr",
		Category:      "Transportation",
		SubCategory:   "Logistics",
		MicroCategory: "freight",
		Source:        SourceEstimate,
	}
	row := r.Row()
	assert.Len(t, row, len(OutputColumns))
	assert.Equal(t, []string{"Acme Logistics", "Pune", "25.00 Cr", "Transportation", "Logistics", "freight"}, row)
}

func TestTally(t *testing.T) {
	recs := []OutputRecord{
		{Source: SourceEstimate},
		{Source: SourceRawField},
		{Source: SourceEstimate},
	}
	got := Tally(recs)
	assert.Equal(t, map[TurnoverSource]int{SourceEstimate: 2, SourceRawField: 1}, got)
	assert.Empty(t, Tally(nil))
}
