package model

import "strings"

// EvidenceSource names where a piece of evidence text came from.
type EvidenceSource string

const (
	EvidenceRawField EvidenceSource = "raw_field"
	EvidenceSearch   EvidenceSource = "search"
	EvidencePage     EvidenceSource = "page"
)

// SearchResult is one hit returned by the search collaborator.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Evidence holds the free text gathered for one record, keyed by source.
// Texts keep their insertion order within a source.
type Evidence struct {
	order []EvidenceSource
	texts map[EvidenceSource][]string
}

// Add appends text under source. Empty text is ignored.
func (e *Evidence) Add(source EvidenceSource, text string) {
	if text == "" {
		return
	}
	if e.texts == nil {
		e.texts = make(map[EvidenceSource][]string)
	}
	if _, ok := e.texts[source]; !ok {
		e.order = append(e.order, source)
	}
	e.texts[source] = append(e.texts[source], text)
}

// Texts returns the texts recorded under source.
func (e *Evidence) Texts(source EvidenceSource) []string {
	return e.texts[source]
}

// Len returns the number of texts recorded across all sources.
func (e *Evidence) Len() int {
	n := 0
	for _, ts := range e.texts {
		n += len(ts)
	}
	return n
}

// Joined concatenates the texts of the given sources, in the order given,
// separated by single spaces.
func (e *Evidence) Joined(sources ...EvidenceSource) string {
	var parts []string
	for _, s := range sources {
		parts = append(parts, e.texts[s]...)
	}
	return strings.Join(parts, " ")
}

// Sources returns the sources in the order they were first added.
func (e *Evidence) Sources() []EvidenceSource {
	return append([]EvidenceSource(nil), e.order...)
}
