package model

// InputRecord is one retained row of the input table.
type InputRecord struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	TurnoverRaw string `json:"turnover_raw,omitempty"` // free text, may be empty
}

// CategoryTriple is the result of a keyword category lookup. All fields are
// empty when nothing matched.
type CategoryTriple struct {
	Category      string `json:"category" yaml:"category"`
	SubCategory   string `json:"sub_category" yaml:"sub_category"`
	MicroCategory string `json:"micro_category" yaml:"micro_category"`
}

// IsZero reports whether no category was inferred.
func (c CategoryTriple) IsZero() bool {
	return c.Category == "" && c.SubCategory == "" && c.MicroCategory == ""
}

// TurnoverSource names the fallback stage that produced a turnover figure.
type TurnoverSource string

const (
	SourceEvidence      TurnoverSource = "evidence"
	SourceEvidenceRange TurnoverSource = "evidence_range"
	SourceRawField      TurnoverSource = "raw_field"
	SourceRawFieldRange TurnoverSource = "raw_field_range"
	SourceEstimate      TurnoverSource = "estimate"
)

// OutputRecord is one row of the output table, in input order.
type OutputRecord struct {
	CompanyName   string `json:"company_name"`
	City          string `json:"city"`
	TurnoverInCr  string `json:"turnover_in_cr"`
	Category      string `json:"category"`
	SubCategory   string `json:"sub_category"`
	MicroCategory string `json:"micro_category"`

	// Source is not part of the output table; it is kept for logging.
	Source TurnoverSource `json:"-"`
}

// OutputColumns is the fixed header of the output table.
var OutputColumns = []string{
	"company_name",
	"city",
	"turnover_in_cr",
	"category",
	"sub_category",
	"micro_category",
}

// Row returns the record's cells in OutputColumns order.
func (o OutputRecord) Row() []string {
	return []string{o.CompanyName, o.City, o.TurnoverInCr, o.Category, o.SubCategory, o.MicroCategory}
}
