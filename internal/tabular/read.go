// Package tabular decodes company tables from CSV or XLSX and writes the
// enriched output table as CSV.
package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/turnover-cli/internal/model"
)

// ErrNotUTF8 is returned when CSV input is not UTF-8 text.
var ErrNotUTF8 = eris.New("tabular: input is not UTF-8 encoded text")

// Column aliases, matched case-insensitively. Earlier aliases take
// precedence when several are present and non-empty.
var (
	nameColumns     = []string{"company_name", "name"}
	cityColumns     = []string{"city"}
	turnoverColumns = []string{"turnover", "revenue", "annual_turnover", "turnover_in_cr"}
)

// ReadFile reads records from path. Files ending in .xlsx are read as
// spreadsheets, everything else as CSV.
func ReadFile(path string) ([]model.InputRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: read %s", path)
	}
	return ReadBytes(filepath.Base(path), data)
}

// ReadBytes decodes data using name's extension to pick the format.
func ReadBytes(name string, data []byte) ([]model.InputRecord, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return ReadXLSX(data)
	}
	return ReadCSV(bytes.NewReader(data))
}

// ReadCSV decodes a UTF-8 CSV table with an optional byte order mark. Input
// that is not valid UTF-8 is rejected with ErrNotUTF8 before any row is read.
func ReadCSV(r io.Reader) ([]model.InputRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read csv")
	}
	if !utf8.Valid(raw) {
		return nil, ErrNotUTF8
	}

	dec := transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(dec)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse csv")
	}
	return records(rows), nil
}

// ReadXLSX decodes the first sheet of a spreadsheet.
func ReadXLSX(data []byte) ([]model.InputRecord, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return records(rows), nil
}

// records maps the header row onto the known columns and keeps rows that
// have both a name and a city.
func records(rows [][]string) []model.InputRecord {
	if len(rows) == 0 {
		return nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var out []model.InputRecord
	for _, row := range rows[1:] {
		rec := model.InputRecord{
			Name:        firstValue(row, index, nameColumns),
			City:        firstValue(row, index, cityColumns),
			TurnoverRaw: firstValue(row, index, turnoverColumns),
		}
		if rec.Name == "" || rec.City == "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func firstValue(row []string, index map[string]int, aliases []string) string {
	for _, a := range aliases {
		i, ok := index[a]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}
