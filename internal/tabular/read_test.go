package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/turnover-cli/internal/model"
)

func TestReadCSV_Aliases(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []model.InputRecord
	}{
		{
			name: "canonical names",
			csv:  "name,city,turnover\nAcme,Pune,45 crore\n",
			want: []model.InputRecord{{Name: "Acme", City: "Pune", TurnoverRaw: "45 crore"}},
		},
		{
			name: "case insensitive headers",
			csv:  "Company_Name,CITY,Revenue\nAcme,Pune,10 cr\n",
			want: []model.InputRecord{{Name: "Acme", City: "Pune", TurnoverRaw: "10 cr"}},
		},
		{
			name: "company_name preferred over name",
			csv:  "name,company_name,city\nShort,Acme Pvt Ltd,Pune\n",
			want: []model.InputRecord{{Name: "Acme Pvt Ltd", City: "Pune"}},
		},
		{
			name: "falls back to next non-empty alias",
			csv:  "company_name,name,city,turnover,annual_turnover\n,Acme,Pune,,3 crore\n",
			want: []model.InputRecord{{Name: "Acme", City: "Pune", TurnoverRaw: "3 crore"}},
		},
		{
			name: "turnover_in_cr alias",
			csv:  "name,city,turnover_in_cr\nAcme,Pune,12\n",
			want: []model.InputRecord{{Name: "Acme", City: "Pune", TurnoverRaw: "12"}},
		},
		{
			name: "values trimmed",
			csv:  " name , city \n  Acme  ,  Pune  \n",
			want: []model.InputRecord{{Name: "Acme", City: "Pune"}},
		},
		{
			name: "rows missing name or city dropped",
			csv:  "name,city\nAcme,\n,Pune\nGood,Delhi\n   ,  \n",
			want: []model.InputRecord{{Name: "Good", City: "Delhi"}},
		},
		{
			name: "short rows tolerated",
			csv:  "name,city,turnover\nAcme,Pune\n",
			want: []model.InputRecord{{Name: "Acme", City: "Pune"}},
		},
		{
			name: "header only",
			csv:  "name,city\n",
			want: nil,
		},
		{
			name: "empty input",
			csv:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(strings.NewReader(tt.csv))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSV_StripsBOM(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("\ufeffname,city\nAcme,Pune\n"))
	require.NoError(t, err)
	assert.Equal(t, []model.InputRecord{{Name: "Acme", City: "Pune"}}, got)
}

func TestReadCSV_RejectsNonUTF8(t *testing.T) {
	latin1 := []byte("name,city\nCaf\xe9,Pune\n")
	_, err := ReadCSV(strings.NewReader(string(latin1)))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotUTF8))
}

func TestReadCSV_KeepsUnicode(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("name,city\nश्री ट्रेडर्स,पुणे\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "श्री ट्रेडर्स", got[0].Name)
}

func createTestXLSX(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, f.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestReadXLSX(t *testing.T) {
	data := createTestXLSX(t, [][]string{
		{"Name", "City", "Turnover"},
		{"Acme Paints", "Pune", "45 crore"},
		{"No City", "", ""},
	})

	got, err := ReadBytes("companies.XLSX", data)
	require.NoError(t, err)
	assert.Equal(t, []model.InputRecord{{Name: "Acme Paints", City: "Pune", TurnoverRaw: "45 crore"}}, got)
}

func TestReadXLSX_Invalid(t *testing.T) {
	_, err := ReadXLSX([]byte("not a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tabular: open xlsx")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,city\nAcme,Pune\n"), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
