package tabular

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/turnover-cli/internal/model"
)

// WriteCSV writes the output table. The header is always written, even when
// there are no records.
func WriteCSV(w io.Writer, recs []model.OutputRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.OutputColumns); err != nil {
		return eris.Wrap(err, "tabular: write header")
	}
	for _, r := range recs {
		if err := cw.Write(r.Row()); err != nil {
			return eris.Wrap(err, "tabular: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "tabular: flush csv")
}

// WriteFile writes the output table to path, replacing any existing file.
func WriteFile(path string, recs []model.OutputRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "tabular: create %s", path)
	}
	if err := WriteCSV(f, recs); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "tabular: close %s", path)
}
