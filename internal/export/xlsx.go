package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/inspection-cli/internal/model"
)

// DefaultSheetName is the worksheet records are written to.
const DefaultSheetName = "Inspections"

// XLSXWriter writes the records as a single worksheet with a header row.
type XLSXWriter struct {
	SheetName string
}

func (xw XLSXWriter) Write(w io.Writer, records []model.Record) error {
	name := xw.SheetName
	if name == "" {
		name = DefaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	cols := Columns(records)
	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}

	for _, r := range records {
		row := sheet.AddRow()
		for _, c := range cols {
			cell := row.AddCell()
			v, ok := r.Value(c)
			if !ok {
				continue
			}
			switch t := v.(type) {
			case int:
				cell.SetInt(t)
			case float64:
				cell.SetFloat(t)
			case []string:
				cell.SetString(model.JoinValues(t))
			}
		}
	}

	return eris.Wrap(f.Write(w), "xlsx: write file")
}
