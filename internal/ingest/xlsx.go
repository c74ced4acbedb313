package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-cleaner/internal/model"
)

// ParseXLSX reads the first sheet of an XLSX workbook into a Table, treating
// the first row as the header. Same padding and skip rules as ParseCSV.
func ParseXLSX(path string) (*model.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, ErrMissingHeader
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}

	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrMissingHeader
	}

	return tableFromRecords(records)
}
