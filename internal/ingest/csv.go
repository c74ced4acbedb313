// Package ingest turns uploaded lead lists (CSV or XLSX, any reasonable
// charset) into the in-memory table the pipeline processes, and serializes
// the augmented table back to CSV.
package ingest

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cleaner/internal/model"
)

// ErrMissingHeader is returned when the input has no header row. The
// processor maps it to the HeaderMissing terminal state.
var ErrMissingHeader = eris.New("ingest: input is missing a header row")

// ParseCSV reads a whole CSV document into a Table. The first record is the
// header. Rows shorter than the header are padded with empty strings; rows
// longer than the header cannot be keyed and are skipped with a log line.
func ParseCSV(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	// Lead exports routinely carry stray quotes inside fields.
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv")
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrMissingHeader
	}

	return tableFromRecords(records)
}

// tableFromRecords builds a Table from raw records, the first being the header.
func tableFromRecords(records [][]string) (*model.Table, error) {
	header := records[0]
	t := &model.Table{Header: header}

	for i, rec := range records[1:] {
		if len(rec) > len(header) {
			zap.L().Warn("ingest: skipping malformed row",
				zap.Int("row", i+1),
				zap.Int("fields", len(rec)),
				zap.Int("columns", len(header)),
			)
			continue
		}

		row := make(model.Row, len(header))
		for j, col := range header {
			if j < len(rec) {
				row[col] = rec[j]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// EncodeCSV serializes a table with the given header order. Cells for
// columns a row does not carry are written empty.
func EncodeCSV(w io.Writer, header []string, rows []model.Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "ingest: write header")
	}

	record := make([]string, len(header))
	for i, row := range rows {
		for j, col := range header {
			record[j] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "ingest: write row %d", i+1)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush csv")
}
