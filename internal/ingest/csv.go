package ingest

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// ParseCSV reads a header row followed by data rows. Blank lines are
// skipped.
func ParseCSV(body []byte, maxRows int) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\ufeff"))))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	var (
		header []string
		rows   [][]string
	)
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(ErrInvalidCSV, err.Error())
		}
		if blankRow(record) {
			continue
		}
		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, eris.Wrap(ErrInvalidCSV, "ingest: missing header row")
	}
	return tabular(header, rows, FormatCSV), nil
}
