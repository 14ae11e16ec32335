package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ParseXLSX reads the first sheet of a workbook. The first non-blank row is
// the header.
func ParseXLSX(body []byte, maxRows int) (*Result, error) {
	f, err := xlsx.OpenBinary(body)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidXLSX, err.Error())
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrap(ErrInvalidXLSX, "ingest: workbook has no sheets")
	}

	var (
		header []string
		rows   [][]string
	)
	for _, row := range f.Sheets[0].Rows {
		if len(rows) >= maxRows {
			break
		}
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}
		if header == nil {
			header = cells
			continue
		}
		rows = append(rows, padTo(cells, len(header)))
	}

	if header == nil {
		return nil, eris.Wrap(ErrInvalidXLSX, "ingest: missing header row")
	}
	return tabular(header, rows, FormatXLSX), nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// padTo widens a row to n cells. Sheets omit trailing empty cells.
func padTo(cells []string, n int) []string {
	for len(cells) < n {
		cells = append(cells, "")
	}
	return cells
}
