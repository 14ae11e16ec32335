package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/readiness-cli/internal/model"
)

// linePrefix marks flat columns that describe a single line item.
const linePrefix = "line"

var floatLiteral = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

const maxSafeInteger = 1<<53 - 1

// typedCell converts a raw spreadsheet cell: empty becomes null, true and
// false become bools, numeric literals within the exactly representable
// range become numbers, and anything else stays text.
func typedCell(raw string) model.Value {
	switch raw {
	case "":
		return model.Null()
	case "true", "TRUE", "True":
		return model.Bool(true)
	case "false", "FALSE", "False":
		return model.Bool(false)
	}
	if floatLiteral.MatchString(raw) {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err == nil && math.Abs(f) <= maxSafeInteger {
			return model.Number(f)
		}
	}
	return model.String(raw)
}

// tabular builds records from a header and data rows. Rows whose width
// differs from the header are dropped. Columns whose name starts with
// "line" are folded into a one-element lines array.
func tabular(header []string, rows [][]string, format Format) *Result {
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	res := &Result{Format: format, Records: model.RecordSet{}, TotalRows: len(rows)}
	for _, row := range rows {
		if len(row) != len(header) {
			continue
		}
		res.Records = append(res.Records, buildRecord(header, row))
	}
	res.RowsParsed = len(res.Records)
	return res
}

func buildRecord(header, row []string) *model.Record {
	rec := model.NewRecord()
	var line *model.Record
	for i, key := range header {
		v := typedCell(row[i])
		if strings.HasPrefix(key, linePrefix) {
			if line == nil {
				line = model.NewRecord()
			}
			line.Set(key, v)
			continue
		}
		rec.Set(key, v)
	}
	if line != nil {
		rec.Set("lines", model.Array(model.ObjectValue(line)))
	}
	return rec
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
