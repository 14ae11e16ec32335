// Package ingest turns uploaded JSON, CSV and XLSX payloads into record
// sets ready for analysis.
package ingest

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/readiness-cli/internal/model"
)

// DefaultMaxRows caps how many data rows an upload keeps.
const DefaultMaxRows = 200

// Sentinel errors. All of them describe a malformed upload.
var (
	ErrInvalidJSON = eris.New("invalid JSON format")
	ErrInvalidCSV  = eris.New("CSV parsing error")
	ErrInvalidXLSX = eris.New("XLSX parsing error")
	ErrUnsupported = eris.New("unsupported file type")
	ErrEmpty       = eris.New("either file or text must be provided")
)

// Format is an upload payload format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Result is a parsed, row-capped upload. RowsParsed counts rows that were
// turned into records; TotalRows counts every data row read within the
// cap.
type Result struct {
	Format     Format
	Records    model.RecordSet
	RowsParsed int
	TotalRows  int
}

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks a format from the content type, then the file
// extension, then the payload itself.
func DetectFormat(filename, contentType string, body []byte) Format {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(mediaType) {
	case "application/json", "text/json":
		return FormatJSON
	case "text/csv", "application/csv":
		return FormatCSV
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX
	}

	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".json"):
		return FormatJSON
	case strings.HasSuffix(name, ".csv"):
		return FormatCSV
	case strings.HasSuffix(name, ".xlsx"):
		return FormatXLSX
	}

	return sniff(body)
}

func sniff(body []byte) Format {
	if bytes.HasPrefix(body, zipMagic) {
		return FormatXLSX
	}
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("[")) || bytes.HasPrefix(trimmed, []byte("{")) {
		return FormatJSON
	}
	return FormatCSV
}

// Parse decodes body in the given format and keeps at most maxRows rows.
// A non-positive maxRows means DefaultMaxRows.
func Parse(format Format, body []byte, maxRows int) (*Result, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var (
		res *Result
		err error
	)
	switch format {
	case FormatJSON:
		res, err = ParseJSON(body, maxRows)
	case FormatCSV:
		res, err = ParseCSV(body, maxRows)
	case FormatXLSX:
		res, err = ParseXLSX(body, maxRows)
	default:
		return nil, eris.Wrapf(ErrUnsupported, "ingest: format %q", format)
	}
	if err != nil {
		return nil, err
	}
	res.Format = format
	return res, nil
}

// ParseText decodes pasted text: JSON when it opens with a bracket or
// brace, CSV otherwise.
func ParseText(text string, maxRows int) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, eris.Wrap(ErrEmpty, "ingest: empty text")
	}
	format := FormatCSV
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		format = FormatJSON
	}
	return Parse(format, []byte(trimmed), maxRows)
}
