package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/readiness-cli/internal/model"
)

// ParseJSON accepts an array of objects or a single object.
func ParseJSON(body []byte, maxRows int) (*Result, error) {
	v, err := model.DecodeJSON(body)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidJSON, err.Error())
	}

	var items []model.Value
	switch v.Kind() {
	case model.KindArray:
		items, _ = v.AsArray()
	case model.KindObject:
		items = []model.Value{v}
	default:
		return nil, eris.Wrapf(ErrInvalidJSON, "ingest: top-level %s", v.Kind())
	}

	if len(items) > maxRows {
		items = items[:maxRows]
	}

	records := make(model.RecordSet, 0, len(items))
	for i, item := range items {
		rec, ok := item.AsObject()
		if !ok {
			return nil, eris.Wrapf(ErrInvalidJSON, "ingest: row %d is %s, not an object", i+1, item.Kind())
		}
		records = append(records, rec)
	}

	return &Result{
		Format:     FormatJSON,
		Records:    records,
		RowsParsed: len(records),
		TotalRows:  len(records),
	}, nil
}
