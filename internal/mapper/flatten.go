package mapper

import "github.com/sells-group/readiness-cli/internal/model"

// Leaf is one discovered source field: its dotted path, its own key, and
// the sample value found there in the representative record.
type Leaf struct {
	Path  string
	Name  string
	Value model.Value
}

// Flatten walks rec into dotted-path leaves in discovery order. Nested
// objects recurse with a dotted prefix. An array whose first element is an
// object contributes that first element's fields under the array's path;
// later elements are not inspected. Any other array is a single leaf.
func Flatten(rec *model.Record) []Leaf {
	var leaves []Leaf
	flatten(rec, "", &leaves)
	return leaves
}

func flatten(rec *model.Record, prefix string, out *[]Leaf) {
	for _, key := range rec.Keys() {
		v, _ := rec.Get(key)
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch v.Kind() {
		case model.KindObject:
			obj, _ := v.AsObject()
			flatten(obj, path, out)
		case model.KindArray:
			items, _ := v.AsArray()
			if len(items) > 0 {
				if first, ok := items[0].AsObject(); ok {
					flatten(first, path, out)
					continue
				}
			}
			*out = append(*out, Leaf{Path: path, Name: key, Value: v})
		default:
			*out = append(*out, Leaf{Path: path, Name: key, Value: v})
		}
	}
}
