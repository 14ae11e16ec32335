// Package mapper discovers which arbitrarily named upload fields correspond
// to canonical schema fields, using name normalization, alias tables and a
// fixed similarity heuristic.
package mapper

import (
	"slices"

	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/schema"
)

// CloseThreshold is the minimum similarity for a close match.
const CloseThreshold = 0.65

// Mapper classifies canonical fields as matched, close or missing. It holds
// only read-only state and is safe for concurrent use.
type Mapper struct {
	fields []target
}

type target struct {
	schema.Field
	name    string
	aliases []string
}

type discovered struct {
	Leaf
	name string
	path string
}

// New creates a Mapper for the given schema.
func New(s *schema.Schema) *Mapper {
	fields := s.Fields()
	m := &Mapper{fields: make([]target, len(fields))}
	for i, f := range fields {
		t := target{Field: f, name: Normalize(f.Name())}
		for _, a := range f.Aliases {
			t.aliases = append(t.aliases, Normalize(a))
		}
		m.fields[i] = t
	}
	return m
}

// Map classifies every canonical field against the field names of the
// first record. Every required field lands in exactly one of matched, close
// or missing; optional fields are never reported missing.
func (m *Mapper) Map(records model.RecordSet) model.Coverage {
	cov := model.Coverage{
		Matched: []string{},
		Close:   []model.CloseMatch{},
		Missing: []string{},
	}

	if len(records) == 0 {
		for _, f := range m.fields {
			if f.Required {
				cov.Missing = append(cov.Missing, f.Path)
			}
		}
		return cov
	}

	leaves := discover(records[0])
	for _, f := range m.fields {
		if exactMatch(f, leaves) {
			cov.Matched = append(cov.Matched, f.Path)
			continue
		}
		if best, ok := closestMatch(f, leaves); ok {
			cov.Close = append(cov.Close, best)
			continue
		}
		if f.Required {
			cov.Missing = append(cov.Missing, f.Path)
		}
	}
	return cov
}

func discover(rec *model.Record) []discovered {
	leaves := Flatten(rec)
	out := make([]discovered, len(leaves))
	for i, l := range leaves {
		out[i] = discovered{Leaf: l, name: Normalize(l.Name), path: Normalize(l.Path)}
	}
	return out
}

// exactMatch reports whether any leaf's own key equals the field name or an
// alias and carries a compatible sample value. The scan stops at the first
// such leaf.
func exactMatch(f target, leaves []discovered) bool {
	for _, l := range leaves {
		if l.name != f.name && !slices.Contains(f.aliases, l.name) {
			continue
		}
		if IsTypeCompatible(l.Value, f.Type) {
			return true
		}
	}
	return false
}

// closestMatch returns the single most similar type-compatible leaf scoring
// at least CloseThreshold against the field name or any alias. Ties keep the
// earlier leaf.
func closestMatch(f target, leaves []discovered) (model.CloseMatch, bool) {
	var (
		best  discovered
		score float64
		found bool
	)
	for _, l := range leaves {
		conf := Similarity(l.path, f.name)
		for _, a := range f.aliases {
			conf = max(conf, Similarity(l.path, a))
		}
		if conf < CloseThreshold || (found && conf <= score) {
			continue
		}
		if !IsTypeCompatible(l.Value, f.Type) {
			continue
		}
		best, score, found = l, conf, true
	}
	if !found {
		return model.CloseMatch{}, false
	}
	return model.CloseMatch{
		Target:     f.Path,
		Candidate:  best.Path,
		Confidence: model.Round2(score),
	}, true
}
