package mapper

import (
	"math"
	"regexp"

	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/schema"
)

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// IsTypeCompatible reports whether a sample value can plausibly populate a
// field of the declared type. Null is never compatible; unknown declared
// types accept anything else.
func IsTypeCompatible(v model.Value, declared schema.FieldType) bool {
	if v.IsNull() {
		return false
	}

	switch declared {
	case schema.TypeString:
		k := v.Kind()
		return k == model.KindString || k == model.KindNumber
	case schema.TypeNumber:
		if _, ok := v.AsNumber(); ok {
			return true
		}
		s, ok := v.AsString()
		if !ok {
			return false
		}
		f, ok := model.ParseNumber(s)
		return ok && !math.IsInf(f, 0) && !math.IsNaN(f)
	case schema.TypeDate:
		s, ok := v.AsString()
		return ok && isoDatePrefix.MatchString(s)
	case schema.TypeEnum:
		_, ok := v.AsString()
		return ok
	default:
		return true
	}
}
