package mapper

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var separators = regexp.MustCompile(`[_\s\v\p{Z}\x{FEFF}-]+`)

// Normalize canonicalizes a field name for comparison: NFC, lowercase, with
// every run of underscores, Unicode spaces, byte order marks and hyphens
// removed. It is applied to
// names only, never to values.
func Normalize(name string) string {
	s := strings.ToLower(norm.NFC.String(name))
	s = separators.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
