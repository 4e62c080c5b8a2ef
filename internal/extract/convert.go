package extract

import (
	"strconv"
	"strings"

	"github.com/sells-group/cre-extract/internal/schema"
)

// coerce converts a raw matched string to the field's declared type.
// Returns (nil, false) when the raw text cannot be converted.
func coerce(raw string, f *schema.Field) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	switch f.Type {
	case schema.TypeText, schema.TypeDate:
		return strings.TrimRight(raw, ".,;"), true

	case schema.TypeInteger:
		n, err := strconv.Atoi(stripNumeric(raw))
		if err != nil {
			return nil, false
		}
		return n, true

	case schema.TypeDecimal, schema.TypePercent:
		v, err := strconv.ParseFloat(stripNumeric(raw), 64)
		if err != nil {
			return nil, false
		}
		return v, true

	case schema.TypeEnum:
		return matchEnum(raw, f.Enum)

	default:
		return nil, false
	}
}

// stripNumeric removes thousands separators, currency symbols, and percent
// signs ahead of numeric parsing.
func stripNumeric(s string) string {
	for _, cut := range []string{",", "$", "%"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return strings.TrimSpace(s)
}

// matchEnum normalizes raw text against the allowed values: exact
// case-insensitive match first, then containment ("Class A Office Building"
// normalizes to "office"). Allowed values are ordered most-specific-first.
func matchEnum(raw string, allowed []string) (any, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if norm == a {
			return a, true
		}
	}
	for _, a := range allowed {
		if strings.Contains(norm, a) {
			return a, true
		}
	}
	// Retry with spaces collapsed to hyphens ("mixed use" vs "mixed-use").
	dashed := strings.ReplaceAll(norm, " ", "-")
	for _, a := range allowed {
		if strings.Contains(dashed, a) {
			return a, true
		}
	}
	return nil, false
}
