// Package strings holds small helpers for cleaning configured string lists.
package strings

import (
	"strings"
)

// Normalize trims each value, applies fold when non-nil, drops empties and
// removes duplicates. The first occurrence wins and order is preserved.
//
//	Normalize([]string{" tax ", "TAX", ""}, strings.ToUpper)
//	// []string{"TAX"}
func Normalize(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
