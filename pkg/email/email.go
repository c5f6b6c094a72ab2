// Package email derives human-readable names from mailbox addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName turns the local part of addr into capitalised words, so
// "priya.raman+ops@example.com" becomes "Priya Raman Ops". Returns "" when
// nothing usable is left.
func DisplayName(addr string) string {
	local := strings.TrimSpace(addr)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
