// Package strcase converts Go identifier casing to wire casing. The validator
// uses it to report field names matching the JSON payload.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts CamelCase to snake_case. Acronym runs stay together,
// so HTTPServer becomes http_server and UserID becomes user_id.
func ToLowerSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]

			boundary := unicode.IsLower(prev) || unicode.IsDigit(prev)
			if !boundary && unicode.IsUpper(prev) && i+1 < len(runes) {
				// End of an acronym run followed by a normal word.
				boundary = unicode.IsLower(runes[i+1])
			}

			if boundary {
				b.WriteByte('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
