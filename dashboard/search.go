package dashboard

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case and strips diacritics so "Paracétamol" and
// "PARACETAMOL" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.Join(strings.Fields(stripped), " "))
}

// matchesAll reports whether every word of the normalised query occurs in
// one of the fields.
func matchesAll(query string, fields ...string) bool {
	words := strings.Fields(Normalize(query))
	if len(words) == 0 {
		return true
	}

	haystack := Normalize(strings.Join(fields, " "))
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}
