package pxweb

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes characters and strips combining marks, so that
// "Utbildningsnivå" becomes "Utbildningsniva" and "Kön" becomes "Kon".
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanName normalizes a dimension or measure label into a stable column
// name: diacritics folded, lowercased, non-alphanumeric runs collapsed to a
// single underscore. "Antal arbetslösa" → "antal_arbetslosa", "år" → "ar".
func CleanName(label string) string {
	folded, _, err := transform.String(foldDiacritics, label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastUnderscore := true // suppress leading underscore
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
