package resources

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSearch lowercases a term and strips diacritics so "configuración"
// and "configuracion" match the same rows.
func NormalizeSearch(term string) string {
	folded, _, err := transform.String(foldTransformer, term)
	if err != nil {
		return strings.ToLower(term)
	}
	return strings.ToLower(folded)
}
