package display

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures spells out the letters unaccent rewrites that carry no combining mark.
var ligatures = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"ł", "l",
	"ŀ", "l",
	"đ", "d",
	"ð", "d",
	"þ", "th",
	"ħ", "h",
	"ŧ", "t",
	"ı", "i",
)

// Fold lowercases s and strips accents so "Ánh" and "anh", or "Søren" and "soren", compare
// equal. It agrees with the postgres unaccent dictionary for Latin letters.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return ligatures.Replace(strings.ToLower(folded))
}

// SearchTokens splits a query on whitespace. An empty result matches nothing.
func SearchTokens(query string) []string {
	return strings.Fields(query)
}

// MatchesSearch reports whether every token occurs in name after folding.
func MatchesSearch(name string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	folded := Fold(name)
	for _, token := range tokens {
		if !strings.Contains(folded, Fold(token)) {
			return false
		}
	}
	return true
}
