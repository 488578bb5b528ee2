// Package textnorm canonicalizes French company names and page text for
// keyword and domain comparisons.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	tokenRe = regexp.MustCompile(`[a-z0-9]+`)
)

// Fold lower-cases s and strips diacritics ("Ingénierie" -> "ingenierie").
// Characters without a decomposition (e.g. "œ") are kept as-is.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Normalize trims, folds accents and collapses runs of whitespace into a
// single space. An empty input yields "".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return spaceRe.ReplaceAllString(Fold(s), " ")
}

// Tokens returns the alphanumeric tokens of the normalized string that are at
// least minLen bytes long, in order of appearance.
func Tokens(s string, minLen int) []string {
	all := tokenRe.FindAllString(Normalize(s), -1)
	out := all[:0]
	for _, t := range all {
		if len(t) >= minLen {
			out = append(out, t)
		}
	}
	return out
}

// FindKeywords returns the keywords (as given) whose normalized form appears
// in the normalized text. Order follows the keyword list.
func FindKeywords(text string, keywords []string) []string {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}
	var found []string
	for _, k := range keywords {
		nk := Normalize(k)
		if nk != "" && strings.Contains(norm, nk) {
			found = append(found, k)
		}
	}
	return found
}
