// Package naf handles NAF (Nomenclature d'Activités Française) activity codes:
// registry query term expansion and prefix matching.
package naf

import (
	"regexp"
	"strings"
)

// fullCodeRe matches a complete sub-class code such as "62.02A".
var fullCodeRe = regexp.MustCompile(`(?i)^\d{2}\.\d{2}[A-Z]$`)

// TargetPrefixes is the broader prefix list used for pertinence scoring:
// engineering studies, IT consulting, management consulting and staffing.
var TargetPrefixes = []string{"71.12", "62.02", "70.22", "78"}

// DefaultCodes are collected when no codes are configured.
var DefaultCodes = []string{"62.02A", "71.12B"}

// Terms expands a configured code into the query terms to try, in order.
// A full code yields the exact code then a wildcarded variant that also
// catches the parent grouping; anything else is treated as a prefix.
func Terms(code string) []string {
	c := strings.TrimSpace(code)
	if IsFullCode(c) {
		return []string{c, c + "*"}
	}
	if strings.HasSuffix(c, "*") {
		return []string{c}
	}
	return []string{c + "*"}
}

// IsFullCode reports whether code is a complete sub-class code.
func IsFullCode(code string) bool {
	return fullCodeRe.MatchString(strings.TrimSpace(code))
}

// MatchesAny reports whether code starts with any of the prefixes.
func MatchesAny(code string, prefixes []string) bool {
	if code == "" {
		return false
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// ParseList splits a comma-separated code list, dropping blanks.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
