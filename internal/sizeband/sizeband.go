// Package sizeband interprets SIRENE employee-size bands ("tranche d'effectif
// salarié") as headcount upper bounds.
package sizeband

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Unknown is the registry code for an unreported headcount.
const Unknown = "NN"

// upperBounds maps INSEE tranche codes to an inclusive headcount upper bound.
// "53" (10000+) is open-ended.
var upperBounds = map[string]int{
	"00": 0,
	"01": 2,
	"02": 5,
	"03": 9,
	"11": 19,
	"12": 49,
	"21": 99,
	"22": 199,
	"31": 249,
	"32": 499,
	"41": 999,
	"42": 1999,
	"51": 4999,
	"52": 9999,
	"53": 1000000,
}

var numRe = regexp.MustCompile(`\d+`)

// UpperBound returns the headcount upper bound for a known code.
func UpperBound(code string) (int, bool) {
	ub, ok := upperBounds[strings.ToUpper(strings.TrimSpace(code))]
	return ub, ok
}

// Codes returns every known code sorted ascending by upper bound.
func Codes() []string {
	codes := make([]string, 0, len(upperBounds))
	for c := range upperBounds {
		codes = append(codes, c)
	}
	slices.SortFunc(codes, func(a, b string) int {
		return upperBounds[a] - upperBounds[b]
	})
	return codes
}

// AllowedBands returns the codes whose upper bound is <= threshold, sorted
// ascending by bound, followed by the Unknown sentinel so that unreported
// headcounts are kept.
func AllowedBands(threshold int) []string {
	var allowed []string
	for _, c := range Codes() {
		if upperBounds[c] <= threshold {
			allowed = append(allowed, c)
		}
	}
	return append(allowed, Unknown)
}

// NumericTokens extracts every integer appearing in band.
func NumericTokens(band string) []int {
	var nums []int
	for _, m := range numRe.FindAllString(band, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

// AboveThreshold reports whether band implies more than threshold employees.
// Known codes use the table; anything else falls back to the largest number
// in the string. Bands without numbers are never above.
func AboveThreshold(band string, threshold int) bool {
	code := strings.ToUpper(strings.TrimSpace(band))
	if code == "" {
		return false
	}
	if ub, ok := upperBounds[code]; ok {
		return ub > threshold
	}
	nums := NumericTokens(code)
	return len(nums) > 0 && slices.Max(nums) > threshold
}

// IndicatesZero reports whether band clearly denotes zero employees:
// code "00", textual "0" / "0-0", "0 salarié(s)", or only zeros mentioned.
func IndicatesZero(band string) bool {
	s := strings.TrimSpace(band)
	if s == "" {
		return false
	}
	if s == "00" {
		return true
	}
	low := strings.ToLower(s)
	if low == "0" || low == "0-0" {
		return true
	}
	if strings.Contains(low, "0 salari") {
		return true
	}
	nums := NumericTokens(low)
	return len(nums) > 0 && slices.Max(nums) == 0
}

// Present reports whether band counts as a plausible, non-zero size for
// inclusion scoring. Any non-empty band other than the explicit zero forms
// is accepted, including codes that carry no range information.
func Present(band string) bool {
	if band == "" {
		return false
	}
	switch band {
	case "00", "0", "0-0":
		return false
	}
	return true
}

// InWindow reports whether any number mentioned in band falls inside
// [minEmp, maxEmp].
func InWindow(band string, minEmp, maxEmp int) bool {
	for _, n := range NumericTokens(band) {
		if n >= minEmp && n <= maxEmp {
			return true
		}
	}
	return false
}
