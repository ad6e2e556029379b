package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]:
// twice the number of matched runes divided by the total rune count.
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// corporateMarkers are legal-entity tokens removed before company comparison.
// Longer markers come first so "co., ltd." is removed before "co.".
var corporateMarkers = []string{
	"주식회사", "유한회사", "유한책임회사", "사단법인", "재단법인",
	"(주)", "㈜", "(유)", "(사)", "(재)",
	"co., ltd.", "co.,ltd.", "co., ltd", "co.,ltd", "co.ltd",
	"corporation", "incorporated", "limited",
	"inc.", "corp.", "ltd.", "llc.", "co.",
	"inc", "corp", "ltd", "llc", "gmbh",
}

// NormalizeCompany lower-cases s, strips corporate markers, and collapses
// whitespace. "ABC(주)" and "abc" normalize to the same string.
func NormalizeCompany(s string) string {
	s = strings.ToLower(s)
	for _, marker := range corporateMarkers {
		if isASCIIWord(marker) {
			s = removeWord(s, marker)
			continue
		}
		s = strings.ReplaceAll(s, marker, " ")
	}
	s = strings.Trim(s, " ,.")
	return strings.Join(strings.Fields(s), " ")
}

// removeWord drops marker only where it stands as its own token, so "inc"
// is removed from "acme inc" but not from "incheon".
func removeWord(s, marker string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if strings.Trim(f, ",") == marker {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 || c == ' ' || c == '(' {
			return false
		}
	}
	return true
}
