package strutil

import (
	"regexp"
	"strings"
)

var (
	nonAlphaRe  = regexp.MustCompile(`[^a-zA-Z]+`)
	codeSplitRe = regexp.MustCompile(`[\s,;]+`)
)

// NormalizeCode removes everything except latin letters and upper-cases the rest.
// For example NormalizeCode(" usd.") return "USD"
func NormalizeCode(s string) string {
	return strings.ToUpper(nonAlphaRe.ReplaceAllString(s, ""))
}

// SplitCodes splits a list of currency codes separated by commas, semicolons or spaces.
// Codes are normalized, blanks and repeats are dropped, the order of first occurrence is kept
func SplitCodes(s string) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)
	for _, token := range codeSplitRe.Split(s, -1) {
		code := NormalizeCode(token)
		if code == "" {
			continue
		}

		if _, ok := seen[code]; ok {
			continue
		}

		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes
}

// JoinLower lower-cases the tokens and joins them with sep
func JoinLower(tokens []string, sep string) string {
	return strings.ToLower(strings.Join(tokens, sep))
}
