// Package codes classifies clipboard and user input as score codes or
// completion percentages.
package codes

import (
	"regexp"
	"strconv"
)

// MinLength is the shortest digit run accepted as a score code
const MinLength = 5

var (
	scoreCodePattern = regexp.MustCompile(`^\d{5,}$`)
	// Unanchored variant used to pull codes out of pasted text
	scoreCodeSearch = regexp.MustCompile(`\d{5,}`)
)

// IsScoreCode reports whether text is entirely ASCII digits and at least
// MinLength long. Surrounding whitespace is not tolerated.
func IsScoreCode(text string) bool {
	return scoreCodePattern.MatchString(text)
}

// IsCompletion reports whether text is a base-10 integer in [0, 100]
func IsCompletion(text string) bool {
	value, err := strconv.Atoi(text)
	if err != nil {
		return false
	}
	return ValidCompletion(value)
}

// ValidCompletion reports whether an already parsed completion is in range
func ValidCompletion(value int) bool {
	return value >= 0 && value <= 100
}

// Extract returns every score code found in free text, in first-seen order,
// without duplicates. Used for pasted lists (one per line, comma separated, etc).
func Extract(text string) []string {
	matches := scoreCodeSearch.FindAllString(text, -1)
	return Dedupe(matches)
}

// Dedupe keeps the first occurrence of each valid score code and drops the rest.
// Invalid entries are skipped silently.
func Dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, code := range list {
		if !IsScoreCode(code) {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
