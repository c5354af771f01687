package util

import (
	"regexp"
	"strconv"
	"strings"
)

func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

var trailingIDRegex = regexp.MustCompile(`(\d+)(?:-[^/]*)?/?$`)

// TrailingID returns the numeric identifier at the end of a marketplace URL
// or entry id, e.g. "https://www.discogs.com/sell/item/123" or
// "/release/42-Can-Tago-Mago". It returns "" when there is none.
func TrailingID(s string) string {
	m := trailingIDRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[1]
}

var disambiguationRegex = regexp.MustCompile(` \(\d+\)$`)

// StripDisambiguation removes the " (2)" suffix that tells apart artists or
// labels sharing a name.
func StripDisambiguation(name string) string {
	return disambiguationRegex.ReplaceAllString(strings.TrimSpace(name), "")
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and folds every run of whitespace into one space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
