// Package condition implements the Goldmine-style grading scale used by the
// marketplace and the threshold expressions that filter listings by grade.
package condition

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownGrade        = errors.New("unknown condition grade")
	ErrInvalidExpression   = errors.New("invalid condition expression")
	errEmptyGradeToken     = errors.New("empty grade token")
	errUnsatisfiableFilter = errors.New("threshold admits no grade")
)

// Grade is an ordinal condition grade. The zero value is Ungraded and ranks
// below every real grade.
type Grade int

const (
	Ungraded Grade = iota
	Poor
	Fair
	Good
	GoodPlus
	VeryGood
	VeryGoodPlus
	NearMint
	Mint
)

var shortNames = map[Grade]string{
	Poor:         "P",
	Fair:         "F",
	Good:         "G",
	GoodPlus:     "G+",
	VeryGood:     "VG",
	VeryGoodPlus: "VG+",
	NearMint:     "NM",
	Mint:         "M",
}

var labels = map[Grade]string{
	Poor:         "Poor (P)",
	Fair:         "Fair (F)",
	Good:         "Good (G)",
	GoodPlus:     "Good Plus (G+)",
	VeryGood:     "Very Good (VG)",
	VeryGoodPlus: "Very Good Plus (VG+)",
	NearMint:     "Near Mint (NM or M-)",
	Mint:         "Mint (M)",
}

// Sleeve values the marketplace uses when no grade was given.
var ungradedSleeves = map[string]bool{
	"generic":    true,
	"no cover":   true,
	"not graded": true,
}

var tokens = func() map[string]Grade {
	m := map[string]Grade{"M-": NearMint}
	for g, s := range shortNames {
		m[s] = g
	}
	return m
}()

// String returns the short token, e.g. "VG+".
func (g Grade) String() string {
	if s, ok := shortNames[g]; ok {
		return s
	}
	return "ungraded"
}

// Label returns the marketplace display name, e.g. "Very Good Plus (VG+)".
func (g Grade) Label() string {
	if s, ok := labels[g]; ok {
		return s
	}
	return "Not Graded"
}

// Valid reports whether g is a real grade.
func (g Grade) Valid() bool {
	return g >= Poor && g <= Mint
}

// ParseGrade accepts short tokens ("VG+", "M-") and display labels
// ("Very Good Plus (VG+)").
func ParseGrade(s string) (Grade, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ungraded, errEmptyGradeToken
	}
	// Display labels carry the token in parentheses.
	if open := strings.LastIndex(s, "("); open >= 0 && strings.HasSuffix(s, ")") {
		s = s[open+1 : len(s)-1]
		// "NM or M-"
		if i := strings.Index(s, " or "); i >= 0 {
			s = s[:i]
		}
	}
	if g, ok := tokens[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return g, nil
	}
	return Ungraded, fmt.Errorf("%w: %q", ErrUnknownGrade, s)
}

// ParseSleeve is ParseGrade that maps the marketplace's ungraded sleeve values
// to Ungraded without an error.
func ParseSleeve(s string) (Grade, error) {
	if ungradedSleeves[strings.ToLower(strings.TrimSpace(s))] || strings.TrimSpace(s) == "" {
		return Ungraded, nil
	}
	return ParseGrade(s)
}
