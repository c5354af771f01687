package condition

import (
	"fmt"
	"strings"
)

// Scope selects which graded parts of a listing a threshold applies to.
type Scope string

const (
	// ScopeBoth requires media and sleeve to pass. An ungraded sleeve fails
	// any threshold other than "all".
	ScopeBoth Scope = "both"
	// ScopeMedia ignores the sleeve.
	ScopeMedia Scope = "media"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeBoth:
		return ScopeBoth, nil
	case ScopeMedia:
		return ScopeMedia, nil
	}
	return "", fmt.Errorf("%w: unknown scope %q (want both or media)", ErrInvalidExpression, s)
}

// Threshold is an inclusive grade interval.
type Threshold struct {
	Min  Grade
	Max  Grade
	expr string
}

// All admits every listing, graded or not.
var All = Threshold{Min: Ungraded, Max: Mint, expr: "all"}

// ParseThreshold parses "all", ">G", ">=VG", "=NM" or a bare grade (same as
// ">="). An empty expression is "all".
func ParseThreshold(expr string) (Threshold, error) {
	e := strings.TrimSpace(expr)
	if e == "" || strings.EqualFold(e, "all") {
		return All, nil
	}

	var op string
	switch {
	case strings.HasPrefix(e, ">="):
		op, e = ">=", e[2:]
	case strings.HasPrefix(e, ">"):
		op, e = ">", e[1:]
	case strings.HasPrefix(e, "="):
		op, e = "=", e[1:]
	default:
		op = ">="
	}

	g, err := ParseGrade(e)
	if err != nil {
		return Threshold{}, fmt.Errorf("%w %q: %v", ErrInvalidExpression, expr, err)
	}

	t := Threshold{Max: Mint, expr: strings.TrimSpace(expr)}
	switch op {
	case ">=":
		t.Min = g
	case ">":
		if g == Mint {
			return Threshold{}, fmt.Errorf("%w %q: %v", ErrInvalidExpression, expr, errUnsatisfiableFilter)
		}
		t.Min = g + 1
	case "=":
		t.Min, t.Max = g, g
	}
	return t, nil
}

// MustParseThreshold is ParseThreshold for constant expressions.
func MustParseThreshold(expr string) Threshold {
	t, err := ParseThreshold(expr)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Threshold) String() string {
	if t.expr != "" {
		return t.expr
	}
	if t.Min == t.Max {
		return "=" + t.Min.String()
	}
	return ">=" + t.Min.String()
}

// IsAll reports whether t filters nothing.
func (t Threshold) IsAll() bool {
	return t.Min == Ungraded && t.Max == Mint
}

// MeetsMinimum reports whether a single grade falls inside the threshold.
func MeetsMinimum(g Grade, t Threshold) bool {
	if t.IsAll() {
		return true
	}
	return g.Valid() && g >= t.Min && g <= t.Max
}

// Accepts applies the threshold to a listing's media and sleeve grades.
func (t Threshold) Accepts(media, sleeve Grade, scope Scope) bool {
	if !MeetsMinimum(media, t) {
		return false
	}
	if scope == ScopeMedia {
		return true
	}
	return MeetsMinimum(sleeve, t)
}

// Stricter combines two thresholds into the interval both admit.
func (t Threshold) Stricter(o Threshold) Threshold {
	if o.IsAll() {
		return t
	}
	if t.IsAll() {
		return o
	}
	out := Threshold{Min: max(t.Min, o.Min), Max: min(t.Max, o.Max)}
	switch out {
	case Threshold{Min: t.Min, Max: t.Max}:
		out.expr = t.expr
	case Threshold{Min: o.Min, Max: o.Max}:
		out.expr = o.expr
	}
	return out
}
