package condition

import (
	"errors"
	"testing"
)

func TestGradeOrdering(t *testing.T) {
	order := []Grade{Poor, Fair, Good, GoodPlus, VeryGood, VeryGoodPlus, NearMint, Mint}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("%s should rank below %s", order[i-1], order[i])
		}
	}
	if Ungraded >= Poor {
		t.Error("Ungraded should rank below Poor")
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		want    Grade
		wantErr bool
	}{
		{"VG+", VeryGoodPlus, false},
		{"vg", VeryGood, false},
		{" NM ", NearMint, false},
		{"M-", NearMint, false},
		{"M", Mint, false},
		{"Very Good Plus (VG+)", VeryGoodPlus, false},
		{"Near Mint (NM or M-)", NearMint, false},
		{"Good Plus (G+)", GoodPlus, false},
		{"Poor (P)", Poor, false},
		{"Excellent", Ungraded, true},
		{"", Ungraded, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGrade(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGrade(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseGrade(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseGrade("Excellent"); !errors.Is(err, ErrUnknownGrade) {
		t.Errorf("expected ErrUnknownGrade, got %v", err)
	}
}

func TestParseSleeve(t *testing.T) {
	for _, s := range []string{"Generic", "No Cover", "Not Graded", ""} {
		g, err := ParseSleeve(s)
		if err != nil || g != Ungraded {
			t.Errorf("ParseSleeve(%q) = %s, %v; want ungraded", s, g, err)
		}
	}
	if g, err := ParseSleeve("Very Good (VG)"); err != nil || g != VeryGood {
		t.Errorf("ParseSleeve(VG) = %s, %v", g, err)
	}
}

func TestGradeLabel(t *testing.T) {
	if VeryGoodPlus.Label() != "Very Good Plus (VG+)" {
		t.Errorf("unexpected label %q", VeryGoodPlus.Label())
	}
	if Ungraded.Label() != "Not Graded" {
		t.Errorf("unexpected label %q", Ungraded.Label())
	}
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		expr    string
		min     Grade
		max     Grade
		wantErr bool
	}{
		{"all", Ungraded, Mint, false},
		{"", Ungraded, Mint, false},
		{">VG", VeryGoodPlus, Mint, false},
		{">=VG", VeryGood, Mint, false},
		{"VG+", VeryGoodPlus, Mint, false},
		{"=NM", NearMint, NearMint, false},
		{">G+", VeryGood, Mint, false},
		{">M", 0, 0, true},
		{">=XX", 0, 0, true},
		{"<VG", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseThreshold(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseThreshold(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExpression) {
					t.Errorf("expected ErrInvalidExpression, got %v", err)
				}
				return
			}
			if got.Min != tt.min || got.Max != tt.max {
				t.Errorf("ParseThreshold(%q) = [%s, %s], want [%s, %s]", tt.expr, got.Min, got.Max, tt.min, tt.max)
			}
		})
	}
}

func TestMeetsMinimum(t *testing.T) {
	gtVG := MustParseThreshold(">VG")

	tests := []struct {
		grade Grade
		want  bool
	}{
		{VeryGoodPlus, true},
		{NearMint, true},
		{Mint, true},
		{VeryGood, false},
		{Good, false},
		{Ungraded, false},
	}
	for _, tt := range tests {
		if got := MeetsMinimum(tt.grade, gtVG); got != tt.want {
			t.Errorf("MeetsMinimum(%s, >VG) = %v, want %v", tt.grade, got, tt.want)
		}
	}

	if !MeetsMinimum(Ungraded, All) {
		t.Error("all should admit ungraded")
	}
	exact := MustParseThreshold("=NM")
	if MeetsMinimum(Mint, exact) || !MeetsMinimum(NearMint, exact) {
		t.Error("=NM should admit only NM")
	}
}

func TestAccepts_Scope(t *testing.T) {
	th := MustParseThreshold(">=VG")

	tests := []struct {
		name   string
		media  Grade
		sleeve Grade
		scope  Scope
		want   bool
	}{
		{"both graded ok", VeryGoodPlus, VeryGood, ScopeBoth, true},
		{"sleeve too low", VeryGoodPlus, Good, ScopeBoth, false},
		{"ungraded sleeve fails both", NearMint, Ungraded, ScopeBoth, false},
		{"ungraded sleeve ok media", NearMint, Ungraded, ScopeMedia, true},
		{"media too low", Good, Mint, ScopeMedia, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.Accepts(tt.media, tt.sleeve, tt.scope); got != tt.want {
				t.Errorf("Accepts = %v, want %v", got, tt.want)
			}
		})
	}

	if !All.Accepts(Ungraded, Ungraded, ScopeBoth) {
		t.Error("all should accept anything")
	}
}

func TestStricter(t *testing.T) {
	global := MustParseThreshold(">=VG")
	item := MustParseThreshold(">=NM")

	got := global.Stricter(item)
	if got.Min != NearMint || got.Max != Mint {
		t.Errorf("Stricter = [%s, %s], want [NM, M]", got.Min, got.Max)
	}
	if got.String() != ">=NM" {
		t.Errorf("String() = %q", got.String())
	}

	// Per-item thresholds can never loosen the global one.
	loose := MustParseThreshold(">=G")
	if got := global.Stricter(loose); got.Min != VeryGood {
		t.Errorf("looser item threshold relaxed global: %s", got.Min)
	}

	if got := All.Stricter(item); got != item {
		t.Errorf("All.Stricter(item) = %v, want %v", got, item)
	}

	// Disjoint intervals admit nothing.
	none := MustParseThreshold("=G").Stricter(MustParseThreshold(">=VG"))
	for g := Poor; g <= Mint; g++ {
		if MeetsMinimum(g, none) {
			t.Errorf("disjoint threshold admitted %s", g)
		}
	}
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(""); err != nil || s != ScopeBoth {
		t.Errorf("default scope = %q, %v", s, err)
	}
	if s, err := ParseScope("MEDIA"); err != nil || s != ScopeMedia {
		t.Errorf("ParseScope(MEDIA) = %q, %v", s, err)
	}
	if _, err := ParseScope("sleeve"); err == nil {
		t.Error("expected error for unknown scope")
	}
}
