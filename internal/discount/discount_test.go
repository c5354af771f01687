package discount

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/models"
)

func dec(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		reference float64
		want      int
	}{
		{"half price", 10, 20, 50},
		{"same price", 20, 20, 0},
		{"above reference", 25, 20, -25},
		{"rounds half away from zero", 17.5, 20, 13}, // 12.5
		{"rounds down", 17.6, 20, 12},                 // 12.0
		{"negative half", 22.5, 20, -13},              // -12.5
		{"free", 0, 20, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(decimal.NewFromFloat(tt.price), decimal.NewFromFloat(tt.reference))
			if got != tt.want {
				t.Errorf("Percent(%v, %v) = %d, want %d", tt.price, tt.reference, got, tt.want)
			}
		})
	}
}

func TestPercent_Monotonic(t *testing.T) {
	ref := decimal.NewFromInt(40)
	prev := Percent(decimal.NewFromInt(1), ref)
	for p := 2; p <= 80; p++ {
		cur := Percent(decimal.NewFromInt(int64(p)), ref)
		if cur > prev {
			t.Fatalf("discount increased from %d to %d as price rose to %d", prev, cur, p)
		}
		prev = cur
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		stats     models.ReleaseStats
		shipping  float64
		standard  float64
		want      int
		wantBasis string
		wantDet   bool
	}{
		{
			name:      "median preferred",
			stats:     models.ReleaseStats{Median: dec(20), Suggested: dec(40)},
			want:      50,
			wantBasis: BasisMedian,
			wantDet:   true,
		},
		{
			name:      "suggested fallback",
			stats:     models.ReleaseStats{Suggested: dec(40)},
			want:      75,
			wantBasis: BasisSuggested,
			wantDet:   true,
		},
		{
			name:  "no reference",
			stats: models.ReleaseStats{},
		},
		{
			name:      "zero median falls back",
			stats:     models.ReleaseStats{Median: dec(0), Suggested: dec(20)},
			want:      50,
			wantBasis: BasisSuggested,
			wantDet:   true,
		},
		{
			name:      "shipping over standard counts",
			stats:     models.ReleaseStats{Median: dec(20)},
			shipping:  8,
			standard:  5,
			want:      35,
			wantBasis: BasisMedian,
			wantDet:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluator{StandardShipping: decimal.NewFromFloat(tt.standard)}
			l := models.Listing{
				Price:    decimal.NewFromInt(10),
				Shipping: decimal.NewFromFloat(tt.shipping),
				Stats:    tt.stats,
			}
			got := e.Evaluate(l)
			if got.Determinate != tt.wantDet {
				t.Fatalf("Determinate = %v, want %v", got.Determinate, tt.wantDet)
			}
			if !tt.wantDet {
				return
			}
			if got.Percent != tt.want || got.Basis != tt.wantBasis {
				t.Errorf("Evaluate = %d%% (%s), want %d%% (%s)", got.Percent, got.Basis, tt.want, tt.wantBasis)
			}
		})
	}
}

func TestIsNeverSold(t *testing.T) {
	zero, three := 0, 3
	tests := []struct {
		name string
		sold *int
		want bool
	}{
		{"unknown history", nil, false},
		{"never sold", &zero, true},
		{"sold before", &three, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := models.Listing{Stats: models.ReleaseStats{TimesSold: tt.sold}}
			if got := IsNeverSold(l); got != tt.want {
				t.Errorf("IsNeverSold = %v, want %v", got, tt.want)
			}
		})
	}
}
