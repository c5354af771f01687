// Package matcher decides which listings of a source become deals.
package matcher

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/condition"
	"github.com/pauljones0/discogs-deals/internal/config"
	"github.com/pauljones0/discogs-deals/internal/discount"
	"github.com/pauljones0/discogs-deals/internal/models"
)

// Rejection reasons, also used as metric labels.
const (
	ReasonRelease    = "release_mismatch"
	ReasonFormat     = "format_mismatch"
	ReasonGenre      = "genre_mismatch"
	ReasonMaxPrice   = "over_max_price"
	ReasonSeller     = "blocked_seller"
	ReasonCondition  = "condition"
	ReasonVGPlus     = "vg_plus_rule"
	ReasonDiscount   = "discount"
	ReasonNoRef      = "no_reference_price"
	ReasonNeverSold  = "never_sold"
	ReasonBadListing = "bad_listing"
)

// Rules are the global filters of a run.
type Rules struct {
	MinCondition     condition.Threshold
	Scope            condition.Scope
	MinDiscount      int
	RequireReference bool
	SkipNeverSold    bool
	// HighDemandRatio enables a lower global minimum discount for releases
	// whose want/have ratio reaches it. Zero disables the relaxation.
	HighDemandRatio    float64
	HighDemandDiscount int
	BlockedSellers     []string
	// VG+ media is only accepted on releases at least VGMinAge years old
	// and from sellers rated at least VGMinSellerRating. Zero disables each.
	VGMinAge          int
	VGMinSellerRating float64
}

// RulesFromConfig copies the filter settings.
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		MinCondition:       cfg.MinCondition,
		Scope:              cfg.ConditionScope,
		MinDiscount:        cfg.MinDiscount,
		RequireReference:   cfg.RequireReference,
		SkipNeverSold:      cfg.SkipNeverSold,
		HighDemandRatio:    cfg.HighDemandRatio,
		HighDemandDiscount: cfg.HighDemandDiscount,
		BlockedSellers:     cfg.BlockedSellers,
		VGMinAge:           cfg.AllowVGMinAge,
		VGMinSellerRating:  cfg.AllowVGMinSellerRating,
	}
}

// Result of matching one source.
type Result struct {
	Deals    []models.Deal
	Rejected map[string]int
}

// Matcher applies Rules to listings.
type Matcher struct {
	rules     Rules
	evaluator discount.Evaluator
	blocked   map[string]bool
	now       func() time.Time
}

func New(rules Rules, evaluator discount.Evaluator) *Matcher {
	blocked := lo.SliceToMap(rules.BlockedSellers, func(s string) (string, bool) {
		return strings.ToLower(strings.TrimSpace(s)), true
	})
	return &Matcher{rules: rules, evaluator: evaluator, blocked: blocked, now: time.Now}
}

// criteria is what a WantItem or SavedSearch adds to the global rules.
type criteria struct {
	kind        models.SourceKind
	id          string
	releaseID   int
	formats     []string
	genres      []string
	maxPrice    decimal.NullDecimal
	threshold   condition.Threshold
	minDiscount *int
}

// MatchWant filters listings fetched for a want-list item.
func (m *Matcher) MatchWant(w models.WantItem, listings []models.Listing) Result {
	return m.match(criteria{
		kind:      models.SourceWantlist,
		id:        w.ID,
		releaseID: w.ReleaseID,
		maxPrice:  w.MaxPrice,
		threshold: m.itemThreshold(w.MinCondition, w.ID),
	}, listings)
}

// MatchSearch filters listings fetched for a saved search.
func (m *Matcher) MatchSearch(s models.SavedSearch, listings []models.Listing) Result {
	return m.match(criteria{
		kind:        models.SourceSearch,
		id:          s.ID,
		formats:     s.Formats,
		genres:      s.Genres,
		maxPrice:    s.MaxPrice,
		threshold:   m.itemThreshold(s.MinCondition, s.ID),
		minDiscount: s.MinDiscount,
	}, listings)
}

// itemThreshold combines the global threshold with a per-item expression.
// Snapshot items were validated on sync, so a parse failure here only comes
// from hand-edited state and falls back to the global rule.
func (m *Matcher) itemThreshold(expr, id string) condition.Threshold {
	if expr == "" {
		return m.rules.MinCondition
	}
	t, err := condition.ParseThreshold(expr)
	if err != nil {
		slog.Warn("Ignoring invalid per-item condition", "id", id, "expr", expr, "error", err)
		return m.rules.MinCondition
	}
	return m.rules.MinCondition.Stricter(t)
}

func (m *Matcher) match(c criteria, listings []models.Listing) Result {
	res := Result{Rejected: make(map[string]int)}
	for _, l := range listings {
		d, reason := m.evaluate(c, l)
		if reason != "" {
			res.Rejected[reason]++
			slog.Debug("Rejected listing", "source", c.id, "listing", l.ID, "reason", reason)
			continue
		}
		res.Deals = append(res.Deals, d)
	}
	SortDeals(res.Deals)
	return res
}

func (m *Matcher) evaluate(c criteria, l models.Listing) (models.Deal, string) {
	if l.ID == "" || l.Price.IsNegative() {
		return models.Deal{}, ReasonBadListing
	}

	switch c.kind {
	case models.SourceWantlist:
		if l.ReleaseID != c.releaseID {
			return models.Deal{}, ReasonRelease
		}
	case models.SourceSearch:
		if len(c.formats) > 0 && !intersects(c.formats, l.Formats) {
			return models.Deal{}, ReasonFormat
		}
		if len(c.genres) > 0 && !intersects(c.genres, l.Genres) {
			return models.Deal{}, ReasonGenre
		}
	}

	if c.maxPrice.Valid && m.evaluator.EffectivePrice(l).GreaterThan(c.maxPrice.Decimal) {
		return models.Deal{}, ReasonMaxPrice
	}

	if m.blocked[strings.ToLower(l.Seller.Username)] {
		return models.Deal{}, ReasonSeller
	}

	if !c.threshold.Accepts(l.MediaCondition, l.SleeveCondition, m.rules.Scope) {
		return models.Deal{}, ReasonCondition
	}

	if !m.allowsVGPlus(l) {
		return models.Deal{}, ReasonVGPlus
	}

	disc := m.evaluator.Evaluate(l)
	if disc.Determinate {
		if disc.Percent < m.minDiscount(c, l) {
			return models.Deal{}, ReasonDiscount
		}
	} else if m.rules.RequireReference {
		return models.Deal{}, ReasonNoRef
	}

	if m.rules.SkipNeverSold && discount.IsNeverSold(l) {
		return models.Deal{}, ReasonNeverSold
	}

	return models.Deal{Listing: l, Discount: disc, SourceKind: c.kind, SourceID: c.id}, ""
}

var vgPlus = condition.MustParseThreshold("=VG+")

// allowsVGPlus applies the age and seller rating limits to VG+ media.
// A release without a known year is not held to the age limit.
func (m *Matcher) allowsVGPlus(l models.Listing) bool {
	if !vgPlus.Accepts(l.MediaCondition, l.SleeveCondition, condition.ScopeMedia) {
		return true
	}
	if m.rules.VGMinAge > 0 && l.Year > 0 && m.now().Year()-l.Year < m.rules.VGMinAge {
		return false
	}
	if m.rules.VGMinSellerRating > 0 && l.Seller.Rating < m.rules.VGMinSellerRating {
		return false
	}
	return true
}

// minDiscount is the larger of the global minimum and the source override.
// High-demand relaxation only lowers the global part.
func (m *Matcher) minDiscount(c criteria, l models.Listing) int {
	global := m.rules.MinDiscount
	if m.rules.HighDemandRatio > 0 && l.Stats.DemandRatio() >= m.rules.HighDemandRatio {
		global = min(global, m.rules.HighDemandDiscount)
	}
	if c.minDiscount != nil {
		return max(global, *c.minDiscount)
	}
	return global
}

func intersects(want, have []string) bool {
	return lo.SomeBy(have, func(h string) bool {
		return lo.ContainsBy(want, func(w string) bool { return strings.EqualFold(w, h) })
	})
}

// SortDeals orders deals by discount descending, then listing id ascending.
// Indeterminate discounts sort after every determinate one.
func SortDeals(deals []models.Deal) {
	slices.SortStableFunc(deals, func(a, b models.Deal) int {
		if a.Discount.Determinate != b.Discount.Determinate {
			if a.Discount.Determinate {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Discount.Percent, a.Discount.Percent); c != 0 {
			return c
		}
		return compareIDs(a.Listing.ID, b.Listing.ID)
	})
}

// compareIDs orders numeric ids numerically and anything else lexically.
func compareIDs(a, b string) int {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return cmp.Compare(len(a), len(b))
	}
	return cmp.Compare(a, b)
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
