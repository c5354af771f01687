package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/condition"
	"github.com/pauljones0/discogs-deals/internal/marketplace"
	"github.com/pauljones0/discogs-deals/internal/models"
)

type WantlistSync struct {
	source WantlistSource
	store  SnapshotWriter
	user   string
}

func NewWantlistSync(src WantlistSource, store SnapshotWriter, user string) *WantlistSync {
	return &WantlistSync{source: src, store: store, user: user}
}

// Run pulls the want-list and replaces the snapshot. A failed pull leaves the
// previous snapshot in place.
func (s *WantlistSync) Run(ctx context.Context) (int, error) {
	slog.Info("Syncing want-list", "user", s.user)
	wants, err := s.source.Wants(ctx, s.user)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch want-list: %w", err)
	}

	items := make([]models.WantItem, 0, len(wants))
	for _, w := range wants {
		items = append(items, wantItem(w))
	}

	snap, err := s.store.ReplaceWantlist(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("failed to store want-list: %w", err)
	}
	slog.Info("Want-list synced", "items", snap.Len())
	return snap.Len(), nil
}

func wantItem(w marketplace.WantEntry) models.WantItem {
	item := models.WantItem{
		ID:        strconv.Itoa(w.ReleaseID),
		ReleaseID: w.ReleaseID,
		Artist:    w.Artist,
		Title:     w.Title,
		DateAdded: w.DateAdded,
	}
	d := parseDirectives(w.Notes)
	item.Notes = d.rest
	item.MaxPrice = d.maxPrice
	item.MinCondition = d.minCondition
	return item
}

type directives struct {
	maxPrice     decimal.NullDecimal
	minCondition string
	rest         string
}

// parseDirectives reads per-item overrides from want notes: "max=25.00"
// caps the price and "cond=>=VG+" sets a condition floor. Anything else is
// kept as the note text. Invalid directives are ignored with a warning.
func parseDirectives(notes string) directives {
	var d directives
	var rest []string
	for _, field := range strings.Fields(notes) {
		key, value, ok := strings.Cut(field, "=")
		switch {
		case ok && strings.EqualFold(key, "max"):
			price, err := decimal.NewFromString(value)
			if err != nil || price.IsNegative() {
				slog.Warn("Ignoring invalid max price in want notes", "value", value)
				continue
			}
			d.maxPrice = decimal.NewNullDecimal(price)
		case ok && strings.EqualFold(key, "cond"):
			if _, err := condition.ParseThreshold(value); err != nil {
				slog.Warn("Ignoring invalid condition in want notes", "value", value, "error", err)
				continue
			}
			d.minCondition = value
		default:
			rest = append(rest, field)
		}
	}
	d.rest = strings.Join(rest, " ")
	return d
}
