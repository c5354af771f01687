package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/condition"
	"github.com/pauljones0/discogs-deals/internal/models"
)

// searchEntry is one saved search as written in the searches file.
type searchEntry struct {
	ID           string   `koanf:"id"`
	Query        string   `koanf:"query"`
	Formats      []string `koanf:"formats"`
	Genres       []string `koanf:"genres"`
	Currency     string   `koanf:"currency"`
	MaxPrice     string   `koanf:"max_price"`
	MinCondition string   `koanf:"min_condition"`
	MinDiscount  *int     `koanf:"min_discount"`
}

type SearchSync struct {
	store SnapshotWriter
}

func NewSearchSync(store SnapshotWriter) *SearchSync {
	return &SearchSync{store: store}
}

// Run loads the saved searches from a YAML file and replaces the snapshot.
// Any invalid entry fails the whole sync.
func (s *SearchSync) Run(ctx context.Context, path string) (int, error) {
	searches, err := LoadSearches(path)
	if err != nil {
		return 0, err
	}
	snap, err := s.store.ReplaceSearches(ctx, searches)
	if err != nil {
		return 0, fmt.Errorf("failed to store saved searches: %w", err)
	}
	slog.Info("Saved searches synced", "path", path, "items", snap.Len())
	return snap.Len(), nil
}

// LoadSearches reads the "searches" list of a YAML file.
func LoadSearches(path string) ([]models.SavedSearch, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load searches file %s: %w", path, err)
	}

	var entries []searchEntry
	if err := k.Unmarshal("searches", &entries); err != nil {
		return nil, fmt.Errorf("failed to parse searches file %s: %w", path, err)
	}

	searches := make([]models.SavedSearch, 0, len(entries))
	for i, e := range entries {
		search, err := e.toModel()
		if err != nil {
			return nil, fmt.Errorf("search %d (%q): %w", i+1, e.ID, err)
		}
		searches = append(searches, search)
	}
	return searches, nil
}

func (e searchEntry) toModel() (models.SavedSearch, error) {
	s := models.SavedSearch{
		ID:           strings.TrimSpace(e.ID),
		Query:        strings.TrimSpace(e.Query),
		Formats:      e.Formats,
		Genres:       e.Genres,
		Currency:     strings.ToUpper(strings.TrimSpace(e.Currency)),
		MinCondition: strings.TrimSpace(e.MinCondition),
		MinDiscount:  e.MinDiscount,
	}
	if s.MinCondition != "" {
		if _, err := condition.ParseThreshold(s.MinCondition); err != nil {
			return s, fmt.Errorf("invalid min_condition: %w", err)
		}
	}
	if p := strings.TrimSpace(e.MaxPrice); p != "" {
		price, err := decimal.NewFromString(p)
		if err != nil {
			return s, fmt.Errorf("invalid max_price %q: %w", p, err)
		}
		s.MaxPrice = decimal.NewNullDecimal(price)
	}
	return s, nil
}
