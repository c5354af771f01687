// Package snapshot persists the two collections that drive a run: the
// want-list and the saved searches. A snapshot is replaced as a whole.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/storage"
	"github.com/pauljones0/discogs-deals/internal/validator"
)

// Kind names a snapshot collection.
type Kind string

const (
	KindWantlist Kind = storage.KeyWantlist
	KindSearches Kind = storage.KeySearches
)

const envelopeVersion = 1

// Keyed items carry a stable identifier.
type Keyed interface {
	Key() string
}

// Snapshot is the current state of one collection.
type Snapshot[T Keyed] struct {
	Kind    Kind      `json:"kind"`
	TakenAt time.Time `json:"taken_at"`
	Items   []T       `json:"items"`
}

// Len returns the number of items.
func (s Snapshot[T]) Len() int { return len(s.Items) }

type envelope[T Keyed] struct {
	Version int `json:"version"`
	Snapshot[T]
}

// Store reads and replaces snapshots on top of a blob backend.
type Store struct {
	blobs    storage.BlobStore
	validate *validator.Validator
	now      func() time.Time
}

func New(blobs storage.BlobStore, v *validator.Validator) *Store {
	return &Store{blobs: blobs, validate: v, now: time.Now}
}

// Wantlist returns the current want-list snapshot, empty if none was stored.
func (s *Store) Wantlist(ctx context.Context) Snapshot[models.WantItem] {
	return load[models.WantItem](ctx, s.blobs, KindWantlist)
}

// Searches returns the current saved-search snapshot, empty if none was stored.
func (s *Store) Searches(ctx context.Context) Snapshot[models.SavedSearch] {
	return load[models.SavedSearch](ctx, s.blobs, KindSearches)
}

// ReplaceWantlist makes items the current want-list.
func (s *Store) ReplaceWantlist(ctx context.Context, items []models.WantItem) (Snapshot[models.WantItem], error) {
	return replace(ctx, s, KindWantlist, items)
}

// ReplaceSearches makes items the current saved-search list.
func (s *Store) ReplaceSearches(ctx context.Context, items []models.SavedSearch) (Snapshot[models.SavedSearch], error) {
	return replace(ctx, s, KindSearches, items)
}

func load[T Keyed](ctx context.Context, blobs storage.BlobStore, kind Kind) Snapshot[T] {
	empty := Snapshot[T]{Kind: kind}

	data, err := blobs.Get(ctx, string(kind))
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("No snapshot stored yet", "kind", kind)
		return empty
	}
	if err != nil {
		slog.Warn("Failed to read snapshot, treating as empty", "kind", kind, "error", err)
		return empty
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("Corrupt snapshot, treating as empty", "kind", kind, "error", err)
		return empty
	}
	if env.Version != envelopeVersion || env.Kind != kind {
		slog.Warn("Unrecognized snapshot envelope, treating as empty", "kind", kind, "version", env.Version, "stored_kind", env.Kind)
		return empty
	}
	return env.Snapshot
}

func replace[T Keyed](ctx context.Context, s *Store, kind Kind, items []T) (Snapshot[T], error) {
	seen := make(map[string]bool, len(items))
	kept := make([]T, 0, len(items))
	for i, item := range items {
		if err := s.validate.ValidateStruct(item); err != nil {
			return Snapshot[T]{}, fmt.Errorf("%s item %d: %w", kind, i, err)
		}
		if seen[item.Key()] {
			slog.Warn("Dropping duplicate snapshot item", "kind", kind, "id", item.Key())
			continue
		}
		seen[item.Key()] = true
		kept = append(kept, item)
	}

	snap := Snapshot[T]{Kind: kind, TakenAt: s.now().UTC(), Items: kept}
	data, err := json.Marshal(envelope[T]{Version: envelopeVersion, Snapshot: snap})
	if err != nil {
		return Snapshot[T]{}, fmt.Errorf("encode %s snapshot: %w", kind, err)
	}
	if err := s.blobs.Put(ctx, string(kind), data); err != nil {
		return Snapshot[T]{}, fmt.Errorf("store %s snapshot: %w", kind, err)
	}
	slog.Info("Replaced snapshot", "kind", kind, "items", len(kept))
	return snap, nil
}
