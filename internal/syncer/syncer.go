// Package syncer refreshes the want-list and saved-search snapshots from
// their upstream sources.
package syncer

import (
	"context"

	"github.com/pauljones0/discogs-deals/internal/marketplace"
	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/snapshot"
)

// WantlistSource fetches a user's want-list.
type WantlistSource interface {
	Wants(ctx context.Context, username string) ([]marketplace.WantEntry, error)
}

// SnapshotWriter replaces snapshots wholesale.
type SnapshotWriter interface {
	ReplaceWantlist(ctx context.Context, items []models.WantItem) (snapshot.Snapshot[models.WantItem], error)
	ReplaceSearches(ctx context.Context, items []models.SavedSearch) (snapshot.Snapshot[models.SavedSearch], error)
}
