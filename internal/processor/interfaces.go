package processor

import (
	"context"

	"github.com/pauljones0/discogs-deals/internal/feed"
	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/snapshot"
)

// ListingSource queries the marketplace. Errors wrap models.ErrTransient or
// models.ErrPermanent.
type ListingSource interface {
	WantListings(ctx context.Context, want models.WantItem) ([]models.Listing, error)
	SearchListings(ctx context.Context, search models.SavedSearch) ([]models.Listing, error)
}

// SnapshotReader supplies the want-list and saved searches.
type SnapshotReader interface {
	Wantlist(ctx context.Context) snapshot.Snapshot[models.WantItem]
	Searches(ctx context.Context) snapshot.Snapshot[models.SavedSearch]
}

// FeedPublisher exposes the currently published feed and replaces it.
type FeedPublisher interface {
	Previous(ctx context.Context) []feed.Entry
	Publish(ctx context.Context, doc *feed.Document) error
}

// DealNotifier abstracts the notification layer.
type DealNotifier interface {
	Send(ctx context.Context, deal models.Deal) (string, error)
}
