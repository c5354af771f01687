package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/condition"
)

var (
	// ErrTransient marks a marketplace failure that may succeed on the next run
	// (timeouts, rate limiting, 5xx).
	ErrTransient = errors.New("transient marketplace error")
	// ErrPermanent marks a marketplace failure that will not resolve by retrying.
	ErrPermanent = errors.New("permanent marketplace error")
)

// SourceKind identifies what produced a candidate listing.
type SourceKind string

const (
	SourceWantlist SourceKind = "want"
	SourceSearch   SourceKind = "search"
)

// Seller of a listing.
type Seller struct {
	Username string  `json:"username"`
	Rating   float64 `json:"rating"`
}

// ReleaseStats holds the marketplace history of a release. Nil pointers mean
// the value was not reported.
type ReleaseStats struct {
	Median    *decimal.Decimal `json:"median,omitempty"`
	Suggested *decimal.Decimal `json:"suggested,omitempty"`
	TimesSold *int             `json:"times_sold,omitempty"`
	Have      int              `json:"have"`
	Want      int              `json:"want"`
}

// DemandRatio is want/have, zero when nobody has the release.
func (s ReleaseStats) DemandRatio() float64 {
	if s.Have <= 0 {
		return 0
	}
	return float64(s.Want) / float64(s.Have)
}

// Listing is a single marketplace offer. Listings only live for one run.
type Listing struct {
	ID              string          `json:"id"`
	ReleaseID       int             `json:"release_id"`
	Artist          string          `json:"artist"`
	Title           string          `json:"title"`
	Formats         []string        `json:"formats,omitempty"`
	Genres          []string        `json:"genres,omitempty"`
	Year            int             `json:"year,omitempty"`
	Thumbnail       string          `json:"thumbnail,omitempty"`
	Seller          Seller          `json:"seller"`
	Price           decimal.Decimal `json:"price"`
	Shipping        decimal.Decimal `json:"shipping"`
	Currency        string          `json:"currency"`
	MediaCondition  condition.Grade `json:"media_condition"`
	SleeveCondition condition.Grade `json:"sleeve_condition"`
	Stats           ReleaseStats    `json:"stats"`
	URL             string          `json:"url"`
	Posted          time.Time       `json:"posted"`
	Comments        string          `json:"comments,omitempty"`
}

// Description is the "Artist - Title" form used in feed entries and logs.
func (l Listing) Description() string {
	switch {
	case l.Artist == "":
		return l.Title
	case l.Title == "":
		return l.Artist
	}
	return l.Artist + " - " + l.Title
}

// Discount is the evaluated price advantage of a listing.
type Discount struct {
	// Percent is only meaningful when Determinate is set. Negative values mean
	// the listing is above its reference price.
	Percent     int
	Reference   decimal.Decimal
	Basis       string
	Determinate bool
}

// Deal is a listing that passed every filter for some source.
type Deal struct {
	Listing    Listing
	Discount   Discount
	SourceKind SourceKind
	SourceID   string
}
