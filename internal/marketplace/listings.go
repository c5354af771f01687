package marketplace

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/gorilla/feeds"

	"github.com/pauljones0/discogs-deals/internal/condition"
	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/util"
)

const (
	feedPageSize = 250
	maxFeedPages = 4
)

// WantListings returns the current listings of the want's release.
func (c *Client) WantListings(ctx context.Context, w models.WantItem) ([]models.Listing, error) {
	params := map[string]string{
		"release_id": strconv.Itoa(w.ReleaseID),
		"currency":   c.config.Currency,
	}
	listings, err := c.listingsFromFeed(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("want %s: %w", w.ID, err)
	}
	return listings, nil
}

// SearchListings runs a saved search against the marketplace feed. Only a
// single format or genre can be expressed in the feed query; the matcher
// applies the full lists.
func (c *Client) SearchListings(ctx context.Context, s models.SavedSearch) ([]models.Listing, error) {
	params := map[string]string{"currency": c.config.Currency}
	if s.Currency != "" {
		params["currency"] = s.Currency
	}
	if q := strings.TrimSpace(s.Query); q != "" {
		params["q"] = q
	}
	if len(s.Formats) == 1 {
		params["format"] = s.Formats[0]
	}
	if len(s.Genres) == 1 {
		params["genre"] = s.Genres[0]
	}
	listings, err := c.listingsFromFeed(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.ID, err)
	}
	return listings, nil
}

// listingsFromFeed walks the newest-first listing feed back to
// LISTING_MAX_AGE and resolves every entry into a Listing. Listings that
// vanished or carry unusable data are skipped; a transient failure fails the
// whole query.
func (c *Client) listingsFromFeed(ctx context.Context, params map[string]string) ([]models.Listing, error) {
	entries, err := c.feedEntries(ctx, params)
	if err != nil {
		return nil, err
	}

	listings := make([]models.Listing, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		id := entryListingID(e)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		l, err := c.listing(ctx, id, e)
		if errors.Is(err, models.ErrPermanent) {
			slog.Debug("Skipping listing", "listing", id, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func (c *Client) feedEntries(ctx context.Context, params map[string]string) ([]*feeds.AtomEntry, error) {
	var cutoff time.Time
	if c.config.ListingMaxAge > 0 {
		cutoff = c.now().Add(-c.config.ListingMaxAge)
	}

	var entries []*feeds.AtomEntry
	for page := 1; page <= maxFeedPages; page++ {
		q := map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(feedPageSize),
			"sort":  "listed,desc",
		}
		for k, v := range params {
			q[k] = v
		}

		body, err := c.get(ctx, request{endpoint: "listing_feed", url: c.webURL + "/sell/mplistrss", params: q})
		if err != nil {
			return nil, fmt.Errorf("fetch listing feed: %w", err)
		}
		var feed feeds.AtomFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return nil, fmt.Errorf("%w: parse listing feed: %w", models.ErrPermanent, err)
		}

		for _, e := range feed.Entries {
			if !cutoff.IsZero() {
				if updated, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Updated)); err == nil && updated.Before(cutoff) {
					return entries, nil
				}
			}
			entries = append(entries, e)
		}
		if len(feed.Entries) < feedPageSize {
			break
		}
	}
	return entries, nil
}

func entryListingID(e *feeds.AtomEntry) string {
	if id := util.TrailingID(e.Id); id != "" {
		return id
	}
	for _, l := range e.Links {
		if id := util.TrailingID(l.Href); id != "" {
			return id
		}
	}
	return ""
}

// listing resolves one feed entry through the listing and release endpoints.
func (c *Client) listing(ctx context.Context, id string, entry *feeds.AtomEntry) (models.Listing, error) {
	body, err := c.get(ctx, request{
		endpoint: "listing",
		url:      c.apiURL + "/marketplace/listings/" + id,
		params:   map[string]string{"curr_abbr": c.config.Currency},
		auth:     true,
	})
	if err != nil {
		return models.Listing{}, fmt.Errorf("fetch listing %s: %w", id, err)
	}
	var raw listingResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Listing{}, fmt.Errorf("%w: decode listing %s: %w", models.ErrPermanent, id, err)
	}
	if raw.Status != "" && raw.Status != "For Sale" {
		return models.Listing{}, fmt.Errorf("%w: listing %s is %s", models.ErrPermanent, id, raw.Status)
	}
	if raw.ShippingPrice == nil {
		return models.Listing{}, fmt.Errorf("%w: listing %s has no shipping price", models.ErrPermanent, id)
	}

	media, err := condition.ParseGrade(raw.Condition)
	if err != nil {
		return models.Listing{}, fmt.Errorf("%w: listing %s: %w", models.ErrPermanent, id, err)
	}
	sleeve, err := condition.ParseSleeve(raw.SleeveCondition)
	if err != nil {
		sleeve = condition.Ungraded
	}

	rel, err := c.release(ctx, raw.Release.ID)
	if err != nil {
		return models.Listing{}, err
	}

	l := models.Listing{
		ID:              id,
		ReleaseID:       raw.Release.ID,
		Artist:          rel.Artist,
		Title:           rel.Title,
		Formats:         rel.Formats,
		Genres:          rel.Genres,
		Year:            rel.Year,
		Thumbnail:       rel.Thumbnail,
		Seller:          models.Seller{Username: raw.Seller.Username, Rating: float64(raw.Seller.Stats.Rating)},
		Price:           raw.Price.Value,
		Shipping:        raw.ShippingPrice.Value,
		Currency:        raw.Price.Currency,
		MediaCondition:  media,
		SleeveCondition: sleeve,
		Stats:           rel.stats(media),
		Comments:        util.CollapseSpace(raw.Comments),
	}
	if l.Artist == "" {
		l.Artist = util.StripDisambiguation(raw.Release.Artist)
	}
	if l.Title == "" {
		l.Title = raw.Release.Title
	}
	if l.Year == 0 {
		l.Year = raw.Release.Year
	}
	if l.Thumbnail == "" {
		l.Thumbnail = raw.Release.Thumbnail
	}
	if l.Currency == "" {
		l.Currency = c.config.Currency
	}
	if posted, err := time.Parse(time.RFC3339, raw.Posted); err == nil {
		l.Posted = posted.UTC()
	}
	if l.Comments == "" && entry != nil && entry.Summary != nil {
		l.Comments = plainText(entry.Summary.Content)
	}

	l.URL = util.ListingURL(c.webURL, id)
	if raw.URI != "" {
		if u, err := util.NormalizeURL(raw.URI); err == nil {
			l.URL = u
		}
	}
	return l, nil
}

// plainText flattens an HTML fragment.
func plainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return util.CollapseSpace(fragment)
	}
	doc.Find("br").ReplaceWithHtml(" ")
	return util.CollapseSpace(doc.Text())
}
