package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/condition"
	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/util"
)

const statsOperation = "ReleaseMarketplaceData"

// releaseInfo is everything a run needs to know about a release, cached for
// RELEASE_CACHE_TTL.
type releaseInfo struct {
	ID          int
	Artist      string
	Title       string
	Formats     []string
	Genres      []string
	Year        int
	Thumbnail   string
	Have        int
	Want        int
	Suggestions map[condition.Grade]decimal.Decimal
	Median      *decimal.Decimal
	TimesSold   *int
}

// stats is the release history as seen by a listing in the given condition.
func (r *releaseInfo) stats(media condition.Grade) models.ReleaseStats {
	s := models.ReleaseStats{
		Median:    r.Median,
		TimesSold: r.TimesSold,
		Have:      r.Have,
		Want:      r.Want,
	}
	if v, ok := r.Suggestions[media]; ok {
		s.Suggested = &v
	}
	return s
}

func releaseKey(id int) string { return "release:" + strconv.Itoa(id) }

// release returns the cached release or fetches release data, price
// suggestions and sale statistics.
func (c *Client) release(ctx context.Context, id int) (*releaseInfo, error) {
	if v, ok := c.cache.Get(releaseKey(id)); ok {
		return v.(*releaseInfo), nil
	}

	body, err := c.get(ctx, request{
		endpoint: "release",
		url:      fmt.Sprintf("%s/releases/%d", c.apiURL, id),
		params:   map[string]string{"curr_abbr": c.config.Currency},
		auth:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch release %d: %w", id, err)
	}
	var raw releaseResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode release %d: %w", models.ErrPermanent, id, err)
	}

	info := &releaseInfo{
		ID:        id,
		Title:     strings.TrimSpace(raw.Title),
		Genres:    append(raw.Genres, raw.Styles...),
		Year:      raw.Year,
		Thumbnail: raw.Thumb,
		Have:      raw.Community.Have,
		Want:      raw.Community.Want,
	}
	info.Artist = artistNames(raw.Artists)
	for _, f := range raw.Formats {
		info.Formats = append(info.Formats, f.Name)
		info.Formats = append(info.Formats, f.Descriptions...)
	}
	info.Formats = lo.Uniq(info.Formats)

	info.Suggestions, err = c.priceSuggestions(ctx, id)
	if err != nil {
		return nil, err
	}
	info.Median, info.TimesSold = c.saleStatistics(ctx, id)

	c.cache.Set(releaseKey(id), info, cache.DefaultExpiration)
	return info, nil
}

func artistNames(artists []artist) string {
	names := lo.Map(artists, func(a artist, _ int) string {
		return util.StripDisambiguation(a.Name)
	})
	return strings.Join(lo.Uniq(lo.Compact(names)), ", ")
}

// priceSuggestions needs seller settings on the account; a refusal means no
// suggestions rather than a failed query.
func (c *Client) priceSuggestions(ctx context.Context, id int) (map[condition.Grade]decimal.Decimal, error) {
	body, err := c.get(ctx, request{
		endpoint: "price_suggestions",
		url:      fmt.Sprintf("%s/marketplace/price_suggestions/%d", c.apiURL, id),
		auth:     true,
	})
	if errors.Is(err, models.ErrPermanent) {
		slog.Debug("No price suggestions", "release", id, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch price suggestions %d: %w", id, err)
	}

	var raw priceSuggestions
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("Undecodable price suggestions", "release", id, "error", err)
		return nil, nil
	}
	out := make(map[condition.Grade]decimal.Decimal, len(raw))
	for label, m := range raw {
		g, err := condition.ParseGrade(label)
		if err != nil || !m.Value.IsPositive() {
			continue
		}
		out[g] = m.Value
	}
	return out, nil
}

// saleStatistics asks the catalog GraphQL service for the median sale price.
// The service is undocumented, so any failure leaves the statistics unknown.
// A release whose statistics are all null has never sold.
func (c *Client) saleStatistics(ctx context.Context, id int) (*decimal.Decimal, *int) {
	if c.config.StatsQueryHash == "" || c.graphQLURL == "" {
		return nil, nil
	}

	variables, _ := json.Marshal(map[string]any{"discogsId": id, "currency": c.config.Currency})
	extensions, _ := json.Marshal(map[string]any{
		"persistedQuery": map[string]any{"version": 1, "sha256Hash": c.config.StatsQueryHash},
	})
	body, err := c.get(ctx, request{
		endpoint: "statistics",
		url:      c.graphQLURL,
		params: map[string]string{
			"operationName": statsOperation,
			"variables":     string(variables),
			"extensions":    string(extensions),
		},
		headers: map[string]string{
			"Origin":  c.webURL,
			"Referer": c.webURL + "/",
		},
	})
	if err != nil {
		slog.Warn("Failed to fetch sale statistics", "release", id, "error", err)
		return nil, nil
	}

	var raw statsResponse
	if err := json.Unmarshal(body, &raw); err != nil || raw.Data == nil || raw.Data.Release == nil {
		slog.Warn("Unexpected sale statistics payload", "release", id, "error", err)
		return nil, nil
	}

	stats := raw.Data.Release.Statistics
	for _, k := range []string{"min", "median", "max"} {
		if _, ok := stats[k]; !ok {
			slog.Warn("Sale statistics missing field", "release", id, "field", k)
			return nil, nil
		}
	}
	if stats["min"] == nil && stats["median"] == nil && stats["max"] == nil {
		zero := 0
		return nil, &zero
	}
	if m := stats["median"]; m != nil && m.Converted != nil && m.Converted.Amount != nil {
		return m.Converted.Amount, nil
	}
	return nil, nil
}
