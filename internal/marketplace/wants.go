package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	wantsPageSize = 100
	maxWantsPages = 200
)

// WantEntry is one release on a user's want-list as Discogs reports it.
type WantEntry struct {
	ReleaseID int
	Artist    string
	Title     string
	Year      int
	Notes     string
	DateAdded time.Time
}

// Wants pages through the user's want-list.
func (c *Client) Wants(ctx context.Context, username string) ([]WantEntry, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("no Discogs username configured")
	}

	next := fmt.Sprintf("%s/users/%s/wants", c.apiURL, url.PathEscape(username))
	params := map[string]string{"page": "1", "per_page": fmt.Sprint(wantsPageSize)}

	var wants []WantEntry
	for page := 0; next != "" && page < maxWantsPages; page++ {
		body, err := c.get(ctx, request{endpoint: "wants", url: next, params: params, auth: true})
		if err != nil {
			return nil, fmt.Errorf("fetch want-list page %d: %w", page+1, err)
		}
		var raw wantsResponse
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decode want-list page %d: %w", page+1, err)
		}

		for _, w := range raw.Wants {
			entry := WantEntry{
				ReleaseID: w.ID,
				Artist:    artistNames(w.BasicInformation.Artists),
				Title:     strings.TrimSpace(w.BasicInformation.Title),
				Year:      w.BasicInformation.Year,
				Notes:     strings.TrimSpace(w.Notes),
			}
			if t, err := time.Parse(time.RFC3339, w.DateAdded); err == nil {
				entry.DateAdded = t.UTC()
			}
			wants = append(wants, entry)
		}

		// The next URL already carries the paging parameters.
		next = raw.Pagination.URLs.Next
		params = nil
	}
	return wants, nil
}
