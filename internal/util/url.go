package util

import (
	"net/url"
	"strings"
)

// discogsDomains lists hosts where NormalizeURL forces HTTPS and the canonical
// www host.
var discogsDomains = []string{
	"discogs.com",
	"www.discogs.com",
}

func isDiscogsDomain(host string) bool {
	for _, d := range discogsDomains {
		if host == d {
			return true
		}
	}
	return false
}

// NormalizeURL canonicalizes a marketplace link so the same listing always
// renders the same URL. Non-Discogs URLs are returned unchanged.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}

	if !isDiscogsDomain(parsedURL.Hostname()) {
		return rawURL, nil
	}

	parsedURL.Scheme = "https"
	parsedURL.Host = "www.discogs.com"
	if len(parsedURL.Path) > 1 && strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path = parsedURL.Path[:len(parsedURL.Path)-1]
		// Clear RawPath to ensure String() regenerates the URL path without the trailing slash
		parsedURL.RawPath = ""
	}
	queryParams := parsedURL.Query()
	trackingParams := []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "ev", "ref"}
	for _, param := range trackingParams {
		if queryParams.Has(param) {
			queryParams.Del(param)
		}
	}
	parsedURL.RawQuery = queryParams.Encode()
	parsedURL.Fragment = ""
	return parsedURL.String(), nil
}

// ListingURL is the public page of a marketplace listing.
func ListingURL(webBase, listingID string) string {
	return strings.TrimSuffix(webBase, "/") + "/sell/item/" + listingID
}
