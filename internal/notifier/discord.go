package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/pauljones0/discogs-deals/internal/feed"
	"github.com/pauljones0/discogs-deals/internal/models"
)

const (
	colorNoHistory = 3092790  // #2F3136
	colorGoodDeal  = 16776960 // #FFFF00
	colorGreatDeal = 16753920 // #FFA500
	colorSteal     = 16711680 // #FF0000

	discountThresholdGood  = 25
	discountThresholdGreat = 40
	discountThresholdSteal = 60

	maxRetries  = 3
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
)

// Client posts deals to a Discord webhook.
type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// New returns a client for the webhook. An empty URL disables sending.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows 5 webhook requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(400*time.Millisecond), 1),
	}
}

// Send posts a deal and returns the message ID.
func (c *Client) Send(ctx context.Context, deal models.Deal) (string, error) {
	if c.webhookURL == "" {
		return "", nil
	}
	return c.sendAndGetMessageID(ctx, formatDealToEmbed(deal))
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	URL         string                `json:"url,omitempty"`
	Timestamp   string                `json:"timestamp,omitempty"`
	Color       int                   `json:"color,omitempty"`
	Thumbnail   discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField   `json:"fields,omitempty"`
	Footer      discordEmbedFooter    `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func formatDealToEmbed(deal models.Deal) discordEmbed {
	l := deal.Listing

	var timestamp string
	if !l.Posted.IsZero() {
		timestamp = l.Posted.UTC().Format(time.RFC3339)
	}

	fields := []discordEmbedField{
		{Name: "Price", Value: fmt.Sprintf("%s + %s %s", l.Price.StringFixed(2), l.Shipping.StringFixed(2), l.Currency), Inline: true},
		{Name: "Condition", Value: l.MediaCondition.String() + " / " + l.SleeveCondition.String(), Inline: true},
	}
	if l.Seller.Username != "" {
		seller := l.Seller.Username
		if l.Seller.Rating > 0 {
			seller += fmt.Sprintf(" (%.1f%%)", l.Seller.Rating)
		}
		fields = append(fields, discordEmbedField{Name: "Seller", Value: seller, Inline: true})
	}

	embed := discordEmbed{
		Title:       l.Description(),
		URL:         l.URL,
		Description: feed.Summary(deal),
		Timestamp:   timestamp,
		Color:       discountColor(deal.Discount),
		Thumbnail:   discordEmbedThumbnail{URL: l.Thumbnail},
		Fields:      fields,
	}
	if deal.SourceKind == models.SourceSearch {
		embed.Footer.Text = "Saved search " + deal.SourceID
	} else {
		embed.Footer.Text = "Want-list release " + deal.SourceID
	}
	return embed
}

func discountColor(d models.Discount) int {
	if !d.Determinate {
		return colorNoHistory
	}
	switch {
	case d.Percent >= discountThresholdSteal:
		return colorSteal
	case d.Percent >= discountThresholdGreat:
		return colorGreatDeal
	case d.Percent >= discountThresholdGood:
		return colorGoodDeal
	}
	return colorNoHistory
}

// retryBackoff returns how long to wait before retrying, or zero when the
// response should not be retried.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if s, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && s > 0 {
			return min(time.Duration(s*float64(time.Second)), maxBackoff)
		}
	case resp.StatusCode >= 500:
	default:
		return 0
	}
	return min(baseBackoff*time.Duration(1<<attempt), maxBackoff)
}

func (c *Client) sendAndGetMessageID(ctx context.Context, embed discordEmbed) (string, error) {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(payloadBytes))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return "", err
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var msgResponse discordMessageResponse
			if err := json.Unmarshal(bodyBytes, &msgResponse); err != nil {
				return "", err
			}
			return msgResponse.ID, nil
		}

		wait := retryBackoff(resp, attempt)
		if wait == 0 || attempt >= maxRetries {
			return "", fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
		}
		slog.Warn("Discord webhook failed, retrying", "status", resp.StatusCode, "attempt", attempt+1, "wait", wait)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}
