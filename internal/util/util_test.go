package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Already canonical",
			input:    "https://www.discogs.com/sell/item/123",
			expected: "https://www.discogs.com/sell/item/123",
		},
		{
			name:     "Bare domain over http",
			input:    "http://discogs.com/sell/item/123",
			expected: "https://www.discogs.com/sell/item/123",
		},
		{
			name:     "Trailing slash and tracking",
			input:    "https://www.discogs.com/sell/item/123/?utm_source=rss&ev=bp",
			expected: "https://www.discogs.com/sell/item/123",
		},
		{
			name:     "Keeps real query params",
			input:    "https://www.discogs.com/sell/list?format=Vinyl&utm_medium=x",
			expected: "https://www.discogs.com/sell/list?format=Vinyl",
		},
		{
			name:     "Other domain untouched",
			input:    "http://example.com/a/?utm_source=x",
			expected: "http://example.com/a/?utm_source=x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTrailingID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://www.discogs.com/sell/item/1234567", "1234567"},
		{"https://www.discogs.com/sell/item/1234567/", "1234567"},
		{"/release/42-Can-Tago-Mago", "42"},
		{"tag:discogs.com,2024:listing/99", "99"},
		{"https://www.discogs.com/sell/list", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TrailingID(tt.input); got != tt.expected {
			t.Errorf("TrailingID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestStripDisambiguation(t *testing.T) {
	tests := map[string]string{
		"Can (2)":       "Can",
		"Can":           "Can",
		"The (12) Band": "The (12) Band",
		" Neu! (3) ":    "Neu!",
	}
	for in, want := range tests {
		if got := StripDisambiguation(in); got != want {
			t.Errorf("StripDisambiguation(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeAtoi(t *testing.T) {
	if SafeAtoi(" 42 ") != 42 {
		t.Error("expected 42")
	}
	if SafeAtoi("x") != 0 {
		t.Error("expected 0 for non-numeric input")
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a \n\t b  c "); got != "a b c" {
		t.Errorf("CollapseSpace = %q", got)
	}
}

func TestListingURL(t *testing.T) {
	if got := ListingURL("https://www.discogs.com/", "5"); got != "https://www.discogs.com/sell/item/5" {
		t.Errorf("ListingURL = %q", got)
	}
}

func TestWaitLimiter(t *testing.T) {
	l := rate.NewLimiter(rate.Every(time.Hour), 1)
	if err := WaitLimiter(context.Background(), l); err != nil {
		t.Fatalf("first wait should use the burst, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := WaitLimiter(ctx, l)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait past the deadline should be DeadlineExceeded, got %v", err)
	}
	if ctx.Err() != nil {
		t.Error("the limiter should fail without waiting for the deadline")
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if err := WaitLimiter(cancelled, l); !errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cancelled wait should be Canceled only, got %v", err)
	}
}
