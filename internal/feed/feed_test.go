package feed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/discogs-deals/internal/condition"
	"github.com/pauljones0/discogs-deals/internal/models"
)

var testMeta = Metadata{
	Title:         "Discogs Deals",
	SelfURL:       "https://example.com/deals.atom",
	AuthorName:    "Test Collector",
	AuthorEmail:   "collector@example.com",
	MaxEntries:    50,
	EntryIDPrefix: "https://www.discogs.com/sell/item/",
}

func makeDeal(id string, percent int) models.Deal {
	return models.Deal{
		Listing: models.Listing{
			ID:              id,
			ReleaseID:       42,
			Artist:          "Can",
			Title:           "Tago Mago",
			Price:           decimal.NewFromInt(10),
			Shipping:        decimal.NewFromInt(4),
			Currency:        "USD",
			MediaCondition:  condition.VeryGoodPlus,
			SleeveCondition: condition.VeryGood,
			Seller:          models.Seller{Username: "recordshop", Rating: 99.5},
			URL:             "https://www.discogs.com/sell/item/" + id,
		},
		Discount: models.Discount{
			Percent:     percent,
			Reference:   decimal.NewFromInt(20),
			Basis:       "median",
			Determinate: true,
		},
		SourceKind: models.SourceWantlist,
		SourceID:   "42",
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		deal models.Deal
		want string
	}{
		{"below", makeDeal("1", 50), "50% below median"},
		{"above", makeDeal("1", -5), "5% above median"},
		{"same", makeDeal("1", 0), "same as median"},
		{"indeterminate", models.Deal{}, "no price history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.deal); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	got := Title(makeDeal("1", 50))
	want := "Can - Tago Mago (10.00 USD, 50% below median)"
	if got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
}

func TestBuild_EntriesAndMetadata(t *testing.T) {
	s := NewSynthesizer(testMeta)
	runAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	doc := s.Build([]models.Deal{makeDeal("1001", 60), makeDeal("1000", 50)}, runAt, nil)

	if len(doc.Feed.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Feed.Items))
	}
	first := doc.Feed.Items[0]
	if first.Id != "https://www.discogs.com/sell/item/1001" {
		t.Errorf("unexpected entry id %q", first.Id)
	}
	if !first.Created.Equal(runAt) || !first.Updated.Equal(runAt) {
		t.Errorf("entry timestamps should equal run time, got %v / %v", first.Created, first.Updated)
	}
	if first.Link.Href != "https://www.discogs.com/sell/item/1001" {
		t.Errorf("unexpected link %q", first.Link.Href)
	}
	if !strings.Contains(first.Content, "recordshop") || !strings.Contains(first.Content, "Very Good Plus (VG+)") {
		t.Errorf("content missing seller or condition: %s", first.Content)
	}
	if doc.Feed.Title != "Discogs Deals" || doc.Feed.Author.Name != "Test Collector" {
		t.Errorf("feed metadata not set: %+v", doc.Feed)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	s := NewSynthesizer(testMeta)
	runAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	deals := []models.Deal{makeDeal("2", 70), makeDeal("1", 50)}

	a, err := s.Build(deals, runAt, nil).Atom()
	if err != nil {
		t.Fatalf("Atom() error: %v", err)
	}
	b, err := s.Build(deals, runAt, nil).Atom()
	if err != nil {
		t.Fatalf("Atom() error: %v", err)
	}
	if string(a) != string(b) {
		t.Error("same input produced different documents")
	}
}

func TestBuild_CarryOver(t *testing.T) {
	s := NewSynthesizer(testMeta)
	runAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	earlier := runAt.Add(-24 * time.Hour)

	previous := []Entry{
		{ID: "https://www.discogs.com/sell/item/1", Title: "repeat", Published: earlier, Updated: earlier},
		{ID: "https://www.discogs.com/sell/item/9", Title: "older deal", Link: "https://www.discogs.com/sell/item/9", Published: earlier, Updated: earlier},
	}
	doc := s.Build([]models.Deal{makeDeal("1", 50)}, runAt, previous)

	if len(doc.Feed.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Feed.Items))
	}
	if doc.Carried != 1 {
		t.Errorf("expected 1 carried entry, got %d", doc.Carried)
	}
	if doc.Feed.Items[0].Title == "repeat" {
		t.Error("new deal should replace the previous entry with the same id")
	}
	if doc.Feed.Items[1].Title != "older deal" || !doc.Feed.Items[1].Created.Equal(earlier) {
		t.Errorf("carried entry not preserved: %+v", doc.Feed.Items[1])
	}
}

func TestBuild_MaxEntries(t *testing.T) {
	meta := testMeta
	meta.MaxEntries = 2
	s := NewSynthesizer(meta)

	previous := []Entry{{ID: "old", Title: "old"}}
	doc := s.Build([]models.Deal{makeDeal("1", 60), makeDeal("2", 50), makeDeal("3", 40)}, time.Now(), previous)

	if len(doc.Feed.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Feed.Items))
	}
	if len(doc.Deals) != 2 || doc.Deals[1].Listing.ID != "2" {
		t.Errorf("expected first two deals to be kept, got %d", len(doc.Deals))
	}
	if doc.Carried != 0 {
		t.Errorf("no room should remain for carried entries, got %d", doc.Carried)
	}
}

func TestAtom_RoundTrip(t *testing.T) {
	s := NewSynthesizer(testMeta)
	runAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	data, err := s.Build([]models.Deal{makeDeal("1", 50)}, runAt, nil).Atom()
	if err != nil {
		t.Fatalf("Atom() error: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`xmlns="http://www.w3.org/2005/Atom"`,
		`<id>https://example.com/deals.atom</id>`,
		`rel="self"`,
		`<published>2026-04-02T08:00:00Z</published>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("atom output missing %q", want)
		}
	}

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != "https://www.discogs.com/sell/item/1" || e.Link != "https://www.discogs.com/sell/item/1" {
		t.Errorf("unexpected parsed entry %+v", e)
	}
	if !e.Published.Equal(runAt) {
		t.Errorf("published = %v, want %v", e.Published, runAt)
	}
}

func TestRSS(t *testing.T) {
	s := NewSynthesizer(testMeta)
	data, err := s.Build([]models.Deal{makeDeal("1", 50)}, time.Now(), nil).Render("rss")
	if err != nil {
		t.Fatalf("Render(rss) error: %v", err)
	}
	if !strings.Contains(string(data), "<rss") {
		t.Errorf("expected rss document, got %s", data)
	}

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries() error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "https://www.discogs.com/sell/item/1" {
		t.Errorf("unexpected rss entries %+v", entries)
	}
}

func TestFileWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "deals.atom")
	w := NewFileWriter(path, "atom")
	s := NewSynthesizer(testMeta)

	if prev := w.Previous(ctx); prev != nil {
		t.Fatalf("expected no previous entries, got %v", prev)
	}

	if err := w.Publish(ctx, s.Build([]models.Deal{makeDeal("1", 50)}, time.Now(), nil)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if files, _ := os.ReadDir(filepath.Dir(path)); len(files) != 1 {
		t.Errorf("expected only the feed file, found %d files", len(files))
	}

	prev := w.Previous(ctx)
	if len(prev) != 1 {
		t.Fatalf("expected 1 previous entry, got %d", len(prev))
	}

	// Second run carries the first deal over.
	if err := w.Publish(ctx, s.Build([]models.Deal{makeDeal("2", 40)}, time.Now(), prev)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if got := len(w.Previous(ctx)); got != 2 {
		t.Errorf("expected 2 entries after carry-over, got %d", got)
	}
}

func TestFileWriter_CreatesParentDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "public", "feeds", "deals.atom")
	w := NewFileWriter(path, "atom")

	if err := w.Publish(ctx, NewSynthesizer(testMeta).Build([]models.Deal{makeDeal("1", 50)}, time.Now(), nil)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if got := len(w.Previous(ctx)); got != 1 {
		t.Errorf("expected 1 published entry, got %d", got)
	}
}

func TestFileWriter_RSSCarryOverKeepsContent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "deals.rss")
	w := NewFileWriter(path, "rss")
	s := NewSynthesizer(testMeta)
	runAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	first := makeDeal("1", 50)
	if err := w.Publish(ctx, s.Build([]models.Deal{first}, runAt, nil)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	prev := w.Previous(ctx)
	if len(prev) != 1 {
		t.Fatalf("expected 1 previous entry, got %d", len(prev))
	}
	wantContent := strings.TrimSpace(renderContent(first))
	if strings.TrimSpace(prev[0].Content) != wantContent {
		t.Errorf("content not read back from rss:\n got %q\nwant %q", prev[0].Content, wantContent)
	}
	if !prev[0].Published.Equal(runAt) || !prev[0].Updated.Equal(runAt) {
		t.Errorf("unexpected rss timestamps %v / %v", prev[0].Published, prev[0].Updated)
	}

	if err := w.Publish(ctx, s.Build([]models.Deal{makeDeal("2", 40)}, runAt.Add(time.Hour), prev)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	entries := w.Previous(ctx)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after carry-over, got %d", len(entries))
	}
	carried := entries[1]
	if carried.ID != "https://www.discogs.com/sell/item/1" || strings.TrimSpace(carried.Content) != wantContent {
		t.Errorf("carried rss entry lost its content: %+v", carried)
	}
}

func TestFileWriter_CorruptPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deals.atom")
	if err := os.WriteFile(path, []byte("<feed><entry>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if prev := NewFileWriter(path, "atom").Previous(context.Background()); prev != nil {
		t.Errorf("expected corrupt feed to yield no entries, got %v", prev)
	}
}
