// Package feed turns deals into an Atom or RSS document and publishes it.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/pauljones0/discogs-deals/internal/config"
	"github.com/pauljones0/discogs-deals/internal/models"
)

// Metadata describes the feed itself.
type Metadata struct {
	Title         string
	SelfURL       string
	AuthorName    string
	AuthorEmail   string
	MaxEntries    int
	EntryIDPrefix string
}

// MetadataFromConfig copies the FEED_* settings.
func MetadataFromConfig(cfg *config.Config) Metadata {
	return Metadata{
		Title:         cfg.FeedTitle,
		SelfURL:       cfg.FeedURL,
		AuthorName:    cfg.FeedAuthorName,
		AuthorEmail:   cfg.FeedAuthorEmail,
		MaxEntries:    cfg.FeedMaxEntries,
		EntryIDPrefix: cfg.FeedEntryIDPrefix,
	}
}

// Entry is an entry of a previously published feed.
type Entry struct {
	ID        string
	Title     string
	Link      string
	Summary   string
	Content   string
	Published time.Time
	Updated   time.Time
}

// Document is a synthesized feed held in memory.
type Document struct {
	Feed *feeds.Feed
	// Deals are the new deals that made it into the document, in order.
	Deals   []models.Deal
	Carried int
}

// Synthesizer builds feed documents.
type Synthesizer struct {
	meta Metadata
}

func NewSynthesizer(meta Metadata) *Synthesizer {
	return &Synthesizer{meta: meta}
}

// EntryID is the stable feed entry id of a listing.
func (s *Synthesizer) EntryID(listingID string) string {
	return s.meta.EntryIDPrefix + listingID
}

// Build creates the document for one run: the new deals first, in the given
// order, then entries of the previous feed that are not repeated, up to
// MaxEntries.
func (s *Synthesizer) Build(deals []models.Deal, runAt time.Time, previous []Entry) *Document {
	runAt = runAt.UTC()
	f := &feeds.Feed{
		Title:   s.meta.Title,
		Link:    &feeds.Link{Href: s.meta.SelfURL, Rel: "self"},
		Id:      s.meta.SelfURL,
		Author:  &feeds.Author{Name: s.meta.AuthorName, Email: s.meta.AuthorEmail},
		Created: runAt,
		Updated: runAt,
	}
	doc := &Document{Feed: f}
	ids := make(map[string]bool)

	for _, d := range deals {
		if len(f.Items) >= s.meta.MaxEntries {
			slog.Warn("Feed full, dropping remaining deals", "max", s.meta.MaxEntries, "dropped", len(deals)-len(doc.Deals))
			break
		}
		id := s.EntryID(d.Listing.ID)
		if ids[id] {
			continue
		}
		ids[id] = true
		f.Items = append(f.Items, s.item(d, id, runAt))
		doc.Deals = append(doc.Deals, d)
	}

	for _, e := range previous {
		if len(f.Items) >= s.meta.MaxEntries {
			break
		}
		if e.ID == "" || ids[e.ID] {
			continue
		}
		ids[e.ID] = true
		if e.Updated.IsZero() {
			e.Updated = runAt
		}
		if e.Published.IsZero() {
			e.Published = e.Updated
		}
		f.Items = append(f.Items, &feeds.Item{
			Id:          e.ID,
			Title:       e.Title,
			Link:        &feeds.Link{Href: e.Link},
			Description: e.Summary,
			Content:     e.Content,
			Created:     e.Published,
			Updated:     e.Updated,
		})
		doc.Carried++
	}
	return doc
}

func (s *Synthesizer) item(d models.Deal, id string, runAt time.Time) *feeds.Item {
	l := d.Listing
	return &feeds.Item{
		Id:          id,
		Title:       Title(d),
		Link:        &feeds.Link{Href: l.URL},
		Description: Summary(d),
		Content:     renderContent(d),
		Created:     runAt,
		Updated:     runAt,
	}
}

// Title is "Artist - Title (12.00 USD, 40% below median)".
func Title(d models.Deal) string {
	l := d.Listing
	return fmt.Sprintf("%s (%s %s, %s)", l.Description(), l.Price.StringFixed(2), l.Currency, Summary(d))
}

// Summary describes the discount in words.
func Summary(d models.Deal) string {
	if !d.Discount.Determinate {
		return "no price history"
	}
	p := d.Discount.Percent
	switch {
	case p > 0:
		return fmt.Sprintf("%d%% below %s", p, d.Discount.Basis)
	case p < 0:
		return fmt.Sprintf("%d%% above %s", -p, d.Discount.Basis)
	}
	return "same as " + d.Discount.Basis
}

var contentTemplate = template.Must(template.New("entry").Parse(`{{if .Thumbnail}}<img src="{{.Thumbnail}}" alt=""><br>{{end}}
<b>{{.Summary}}</b><br>
Price: {{.Price}} + {{.Shipping}} shipping{{if .Reference}} (reference {{.Reference}}){{end}}<br>
Condition: {{.Media}} / sleeve {{.Sleeve}}<br>
Seller: {{.Seller}}{{if .Rating}} ({{.Rating}}%){{end}}<br>
{{if .Demand}}Demand ratio: {{.Demand}}<br>{{end}}
{{if .Year}}Year: {{.Year}}<br>{{end}}
Matched {{.Source}}<br>
{{if .Comments}}<br>{{.Comments}}{{end}}`))

func renderContent(d models.Deal) string {
	l := d.Listing
	data := struct {
		Thumbnail, Summary, Price, Shipping, Reference string
		Media, Sleeve, Seller, Rating, Demand, Source  string
		Comments                                       string
		Year                                           int
	}{
		Thumbnail: l.Thumbnail,
		Summary:   Summary(d),
		Price:     l.Price.StringFixed(2) + " " + l.Currency,
		Shipping:  l.Shipping.StringFixed(2),
		Media:     l.MediaCondition.Label(),
		Sleeve:    l.SleeveCondition.Label(),
		Seller:    l.Seller.Username,
		Comments:  l.Comments,
		Year:      l.Year,
		Source:    sourceLabel(d),
	}
	if d.Discount.Determinate {
		data.Reference = fmt.Sprintf("%s %s", d.Discount.Basis, d.Discount.Reference.StringFixed(2))
	}
	if l.Seller.Rating > 0 {
		data.Rating = fmt.Sprintf("%.1f", l.Seller.Rating)
	}
	if r := l.Stats.DemandRatio(); r > 0 {
		data.Demand = fmt.Sprintf("%.1f", r)
	}

	var buf bytes.Buffer
	if err := contentTemplate.Execute(&buf, data); err != nil {
		slog.Warn("Failed to render entry content", "listing", l.ID, "error", err)
		return template.HTMLEscapeString(Summary(d))
	}
	return strings.TrimSpace(buf.String())
}

func sourceLabel(d models.Deal) string {
	if d.SourceKind == models.SourceSearch {
		return "saved search " + d.SourceID
	}
	return "want-list release " + d.SourceID
}

// Atom renders the document as Atom 1.0.
func (d *Document) Atom() ([]byte, error) {
	af := (&feeds.Atom{Feed: d.Feed}).AtomFeed()
	af.Id = d.Feed.Id
	af.Link = &feeds.AtomLink{Href: d.Feed.Link.Href, Rel: "self"}
	for i, e := range af.Entries {
		e.Published = d.Feed.Items[i].Created.Format(time.RFC3339)
	}

	out, err := xml.MarshalIndent(af, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal atom: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// RSS renders the document as RSS 2.0.
func (d *Document) RSS() ([]byte, error) {
	s, err := d.Feed.ToRss()
	if err != nil {
		return nil, fmt.Errorf("render rss: %w", err)
	}
	return []byte(s), nil
}

// Render picks the output format by name.
func (d *Document) Render(format string) ([]byte, error) {
	switch format {
	case config.FormatRSS:
		return d.RSS()
	case config.FormatAtom, "":
		return d.Atom()
	}
	return nil, fmt.Errorf("unknown feed format %q", format)
}
