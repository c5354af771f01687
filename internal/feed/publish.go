package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mmcdole/gofeed"

	"github.com/pauljones0/discogs-deals/internal/storage"
)

// FileWriter publishes the feed to a local file, replacing it atomically.
type FileWriter struct {
	Path   string
	Format string
}

func NewFileWriter(path, format string) *FileWriter {
	return &FileWriter{Path: path, Format: format}
}

// Publish renders doc and renames it over the live file.
func (w *FileWriter) Publish(_ context.Context, doc *Document) error {
	data, err := doc.Render(w.Format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("publish feed: %w", err)
	}
	if err := storage.WriteFileAtomic(w.Path, data); err != nil {
		return fmt.Errorf("publish feed: %w", err)
	}
	slog.Info("Published feed", "path", w.Path, "entries", len(doc.Feed.Items), "new", len(doc.Deals), "carried", doc.Carried)
	return nil
}

// Previous returns the entries of the currently published feed.
func (w *FileWriter) Previous(_ context.Context) []Entry {
	data, err := os.ReadFile(w.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		slog.Warn("Failed to read previous feed", "path", w.Path, "error", err)
		return nil
	}
	entries, err := ParseEntries(data)
	if err != nil {
		slog.Warn("Previous feed is unreadable, starting fresh", "path", w.Path, "error", err)
		return nil
	}
	return entries
}

// ParseEntries reads the entries of an Atom or RSS document.
func ParseEntries(data []byte) ([]Entry, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]Entry, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		e := Entry{
			ID:      it.GUID,
			Title:   it.Title,
			Link:    it.Link,
			Summary: it.Description,
			Content: it.Content,
		}
		if e.ID == "" {
			e.ID = it.Link
		}
		if it.PublishedParsed != nil {
			e.Published = *it.PublishedParsed
		}
		// RSS items only carry pubDate.
		e.Updated = e.Published
		if it.UpdatedParsed != nil {
			e.Updated = *it.UpdatedParsed
		}
		entries = append(entries, e)
	}
	return entries, nil
}
