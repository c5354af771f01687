// Package ledger remembers which listings have already been published so a
// listing appears in the feed at most once per horizon.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/pauljones0/discogs-deals/internal/storage"
)

const ledgerVersion = 1

type persisted struct {
	Version int                  `json:"version"`
	Seen    map[string]time.Time `json:"seen"`
}

// Ledger is the set of emitted listing ids with the time each was first
// emitted. It is not safe for concurrent use; a run owns it.
type Ledger struct {
	blobs storage.BlobStore
	seen  map[string]time.Time
}

// Load reads the ledger. A missing or unreadable ledger starts empty.
func Load(ctx context.Context, blobs storage.BlobStore) *Ledger {
	l := &Ledger{blobs: blobs, seen: make(map[string]time.Time)}

	data, err := blobs.Get(ctx, storage.KeyLedger)
	if errors.Is(err, storage.ErrNotFound) {
		return l
	}
	if err != nil {
		slog.Warn("Failed to read ledger, starting empty", "error", err)
		return l
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil || p.Version != ledgerVersion {
		slog.Warn("Corrupt ledger, starting empty", "error", err, "version", p.Version)
		return l
	}
	if p.Seen != nil {
		l.seen = p.Seen
	}
	return l
}

// IsSeen reports whether the listing was emitted by an earlier run.
func (l *Ledger) IsSeen(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// MarkSeen records the listing. The first emission time is kept.
func (l *Ledger) MarkSeen(id string, at time.Time) {
	if _, ok := l.seen[id]; ok {
		return
	}
	l.seen[id] = at.UTC()
}

// Prune evicts entries first emitted before olderThan and returns how many
// were removed.
func (l *Ledger) Prune(olderThan time.Time) int {
	n := 0
	for id, at := range l.seen {
		if at.Before(olderThan) {
			delete(l.seen, id)
			n++
		}
	}
	return n
}

// Len is the number of remembered listings.
func (l *Ledger) Len() int { return len(l.seen) }

// Save atomically replaces the persisted ledger.
func (l *Ledger) Save(ctx context.Context) error {
	data, err := json.Marshal(persisted{Version: ledgerVersion, Seen: l.seen})
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.blobs.Put(ctx, storage.KeyLedger, data); err != nil {
		return fmt.Errorf("store ledger: %w", err)
	}
	return nil
}
