package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/pauljones0/discogs-deals/internal/storage"
)

// progress is the resume cursor: the index, in want-list-then-searches order,
// of the first source a budget-limited run did not finish.
type progress struct {
	Next      int       `json:"next"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

func loadProgress(ctx context.Context, blobs storage.BlobStore, total int) int {
	data, err := blobs.Get(ctx, storage.KeyProgress)
	if errors.Is(err, storage.ErrNotFound) {
		return 0
	}
	if err != nil {
		slog.Warn("Failed to read progress, starting from the beginning", "error", err)
		return 0
	}
	var p progress
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("Corrupt progress, starting from the beginning", "error", err)
		return 0
	}
	// The snapshots changed since the cursor was written.
	if p.Total != total || p.Next < 0 || p.Next >= total {
		return 0
	}
	return p.Next
}

func saveProgress(ctx context.Context, blobs storage.BlobStore, next, total int) {
	data, err := json.Marshal(progress{Next: next, Total: total, UpdatedAt: time.Now().UTC()})
	if err != nil {
		slog.Warn("Failed to encode progress", "error", err)
		return
	}
	if err := blobs.Put(ctx, storage.KeyProgress, data); err != nil {
		slog.Warn("Failed to save progress", "error", err)
	}
}

// queryOrder starts at the cursor and wraps around.
func queryOrder(cursor, total int) []int {
	order := make([]int, 0, total)
	for i := 0; i < total; i++ {
		order = append(order, (cursor+i)%total)
	}
	return order
}
