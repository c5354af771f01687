// Package storage holds the persistence backends. Every backend stores opaque
// blobs under a small set of keys and replaces a blob atomically: a reader
// sees either the previous value or the new one, never a mix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pauljones0/discogs-deals/internal/config"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// Blob keys.
const (
	KeyWantlist = "wantlist"
	KeySearches = "searches"
	KeyLedger   = "ledger"
	KeyProgress = "progress"
)

// BlobStore is implemented by every backend.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put atomically replaces the blob under key.
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Open returns the backend selected by STORE_BACKEND.
func Open(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	slog.Info("Opening state store", "backend", cfg.StoreBackend)
	switch cfg.StoreBackend {
	case config.BackendFile:
		return NewFileStore(cfg.StorePath)
	case config.BackendBadger:
		return NewBadgerStore(cfg.StorePath)
	case config.BackendFirestore:
		return NewFirestoreStore(ctx, cfg.ProjectID)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
