package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pauljones0/discogs-deals/internal/config"
	"github.com/pauljones0/discogs-deals/internal/feed"
	"github.com/pauljones0/discogs-deals/internal/logging"
	"github.com/pauljones0/discogs-deals/internal/marketplace"
	"github.com/pauljones0/discogs-deals/internal/notifier"
	"github.com/pauljones0/discogs-deals/internal/processor"
	"github.com/pauljones0/discogs-deals/internal/snapshot"
	"github.com/pauljones0/discogs-deals/internal/storage"
	"github.com/pauljones0/discogs-deals/internal/syncer"
	"github.com/pauljones0/discogs-deals/internal/validator"
)

func main() {
	logging.Setup(slog.LevelInfo, false)
	slog.Info("Starting Discogs deals server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", logging.Err(err))
		os.Exit(1)
	}
	logging.Setup(cfg.SlogLevel(), false)

	ctx := context.Background()
	blobs, err := storage.Open(ctx, cfg)
	if err != nil {
		slog.Error("Critical error opening state store", logging.Err(err))
		os.Exit(1)
	}
	defer blobs.Close()

	snaps := snapshot.New(blobs, validator.New())
	client := marketplace.New(cfg)
	p := processor.New(
		snaps,
		client,
		feed.NewFileWriter(cfg.FeedPath, cfg.FeedFormat),
		blobs,
		notifier.New(cfg.DiscordWebhookURL),
		cfg,
	)

	srv := NewServer(p, syncer.NewWantlistSync(client, snaps, cfg.DiscogsUser), syncer.NewSearchSync(snaps), cfg.SearchesPath)
	srv.runTimeout = runTimeout(cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", logging.Err(err))
		}
		if err := srv.Wait(shutdownCtx); err != nil {
			slog.Warn("Feed generation still running at shutdown", logging.Err(err))
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", logging.Err(err))
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

// runTimeout leaves room after the run budget for publishing.
func runTimeout(cfg *config.Config) time.Duration {
	if b := cfg.RunBudget(); b > 0 {
		return b + finalizeMargin
	}
	return defaultRunTimeout
}
