// Command deals runs one feed generation pass or refreshes the want-list and
// saved-search snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

const usage = `usage: deals <command> [flags]

commands:
  run            generate the deals feed
  sync-wantlist  refresh the want-list snapshot from Discogs
  sync-searches  refresh the saved-search snapshot from a YAML file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runFeed(ctx, args)
	case "sync-wantlist":
		err = runSyncWantlist(ctx, args)
	case "sync-searches":
		err = runSyncSearches(ctx, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], logging.Err(err))
		os.Exit(1)
	}
}

// app holds the collaborators shared by every command.
type app struct {
	cfg       *config.Config
	blobs     storage.BlobStore
	snapshots *snapshot.Store
}

func setup(ctx context.Context, quiet bool) (*app, error) {
	logging.Setup(slog.LevelInfo, quiet)
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.Setup(cfg.SlogLevel(), quiet)

	blobs, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &app{
		cfg:       cfg,
		blobs:     blobs,
		snapshots: snapshot.New(blobs, validator.New()),
	}, nil
}

func (a *app) close() {
	if err := a.blobs.Close(); err != nil {
		slog.Warn("Failed to close state store", logging.Err(err))
	}
}

func runFeed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	feedPath := fs.String("feed", "", "output path of the feed (overrides FEED_PATH)")
	minutes := fs.Int("minutes", -1, "run budget in minutes, 0 for unlimited (overrides RUN_MINUTES)")
	quiet := fs.Bool("quiet", false, "only log warnings and errors")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(ctx, *quiet)
	if err != nil {
		return err
	}
	defer a.close()

	if *feedPath != "" {
		a.cfg.FeedPath = *feedPath
	}
	if *minutes >= 0 {
		a.cfg.RunMinutes = *minutes
	}

	p := processor.New(
		a.snapshots,
		marketplace.New(a.cfg),
		feed.NewFileWriter(a.cfg.FeedPath, a.cfg.FeedFormat),
		a.blobs,
		notifier.New(a.cfg.DiscordWebhookURL),
		a.cfg,
	)
	report, err := p.GenerateFeed(ctx)
	if err != nil {
		return err
	}
	if report.Retryable() {
		slog.Warn("Run finished with skipped sources; the next run will retry them",
			"transient", report.Transient, "budget_exhausted", report.BudgetExhausted)
	}
	return nil
}

func runSyncWantlist(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync-wantlist", flag.ExitOnError)
	quiet := fs.Bool("quiet", false, "only log warnings and errors")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(ctx, *quiet)
	if err != nil {
		return err
	}
	defer a.close()

	_, err = syncer.NewWantlistSync(marketplace.New(a.cfg), a.snapshots, a.cfg.DiscogsUser).Run(ctx)
	return err
}

func runSyncSearches(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync-searches", flag.ExitOnError)
	file := fs.String("file", "", "saved searches YAML file (overrides SEARCHES_PATH)")
	quiet := fs.Bool("quiet", false, "only log warnings and errors")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(ctx, *quiet)
	if err != nil {
		return err
	}
	defer a.close()

	path := a.cfg.SearchesPath
	if *file != "" {
		path = *file
	}
	_, err = syncer.NewSearchSync(a.snapshots).Run(ctx, path)
	return err
}
