package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/discogs-deals/internal/config"
	"github.com/pauljones0/discogs-deals/internal/discount"
	"github.com/pauljones0/discogs-deals/internal/feed"
	"github.com/pauljones0/discogs-deals/internal/ledger"
	"github.com/pauljones0/discogs-deals/internal/matcher"
	"github.com/pauljones0/discogs-deals/internal/metrics"
	"github.com/pauljones0/discogs-deals/internal/models"
	"github.com/pauljones0/discogs-deals/internal/storage"
)

type Processor interface {
	GenerateFeed(ctx context.Context) (*Report, error)
}

// Report summarizes one run.
type Report struct {
	RunID           string
	RunAt           time.Time
	Sources         int
	Queried         int
	Transient       int
	Permanent       int
	Candidates      int
	Duplicates      int
	AlreadySeen     int
	Emitted         int
	Carried         int
	Pruned          int
	Rejected        map[string]int
	BudgetExhausted bool
}

// Retryable reports whether some sources failed in a way the next run may fix.
func (r *Report) Retryable() bool {
	return r.Transient > 0 || r.BudgetExhausted
}

type FeedProcessor struct {
	snapshots SnapshotReader
	source    ListingSource
	publisher FeedPublisher
	state     storage.BlobStore
	notifier  DealNotifier
	matcher   *matcher.Matcher
	synth     *feed.Synthesizer
	config    *config.Config
	budget    time.Duration
	now       func() time.Time
}

func New(snaps SnapshotReader, src ListingSource, pub FeedPublisher, state storage.BlobStore, n DealNotifier, cfg *config.Config) *FeedProcessor {
	eval := discount.Evaluator{StandardShipping: decimal.NewFromFloat(cfg.StandardShipping)}
	return &FeedProcessor{
		snapshots: snaps,
		source:    src,
		publisher: pub,
		state:     state,
		notifier:  n,
		matcher:   matcher.New(matcher.RulesFromConfig(cfg), eval),
		synth:     feed.NewSynthesizer(feed.MetadataFromConfig(cfg)),
		config:    cfg,
		budget:    cfg.RunBudget(),
		now:       time.Now,
	}
}

// source is one WantItem or SavedSearch in run order.
type source struct {
	kind   models.SourceKind
	want   models.WantItem
	search models.SavedSearch
}

func (s source) id() string {
	if s.kind == models.SourceSearch {
		return s.search.ID
	}
	return s.want.ID
}

type queryResult struct {
	listings []models.Listing
	err      error
	done     bool
}

// GenerateFeed runs one full pass: query every source, filter, dedup, publish
// the feed and update the ledger. Per-source failures are logged and skipped;
// only a failure to publish the feed is returned.
func (p *FeedProcessor) GenerateFeed(ctx context.Context) (*Report, error) {
	start := p.now()
	report := &Report{RunID: uuid.NewString(), RunAt: start.UTC(), Rejected: make(map[string]int)}
	log := slog.With("run_id", report.RunID)

	// Persistence after the budget expires must still complete.
	writeCtx := context.WithoutCancel(ctx)

	wants := p.snapshots.Wantlist(ctx)
	searches := p.snapshots.Searches(ctx)
	sources := make([]source, 0, wants.Len()+searches.Len())
	for _, w := range wants.Items {
		sources = append(sources, source{kind: models.SourceWantlist, want: w})
	}
	for _, s := range searches.Items {
		sources = append(sources, source{kind: models.SourceSearch, search: s})
	}
	report.Sources = len(sources)

	seen := ledger.Load(ctx, p.state)
	if p.config.LedgerHorizon > 0 {
		report.Pruned = seen.Prune(report.RunAt.Add(-p.config.LedgerHorizon))
	}
	cursor := loadProgress(ctx, p.state, len(sources))

	log.Info("Starting feed generation", "wants", wants.Len(), "searches", searches.Len(), "ledger", seen.Len(), "pruned", report.Pruned, "cursor", cursor)

	results, order := p.querySources(ctx, log, sources, cursor)

	next := 0
	for _, i := range order {
		if !results[i].done {
			next = i
			report.BudgetExhausted = true
			break
		}
	}
	if report.BudgetExhausted {
		log.Warn("Run budget exhausted, publishing partial results", "budget", p.budget, "resume_at", next)
	}

	var deals []models.Deal
	emittedThisRun := make(map[string]bool)
	for i, src := range sources {
		r := results[i]
		if !r.done {
			continue
		}
		if r.err != nil {
			p.recordFailure(log, report, src, r.err)
			continue
		}
		report.Queried++
		metrics.SourceQueries.WithLabelValues(string(src.kind), "ok").Inc()

		var res matcher.Result
		if src.kind == models.SourceSearch {
			res = p.matcher.MatchSearch(src.search, r.listings)
		} else {
			res = p.matcher.MatchWant(src.want, r.listings)
		}
		for reason, n := range res.Rejected {
			report.Rejected[reason] += n
			metrics.ListingsRejected.WithLabelValues(reason).Add(float64(n))
		}

		for _, d := range res.Deals {
			report.Candidates++
			if emittedThisRun[d.Listing.ID] {
				report.Duplicates++
				continue
			}
			emittedThisRun[d.Listing.ID] = true
			if seen.IsSeen(d.Listing.ID) {
				report.AlreadySeen++
				continue
			}
			deals = append(deals, d)
		}
	}

	doc := p.synth.Build(deals, report.RunAt, p.publisher.Previous(ctx))
	if err := p.publisher.Publish(writeCtx, doc); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("failed to publish feed: %w", err)
	}
	report.Emitted = len(doc.Deals)
	report.Carried = doc.Carried
	metrics.DealsEmitted.Add(float64(report.Emitted))

	for _, d := range doc.Deals {
		seen.MarkSeen(d.Listing.ID, report.RunAt)
	}
	if err := seen.Save(writeCtx); err != nil {
		log.Error("Failed to save ledger, published deals may repeat", "error", err)
	}
	metrics.LedgerSize.Set(float64(seen.Len()))
	saveProgress(writeCtx, p.state, next, len(sources))

	p.notify(writeCtx, log, doc.Deals)

	outcome := "ok"
	if report.Retryable() {
		outcome = "partial"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.Observe(p.now().Sub(start).Seconds())

	log.Info("Finished feed generation",
		"sources", report.Sources,
		"queried", report.Queried,
		"transient_failures", report.Transient,
		"permanent_failures", report.Permanent,
		"candidates", report.Candidates,
		"duplicates", report.Duplicates,
		"already_seen", report.AlreadySeen,
		"emitted", report.Emitted,
		"carried", report.Carried,
		"budget_exhausted", report.BudgetExhausted,
	)
	return report, nil
}

// querySources fetches listings for every source, in parallel up to
// QUERY_CONCURRENCY, starting at the cursor. Results are addressed by source
// index so the completion order never leaks into the output.
func (p *FeedProcessor) querySources(ctx context.Context, log *slog.Logger, sources []source, cursor int) ([]queryResult, []int) {
	results := make([]queryResult, len(sources))
	order := queryOrder(cursor, len(sources))
	if len(sources) == 0 {
		return results, order
	}

	queryCtx := ctx
	if p.budget > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, p.budget)
		defer cancel()
	}

	g := new(errgroup.Group)
	g.SetLimit(p.config.QueryConcurrency)
	for _, i := range order {
		if queryCtx.Err() != nil {
			break
		}
		i := i
		src := sources[i]
		g.Go(func() error {
			// Queries cut off by the budget are left for the next run.
			if queryCtx.Err() != nil {
				return nil
			}
			var listings []models.Listing
			var err error
			if src.kind == models.SourceSearch {
				listings, err = p.source.SearchListings(queryCtx, src.search)
			} else {
				listings, err = p.source.WantListings(queryCtx, src.want)
			}
			if err != nil && p.abandoned(queryCtx, err) {
				log.Debug("Query abandoned at budget", "kind", src.kind, "id", src.id(), "error", err)
				return nil
			}
			results[i] = queryResult{listings: listings, err: err, done: true}
			return nil
		})
	}
	_ = g.Wait()
	return results, order
}

// abandoned reports whether a query failed because the run budget ran out,
// either already or before the query could get its turn at the rate limiter.
func (p *FeedProcessor) abandoned(queryCtx context.Context, err error) bool {
	if queryCtx.Err() != nil {
		return true
	}
	return p.budget > 0 && errors.Is(err, context.DeadlineExceeded)
}

func (p *FeedProcessor) recordFailure(log *slog.Logger, report *Report, src source, err error) {
	kind := "permanent"
	if errors.Is(err, models.ErrTransient) {
		kind = "transient"
		report.Transient++
	} else {
		report.Permanent++
	}
	metrics.SourceQueries.WithLabelValues(string(src.kind), kind).Inc()
	log.Warn("Source query failed, skipping", "kind", src.kind, "id", src.id(), "failure", kind, "error", err)
}

func (p *FeedProcessor) notify(ctx context.Context, log *slog.Logger, deals []models.Deal) {
	if p.notifier == nil {
		return
	}
	for _, d := range deals {
		if _, err := p.notifier.Send(ctx, d); err != nil {
			log.Warn("Failed to send deal notification", "listing", d.Listing.ID, "error", err)
		}
	}
}
