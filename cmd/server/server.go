package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pauljones0/discogs-deals/internal/logging"
	"github.com/pauljones0/discogs-deals/internal/processor"
)

const (
	defaultRunTimeout = 10 * time.Minute
	finalizeMargin    = 2 * time.Minute
	syncTimeout       = 2 * time.Minute
)

type wantlistSyncer interface {
	Run(ctx context.Context) (int, error)
}

type searchSyncer interface {
	Run(ctx context.Context, path string) (int, error)
}

type Server struct {
	processor    processor.Processor
	wantlist     wantlistSyncer
	searches     searchSyncer
	searchesPath string
	runTimeout   time.Duration

	// running is held for the whole duration of a feed generation.
	running sync.Mutex
	wg      sync.WaitGroup
}

func NewServer(p processor.Processor, w wantlistSyncer, s searchSyncer, searchesPath string) *Server {
	return &Server{
		processor:    p,
		wantlist:     w,
		searches:     s,
		searchesPath: searchesPath,
		runTimeout:   defaultRunTimeout,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Post("/", s.GenerateFeedHandler)
	r.Post("/generate-feed", s.GenerateFeedHandler)
	r.Route("/sync", func(r chi.Router) {
		r.Post("/wantlist", s.SyncWantlistHandler)
		r.Post("/searches", s.SyncSearchesHandler)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// GenerateFeedHandler starts a run in the background. Only one run may be in
// flight at a time.
func (s *Server) GenerateFeedHandler(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already running"})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in GenerateFeed", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		if _, err := s.processor.GenerateFeed(ctx); err != nil {
			slog.Error("Error generating feed", logging.Err(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) SyncWantlistHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()
	n, err := s.wantlist.Run(ctx)
	s.replySync(w, n, err)
}

func (s *Server) SyncSearchesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()
	n, err := s.searches.Run(ctx, s.searchesPath)
	s.replySync(w, n, err)
}

func (s *Server) replySync(w http.ResponseWriter, n int, err error) {
	if err != nil {
		slog.Error("Sync failed", logging.Err(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "items": n})
}

// Wait blocks until the in-flight run finishes or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", logging.Err(err))
	}
}
