// Package server serves lineage queries over HTTP and reloads the export
// when it changes on disk.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/condgraph/internal/config"
	"github.com/leapstack-labs/condgraph/internal/ctmxml"
	"github.com/leapstack-labs/condgraph/internal/lineage"
	"github.com/leapstack-labs/condgraph/internal/server/notifier"
)

const reloadDebounce = 100 * time.Millisecond

// Config holds server configuration.
type Config struct {
	ExportFile        string
	Port              int
	Watch             bool
	MaxFullGraphNodes int
	Theme             config.Theme
	Logger            *slog.Logger
}

// loadState is one published snapshot plus the outcome of the latest load.
type loadState struct {
	snap     *lineage.Snapshot
	id       string
	loadedAt time.Time
	lastErr  error
}

// Server holds the current snapshot and serves the HTTP API.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	notifier *notifier.Notifier

	mu    sync.RWMutex
	state loadState
}

// New creates a server and performs the initial load. A failed initial load
// is logged and leaves an empty snapshot in place.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		notifier: notifier.New(),
		state:    loadState{snap: lineage.Empty(), id: uuid.NewString(), loadedAt: time.Now()},
	}
	if err := s.Reload(); err != nil {
		s.logger.Error("initial load failed, serving empty snapshot", "file", cfg.ExportFile, "error", err)
	}
	return s
}

// Reload reads the export again. On success the new snapshot replaces the
// current one and subscribers are notified. On failure the current snapshot
// stays and the error is reported by /api/status.
func (s *Server) Reload() error {
	snap, err := loadExport(s.cfg.ExportFile)
	if err != nil {
		s.mu.Lock()
		s.state.lastErr = err
		s.mu.Unlock()
		return err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.state = loadState{snap: snap, id: id, loadedAt: time.Now()}
	s.mu.Unlock()

	s.logger.Info("export loaded", "file", s.cfg.ExportFile, "jobs", len(snap.Jobs), "edges", len(snap.Edges), "load_id", id)
	s.notifier.Broadcast(id)
	return nil
}

func loadExport(path string) (*lineage.Snapshot, error) {
	records, err := ctmxml.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return lineage.Load(records)
}

// current returns the published state. The snapshot is never mutated after
// publication, so callers may use it without holding the lock.
func (s *Server) current() loadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the current snapshot.
func (s *Server) Snapshot() *lineage.Snapshot {
	return s.current().snap
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{name}", s.handleJob)
		r.Get("/edges", s.handleEdges)
		r.Get("/levels", s.handleLevels)
		r.Get("/lineage", s.handleLineage)
		r.Get("/events", s.handleEvents)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch {
		watcher, err := s.newWatcher()
		if err != nil {
			return err
		}
		eg.Go(func() error {
			return s.watch(egctx, watcher)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// newWatcher watches the export's directory; editors often replace the file
// rather than write it in place, which a watch on the file itself would miss.
func (s *Server) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(s.cfg.ExportFile)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return watcher, nil
}

func (s *Server) watch(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.cfg.ExportFile)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				s.logger.Debug("export changed, reloading", "file", event.Name)
				if err := s.Reload(); err != nil {
					s.logger.Error("reload failed, keeping previous snapshot", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
