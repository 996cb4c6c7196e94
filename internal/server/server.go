// Package server exposes a Workspace over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/assist"
)

// shutdownTimeout bounds how long in-flight requests may run after Run's
// context is done.
const shutdownTimeout = 5 * time.Second

// Server serves one Workspace. Requests that touch the engine are
// serialized with a lock.
type Server struct {
	ws        *datalab.Workspace
	lock      sync.Locker
	logger    *slog.Logger
	assistant *assist.Assistant
	toasts    *datalab.Toasts
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLock sets the lock that serializes engine access. Pass the same lock
// to datalab.WithReloadLock so that watched reloads never overlap a request.
func WithLock(l sync.Locker) Option {
	return func(s *Server) {
		if l != nil {
			s.lock = l
		}
	}
}

// WithAssistant enables the /api/assist endpoints.
func WithAssistant(a *assist.Assistant) Option {
	return func(s *Server) {
		s.assistant = a
	}
}

// WithToasts exposes t under /api/toasts. It should be the workspace's
// notifier.
func WithToasts(t *datalab.Toasts) Option {
	return func(s *Server) {
		s.toasts = t
	}
}

// New returns a Server for ws.
func New(ws *datalab.Workspace, opts ...Option) *Server {
	s := &Server{
		ws:     ws,
		lock:   &sync.Mutex{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/tables", s.handleTables)
		r.Post("/tables", s.handleUpload)
		r.Get("/tables/{table}/export", s.handleExport)
		r.Get("/tables/{table}/kpi", s.handleKPI)

		r.Post("/query", s.handleQuery)
		r.Get("/suggest", s.handleSuggest)

		r.Get("/selection", s.handleSelection)
		r.Post("/selection/toggle", s.handleToggle)
		r.Delete("/selection", s.handleClearSelection)

		r.Get("/charts", s.handleCharts)
		r.Post("/charts", s.handlePin)
		r.Delete("/charts/{id}", s.handleUnpin)
		r.Post("/charts/{id}/drill", s.handleDrill)
		r.Post("/charts/{id}/filter", s.handleFilter)

		r.Route("/assist", func(r chi.Router) {
			r.Post("/sql", s.handleAssistSQL)
			r.Post("/insights", s.handleAssistInsights)
			r.Post("/suggestions", s.handleAssistSuggestions)
		})

		r.Get("/toasts", s.handleToasts)
		r.Delete("/toasts/{id}", s.handleDismissToast)

		r.Get("/events", s.handleEvents)
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully. When
// watch is not empty, those paths are reloaded on change while serving.
func (s *Server) Run(ctx context.Context, addr string, watch []string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, watch)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, watch []string) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx) //nolint:contextcheck // the serving context is already done
	})
	if len(watch) > 0 {
		g.Go(func() error {
			return s.ws.Watch(gctx, watch...)
		})
	}
	return g.Wait()
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
