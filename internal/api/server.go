// Package api exposes the planning and imposition core over HTTP.
//
// Routes (all JSON):
//
//	POST   /api/v1/orders/{orderID}/plan             plan an order, persist the result
//	POST   /api/v1/orders/{orderID}/suggest          merge an external suggestion
//	POST   /api/v1/orders/{orderID}/select/{layoutID} change the selection
//	DELETE /api/v1/orders/{orderID}/layout           drop the saved plan
//	POST   /api/v1/orders/{orderID}/impose           start an imposition batch
//	GET    /api/v1/orders/{orderID}/impose/progress  live batch progress
//	GET    /healthz                                  liveness probe
//
// Imposition batches run in the background: the impose endpoint answers 202
// and the progress endpoint serves snapshots until the batch's final report
// is available. One batch per order may be in flight at a time.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Config assembles the server's collaborators. Store is required; a nil
// Optimizer or Imposer disables the corresponding endpoints with 501.
type Config struct {
	Addr      string
	Store     store.Store
	Planner   *plan.Planner
	Optimizer SuggestionService
	Imposer   impose.ImpositionService
	Assets    impose.AssetResolver
	Policy    impose.ExecutePolicy
	Logger    *log.Logger
}

// Server is the HTTP server for the gangrun API.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	logger     *log.Logger
}

// NewServer wires the handlers and router. It does not start listening;
// call Start.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "api server requires a store")
	}
	if err := cfg.Policy.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Planner == nil {
		cfg.Planner = plan.NewPlanner(cfg.Logger)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	handlers := &Handlers{
		store:     cfg.Store,
		planner:   cfg.Planner,
		optimizer: cfg.Optimizer,
		imposer:   cfg.Imposer,
		assets:    cfg.Assets,
		policy:    cfg.Policy,
		logger:    cfg.Logger,
		batches:   newBatchTracker(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))

	r.Get("/healthz", handlers.HandleHealth)
	r.Route("/api/v1/orders/{orderID}", func(r chi.Router) {
		r.Post("/plan", handlers.HandlePlan)
		r.Post("/suggest", handlers.HandleSuggest)
		r.Post("/select/{layoutID}", handlers.HandleSelect)
		r.Delete("/layout", handlers.HandleClearLayout)
		r.Post("/impose", handlers.HandleImpose)
		r.Get("/impose/progress", handlers.HandleImposeProgress)
	})

	return &Server{
		handlers: handlers,
		logger:   cfg.Logger,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

// Start starts the HTTP server. Blocks until the server is stopped or an
// error occurs.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. In-flight imposition batches
// are cancelled and given half the context deadline to revert their runs
// before the HTTP listener closes.
func (s *Server) Shutdown(ctx context.Context) error {
	if cancelled := s.handlers.batches.cancelAll(); cancelled > 0 {
		s.logger.Info("cancelling imposition batches", "count", cancelled)
		if deadline, ok := ctx.Deadline(); ok {
			if wait := time.Until(deadline) / 2; wait > 0 {
				s.handlers.batches.waitAll(wait)
			}
		}
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Handlers returns the handler set for testing purposes.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// requestLogger logs each request with its status and duration.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start))
		})
	}
}
