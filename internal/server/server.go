package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pr-poehali-dev/samp-survival-site/internal/cases"
	"github.com/pr-poehali-dev/samp-survival-site/internal/config"
	"github.com/pr-poehali-dev/samp-survival-site/internal/session"
	"github.com/pr-poehali-dev/samp-survival-site/internal/store"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

// Server is the site's JSON API server. HTML pages mount on top of the same
// router via RegisterWeb.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	sessions  *session.Manager
	api       *gameapi.Client
	sequencer *cases.Sequencer
	pollers   *Pollers
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithSequencer overrides the case sequencer (tests shorten the reveal delay).
func WithSequencer(seq *cases.Sequencer) Option {
	return func(s *Server) {
		s.sequencer = seq
	}
}

// New creates a Server with all routes registered. A nil pollers gets a cold
// default set; cached read endpoints answer 503 until a cache warms up.
func New(cfg config.ServerConfig, st store.Store, sessions *session.Manager, api *gameapi.Client, pollers *Pollers, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		sessions:  sessions,
		api:       api,
		pollers:   pollers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sequencer == nil {
		s.sequencer = cases.NewSequencer(api, cases.DefaultRevealDelay, logger)
	}
	if s.pollers == nil {
		s.pollers = NewPollers(api, cfg.Poll, logger)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi router so the HTML surface can mount its pages.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// API routes (JSON)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Auth
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.With(s.requireSession).Get("/auth/session", s.handleWhoami)

		// Public reads, served from poller caches
		r.Get("/online", s.handleOnline)
		r.Get("/settings", s.handleSettings)
		r.Get("/rules", s.handleRules)
		r.Get("/news", s.handleNews)
		r.Get("/categories", s.handleListCategories)

		// Player surface
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/cases", s.handleListCases)
			r.Post("/cases/{id}/open", s.handleOpenCase)
			r.Get("/cases/state", s.handleCaseState)
			r.Post("/cases/claim", s.handleClaimCase)

			r.Get("/inventory", s.handleInventory)
			r.Post("/inventory/{slot}/sell", s.handleSellItem)

			r.Post("/payments", s.handleCreatePayment)
		})

		// Admin console
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Use(s.requireAdmin)

			r.Get("/users", s.handleListUsers)
			r.Patch("/users/{id}", s.handleUpdateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)

			r.Post("/rules", s.handleSaveRule)
			r.Put("/rules/{id}", s.handleSaveRule)
			r.Delete("/rules/{id}", s.handleDeleteRule)

			r.Post("/news", s.handleSaveNews)
			r.Put("/news/{id}", s.handleSaveNews)
			r.Delete("/news/{id}", s.handleDeleteNews)

			r.Put("/settings", s.handleUpdateSettings)

			r.Get("/cases", s.handleCaseCatalog)
			r.Put("/cases/{id}", s.handleUpdateCasePrices)
			r.Put("/items/{id}", s.handleUpdateLootItem)

			r.Get("/blocks", s.handleListBlocks)
			r.Delete("/blocks/{ip}", s.handleUnblock)

			r.Get("/logs", s.handleListLogs)

			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
		})
	})
}

// recordAdminAction writes an audit row to the upstream samp-logs endpoint.
// Best effort: a logging failure never fails the admin action itself.
func (s *Server) recordAdminAction(ctx context.Context, actor string, action, details string) {
	entry := gameapi.LogEntry{
		Category: "admin",
		UserName: actor,
		Action:   action,
		Details:  details,
	}
	if err := s.api.RecordLog(ctx, entry); err != nil {
		s.logger.Warn("admin audit log failed", "action", action, "error", err)
	}
}
