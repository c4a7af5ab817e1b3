// Package server exposes the meal calendar over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"meal-calendar/internal/meals"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shopping"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Service is the application behind the API.
type Service interface {
	ListMeals(ctx context.Context, start, end string) ([]meals.Record, error)
	SavePlan(ctx context.Context, plan []meals.Meal, start, end string) (int, error)
	SetSkipped(ctx context.Context, id int64, skipped bool) error
	DeleteMeal(ctx context.Context, id int64) error
	GeneratePlan(ctx context.Context, req planner.Request) (int, error)
	GenerateShoppingList(ctx context.Context, ingredients []string) ([]shopping.Category, error)
}

// Options tunes the optional parts of the server.
type Options struct {
	// AuthSecret, when set, requires a signed bearer token on mutating API
	// routes and basic auth (WebUser / AuthSecret) on the web calendar.
	AuthSecret string
	WebUser    string
	// Web is mounted at the root when set.
	Web http.Handler
}

const webRealm = "meal-calendar"

// Server is the HTTP front of the application.
type Server struct {
	svc        Service
	collectors *metrics.Collectors
	logger     *zap.Logger
	opts       Options
	router     *chi.Mux
	server     *http.Server
}

// New creates a server listening on addr.
func New(addr string, svc Service, collectors *metrics.Collectors, logger *zap.Logger, opts Options) *Server {
	s := &Server{
		svc:        svc,
		collectors: collectors,
		logger:     logger,
		opts:       opts,
	}
	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(instrument(s.collectors))
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", s.collectors.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/meals", s.handleListMeals)

		r.Group(func(r chi.Router) {
			r.Use(requireToken(s.opts.AuthSecret))
			r.Post("/meals/save", s.handleSavePlan)
			r.Put("/meals/{id}/skip", s.handleSkipMeal)
			r.Delete("/meals/{id}", s.handleDeleteMeal)
			r.Post("/plans/generate", s.handleGeneratePlan)
			r.Post("/shopping-list", s.handleShoppingList)
		})
	})

	if s.opts.Web != nil {
		r.Mount("/", s.webHandler())
	}

	return r
}

// webHandler shares the API secret with the web calendar, whose forms reach
// the same mutations as the token-guarded routes.
func (s *Server) webHandler() http.Handler {
	if s.opts.AuthSecret == "" {
		return s.opts.Web
	}
	user := s.opts.WebUser
	if user == "" {
		user = "admin"
	}
	return chimiddleware.BasicAuth(webRealm, map[string]string{user: s.opts.AuthSecret})(s.opts.Web)
}

// ListenAndServe starts serving until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting API server", zap.String("address", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}
