// Package api serves the calculator as a JSON API.
package api

import (
	"net/http"
	"time"

	"gocalc/app"
	"gocalc/internal"
	"gocalc/internal/config"
	"gocalc/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server represents the API server
type Server struct {
	cfg        *config.Config
	router     chi.Router
	calculator *app.CalculatorService
	reports    *app.ReportService
	exporter   ports.StateExporter
	logger     *internal.Logger
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, calculator *app.CalculatorService, reports *app.ReportService, exporter ports.StateExporter, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		cfg:        cfg,
		calculator: calculator,
		reports:    reports,
		exporter:   exporter,
		logger:     logger.With("api"),
	}

	s.setupRouter()
	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Get("/workspaces", s.handleListWorkspaces)

		r.Route("/workspaces/{ws}", func(r chi.Router) {
			r.Get("/state", s.handleGetState)
			r.Delete("/", s.handleResetWorkspace)
			r.Put("/expression", s.handleSetExpression)
			r.Delete("/numbers/{index}", s.handleRemoveNumber)
			r.Post("/sort/cycle", s.handleCycleSort)
			r.Put("/view", s.handleUpdateView)
			r.Get("/chart", s.handleChart)
			r.Get("/totals", s.handleTotals)
			r.Get("/export.xlsx", s.handleExport)
			r.Get("/report", s.handleReport)
			r.Post("/import", s.handleImport)

			r.Post("/pins", s.handlePin)
			r.Route("/pins/{id}", func(r chi.Router) {
				r.Patch("/", s.handleUpdatePinned)
				r.Delete("/", s.handleDeletePinned)
				r.Post("/move", s.handleMovePinned)
				r.Delete("/numbers/{entry}", s.handleRemovePinnedNumber)
			})
		})
	})

	s.router = r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
