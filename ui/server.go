// Package ui serves the calculator as server-rendered HTML pages.
package ui

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"gocalc/app"
	"gocalc/internal"
	"gocalc/internal/config"
	"gocalc/ports"
	"gocalc/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Server represents the web server for the calculator UI
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	templates  *template.Template
	calculator *app.CalculatorService
	reports    *app.ReportService
	exporter   ports.StateExporter
	logger     *internal.Logger
	httpServer *http.Server
}

// NewServer creates a new web server instance
func NewServer(cfg *config.Config, calculator *app.CalculatorService, reports *app.ReportService, exporter ports.StateExporter, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	gin.SetMode(cfg.Server.GinMode)

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		router:     gin.Default(),
		templates:  templates,
		calculator: calculator,
		reports:    reports,
		exporter:   exporter,
		logger:     logger.With("ui"),
	}
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	pages := s.router.Group("/", middleware.EnsureWorkspace())
	pages.GET("/", s.handleIndex)
	pages.POST("/expression", s.handleSetExpression)
	pages.POST("/numbers/:index/remove", s.handleRemoveNumber)
	pages.POST("/sort", s.handleCycleSort)
	pages.POST("/view", s.handleUpdateView)
	pages.POST("/pin", s.handlePin)
	pages.POST("/pins/:id", s.handleUpdatePinned)
	pages.POST("/pins/:id/move", s.handleMovePinned)
	pages.POST("/pins/:id/numbers/:entry/remove", s.handleRemovePinnedNumber)
	pages.POST("/pins/:id/delete", s.handleDeletePinned)
	pages.GET("/report", s.handleReport)
	pages.GET("/export.xlsx", s.handleExport)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on the configured port until the server is shut down. It
// returns at once if Shutdown already ran.
func (s *Server) Start() error {
	s.logger.Info("UI listening on :%s", s.cfg.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
