package container

import (
	"context"
	"fmt"

	"gocalc/adapters/excel"
	"gocalc/adapters/kvstore"
	"gocalc/app"
	"gocalc/internal"
	"gocalc/internal/config"
	"gocalc/internal/errors"
	"gocalc/internal/migration"
	"gocalc/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB    *sqlx.DB
	Store *kvstore.Store

	// Repositories (data access layer)
	StateRepo ports.StateRepository

	// Services
	Calculator *app.CalculatorService
	Reports    *app.ReportService
	Exporter   ports.StateExporter
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level)),
	}

	return c, nil
}

// Open connects to the configured store, migrates it and wires the services
func Open(ctx context.Context, cfg *config.Config) (*Container, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, cfg.Store.Driver, cfg.Store.DSN())
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to connect to %s store", cfg.Store.Driver))
	}
	if cfg.Store.Driver == config.DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.initRepositories()
	c.initServices()

	c.Logger.Info("container initialized with %s store", db.DriverName())
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.Store = kvstore.NewStore(c.DB)
	c.StateRepo = kvstore.NewStateRepository(c.Store, c.Logger.With("kvstore"))
}

// initServices initializes application services
func (c *Container) initServices() {
	c.Calculator = app.NewCalculatorService(c.StateRepo, c.Logger)
	c.Reports = app.NewReportService(c.StateRepo, c.Config.Report.Workers, c.Logger)
	c.Exporter = excel.NewWorkbookExporter()
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
