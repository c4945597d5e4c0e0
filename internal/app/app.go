package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"gradebook/internal/config"
	apierrors "gradebook/internal/errors"
	"gradebook/internal/infrastructure"
	customMiddleware "gradebook/internal/middleware"
	"gradebook/internal/services"
	"gradebook/internal/store"
	handlers "gradebook/internal/transport/http"
)

const AppName = "Gradebook"

var (
	// Version and BuildTime are set at link time with -ldflags -X.
	Version   = "dev"
	BuildTime = ""
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Store         store.Repository
	Backup        *store.SyncBuffer[store.Snapshot]
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders

	errorHandler *apierrors.ErrorHandler
	listener     net.Listener
	closeStore   func() error
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Records   *services.RecordService
	Gradebook *services.GradebookService
	Imports   *services.ImportService
	Health    *services.HealthService
}

// NewApplication loads configuration, installs the process logger and
// builds the application.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("database", cfg.Database.Driver))

	return New(ctx, cfg, logger)
}

// New builds the application from an already loaded configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.openStore(ctx); err != nil {
		otelProviders.Shutdown(ctx)
		return nil, err
	}
	if err := app.restoreBackup(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	if err := app.initializeServices(); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

func (a *Application) openStore(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		db, err := store.OpenDB(ctx, store.Driver(a.Config.Database.Driver), a.Config.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", a.Config.Database.Driver, err)
		}
		repo := store.NewSQL(db)
		a.Store = repo
		a.closeStore = repo.Close
	default:
		a.Store = store.NewMemory()
	}
	return nil
}

// restoreBackup merges the snapshot file into the store. A missing file
// is a first run.
func (a *Application) restoreBackup(ctx context.Context) error {
	if a.Config.Backup.Path == "" {
		return nil
	}
	backup := store.FileBackup{Path: a.Config.Backup.Path}

	snap, err := backup.Read(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.Logger.InfoContext(ctx, "No backup to restore", slog.String("path", backup.Path))
	case err != nil:
		return fmt.Errorf("failed to load backup: %w", err)
	default:
		if err := a.Store.Restore(ctx, snap); err != nil {
			return fmt.Errorf("failed to restore backup: %w", err)
		}
		a.Logger.InfoContext(ctx, "Backup restored",
			slog.String("path", backup.Path),
			slog.Int("records", snap.Records()),
			slog.Time("taken_at", snap.TakenAt))
	}

	a.Backup = store.NewSyncBuffer(a.Config.Backup.Debounce, backup.Write, a.Logger)
	return nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := services.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return err
	}

	var backupState services.BackupState
	if a.Backup != nil {
		backupState = a.Backup
	}

	a.Services = &ServiceContainer{
		Records:   services.NewRecordService(a.Store, a.Backup, a.Logger),
		Gradebook: services.NewGradebookService(a.Store, metrics, a.Logger),
		Imports:   services.NewImportService(a.Store, a.Backup, metrics, a.Logger),
		Health:    services.NewHealthService(Version, BuildTime, a.Store, backupState, a.Logger),
	}
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Ordering: RequestID → RealIP → OTel → logging/recovery → headers → CORS → rate limit
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.errorHandler))
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(apierrors.NewErrorMiddleware(a.errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.errorHandler,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	imports := handlers.NewImportHandler(a.Services.Imports, a.Config.Server.MaxUploadBytes, a.Logger, a.errorHandler)
	classes := handlers.NewClassHandler(a.Services.Records, a.Services.Gradebook, a.Logger, a.errorHandler).WithImports(imports)
	students := handlers.NewStudentHandler(a.Services.Records, a.Services.Gradebook, a.Logger, a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/version", health.Version)

		r.Mount("/classes", classes.Routes())
		r.Mount("/students", students.Routes())
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Addr returns the address the server listens on once started.
func (a *Application) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.Server.Addr
}

// Start binds the listener and serves in the background. A serve failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("address", ln.Addr().String()),
		slog.String("level", a.Config.Logging.Level))
	return nil
}

// Stop gracefully stops the application. The pending backup is written
// before the store closes.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	errs = append(errs, a.close(shutdownCtx))

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) close(ctx context.Context) error {
	var errs []error
	if a.Backup != nil {
		if err := a.Backup.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("backup flush: %w", err))
		}
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	// The run context may already be cancelled by a serve failure.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
