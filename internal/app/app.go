package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"incomestatement/internal/config"
	"incomestatement/internal/dataprocessing"
	apierrors "incomestatement/internal/errors"
	"incomestatement/internal/infrastructure"
	customMiddleware "incomestatement/internal/middleware"
	"incomestatement/internal/services"
	handlers "incomestatement/internal/transport/http"
	"incomestatement/internal/validation"
	ws "incomestatement/internal/websocket"
	"incomestatement/pkg/contracts"
)

const AppName = "Income Statement"

// minJanitorInterval keeps the expiry sweep from spinning on very short TTLs
const minJanitorInterval = time.Second

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	BusinessMetrics  *infrastructure.BusinessMetrics
	RuntimeMetrics   *infrastructure.RuntimeMetrics
	ErrorHandler     *apierrors.ErrorHandler
	Store            *services.DatasetStore
	StatementService *services.StatementService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub
}

// NewApplication loads configuration from the environment and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires every component for cfg. A nil logger uses the global one.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("level", cfg.Logging.Level))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	runtimeMetrics, err := infrastructure.NewRuntimeMetrics(otelProviders.Meter, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	app := &Application{
		Config:          cfg,
		Logger:          logger,
		OTelProviders:   otelProviders,
		BusinessMetrics: businessMetrics,
		RuntimeMetrics:  runtimeMetrics,
		ErrorHandler:    apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	a.Store = services.NewDatasetStore(a.Config.Datasets, a.Logger)

	registry := dataprocessing.NewRegistry(a.Config.Upload, a.Logger)
	a.StatementService = services.NewStatementService(a.Store, registry, a.Config.Upload.MaxBytes, a.Logger).
		WithTelemetry(a.BusinessMetrics, a.OTelProviders.Tracer)

	if a.Config.Sheets.Enabled {
		source, err := dataprocessing.NewSheetsSource(context.Background(), a.Config.Sheets, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize sheets source: %w", err)
		}
		a.StatementService.WithSheets(source)
	}

	var origins []string
	if a.Config.Security.EnableCORS {
		origins = a.Config.Security.AllowedOrigins
	}
	a.WebSocketHub = ws.NewHub(a.StatementService, a.Config.WebSocket, origins, a.ErrorHandler, a.Logger).
		WithMetrics(a.BusinessMetrics)

	a.HealthService = services.NewHealthService(
		a.Store,
		a.RuntimeMetrics,
		a.WebSocketHub,
		a.StatementService.SheetsEnabled(),
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// the upgrade needs the raw ResponseWriter, so /ws skips the wrapping middleware
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws", a.WebSocketHub.ServeHTTP)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.BusinessMetrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.ErrorHandler))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		files := validation.NewFileValidator(a.Config.Upload.AllowedExtensions, a.Logger)
		statementHandler := handlers.NewStatementHandler(
			a.StatementService,
			files,
			a.Config.Upload.MaxBytes,
			a.Logger,
			a.ErrorHandler,
		)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuditLog(a.Logger))
			r.Mount("/datasets", statementHandler.Routes())
		})
	})
}

// getCORSConfig builds the CORS settings from the security section
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cors := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cors.AllowedOrigins))
	return cors
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// janitorInterval is how often expired datasets are swept
func (a *Application) janitorInterval() time.Duration {
	interval := a.Config.Datasets.TTL / 4
	if interval < minJanitorInterval {
		interval = minJanitorInterval
	}
	return interval
}

// Run serves HTTP and sweeps expired datasets until ctx is cancelled or the
// process receives SIGINT or SIGTERM, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Store.RunJanitor(gctx, a.janitorInterval())
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(gctx, "Shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.WebSocketHub.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket sessions did not close in time", slog.String("error", err.Error()))
	}

	if err := a.RuntimeMetrics.Stop(); err != nil {
		a.Logger.ErrorContext(ctx, "Error stopping runtime metrics", slog.String("error", err.Error()))
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}
