package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"campaignpulse/internal/config"
	"campaignpulse/internal/dataprocessing"
	apierrors "campaignpulse/internal/errors"
	"campaignpulse/internal/exporter"
	"campaignpulse/internal/infrastructure"
	customMiddleware "campaignpulse/internal/middleware"
	"campaignpulse/internal/services"
	"campaignpulse/internal/session"
	handlers "campaignpulse/internal/transport/http"
	"campaignpulse/internal/validation"
	"campaignpulse/pkg/contracts"
)

// AppName is the human-readable application name.
const AppName = "Campaign Pulse"

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	ErrorHandler     *apierrors.ErrorHandler
	Sessions         *session.Store
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.BusinessMetrics

	logCloser io.Closer
}

// NewApplication loads configuration, builds the logger and wires the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := New(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, err
	}
	app.logCloser = closer
	return app, nil
}

// New wires the application from an explicit configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("schema", cfg.Dashboard.Schema))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    environment(cfg),
		TraceExporter:  cfg.Telemetry.TraceExporter,
		EnableMetrics:  cfg.Telemetry.MetricsEnabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		OTelProviders: otelProviders,
		Metrics:       metrics,
		logCloser:     nopCloser{},
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

func environment(cfg *config.Config) string {
	if cfg.Logging.Development {
		return "development"
	}
	return "production"
}

// initializeServices builds the pipeline components and services
func (a *Application) initializeServices() error {
	cfg := a.Config.Dashboard

	schema, err := dataprocessing.SchemaByName(cfg.Schema)
	if err != nil {
		return err
	}

	a.Sessions = session.NewStore(a.Logger, cfg.SessionTTL)

	dashboard, err := services.NewDashboardService(
		a.Sessions,
		dataprocessing.NewIngester(a.Logger, dataprocessing.IngestLimits{
			MaxFiles:     cfg.MaxFiles,
			MaxFileBytes: cfg.MaxFileBytes,
			Workers:      cfg.ParseWorkers,
		}),
		dataprocessing.NewAnalyzer(a.Logger, dataprocessing.AnalyzerConfig{
			TopN:         cfg.TopN,
			LeaderboardN: cfg.LeaderboardN,
		}),
		exporter.NewCSVWriter(a.Logger, cfg.CSVBOM),
		exporter.NewExcelWriter(a.Logger),
		schema,
		a.Logger,
		services.WithTelemetry(a.OTelProviders.Tracer, a.Metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard service: %w", err)
	}
	a.DashboardService = dashboard

	if err := infrastructure.RegisterSessionGauge(a.OTelProviders.Meter, dashboard.SessionCount); err != nil {
		return fmt.Errorf("failed to register session gauge: %w", err)
	}

	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, schema.Name, dashboard, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer → Security → CORS → RateLimit
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

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

	// Scraped outside the middleware group so it is neither traced nor rate limited
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	dashboardHandler := handlers.NewDashboardHandler(
		a.DashboardService,
		validation.NewValidator(),
		a.Config.Dashboard.MaxUploadBytes,
		a.Logger,
		a.ErrorHandler,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))
			r.Mount("/sessions", dashboardHandler.Routes())
			r.Get("/template.xlsx", dashboardHandler.Template)
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	config := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", config.AllowedOrigins))
	return config
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the session janitor and the HTTP server. A listen failure
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.Sessions.Start(ctx, a.Config.Dashboard.SweepInterval)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.Duration("session_ttl", a.Config.Dashboard.SessionTTL),
		slog.Int("max_files", a.Config.Dashboard.MaxFiles))
	return nil
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

	a.Sessions.Close()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error shutting down OpenTelemetry")
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")

	if err := a.logCloser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted or the server fails
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
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled; shutdown gets its own deadline.
	return a.Stop(context.WithoutCancel(ctx))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
