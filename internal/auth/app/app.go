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

	"github.com/hollandstar/sportteams/internal/auth/audit"
	httpapi "github.com/hollandstar/sportteams/internal/auth/http"
	"github.com/hollandstar/sportteams/internal/auth/service"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/internal/auth/store/drivers/postgres"
	"github.com/hollandstar/sportteams/internal/auth/store/drivers/sqlite"
	"github.com/hollandstar/sportteams/internal/telemetry"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/jwtx"
	"github.com/hollandstar/sportteams/pkg/kvstore"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "sportteams-auth"
	kvPrefix    = "sportteams:"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	kv        kvstore.Store
	telemetry *telemetry.Provider
	keys      Keys

	// Services
	tokenService        *service.TokenService
	contextService      *service.SecurityContextService
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService
	audit               *audit.Log

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	keys, err := LoadKeys(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.keys = keys

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initTelemetry(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		app.closeStores()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.telemetry.Shutdown(ctx); err != nil {
		app.logger.Error("error flushing telemetry", "error", err)
	}
	if err := app.kv.Close(); err != nil {
		app.logger.Error("error closing kv store", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() {
	_ = app.kv.Close()
	_ = app.db.Close()
}

// OpenStore opens the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseURL)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initCache opens the kv store backing revocation markers, replay markers,
// cached security contexts and rate limit counters.
func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.CacheDriver == "redis" {
		r, err := kvstore.OpenRedis(ctx, app.cfg.RedisURL, kvPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.kv = r
		app.logger.Info("kv store connected", "driver", "redis")
		return nil
	}

	app.kv = kvstore.NewMemory(time.Now)
	app.logger.Info("kv store ready", "driver", "memory")
	return nil
}

func (app *Application) initTelemetry() error {
	p, err := telemetry.New(telemetry.Config{
		ServiceName:     serviceName,
		Version:         BuildVersion,
		MetricsEnabled:  app.cfg.MetricsEnabled,
		TracingExporter: app.cfg.TracingExporter,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	app.telemetry = p
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	signer, err := jwtx.NewHS256(app.keys.Signing, jwtx.Options{
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.Issuer,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	sealer, err := cryptox.NewSealer(app.keys.Encryption)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	tracer := app.telemetry.Tracer()
	app.audit = audit.New(app.telemetry.Metrics)

	app.tokenService = &service.TokenService{
		Signer:       signer,
		Sealer:       sealer,
		KV:           app.kv,
		Store:        app.db,
		Issuer:       app.cfg.Issuer,
		AccessTTL:    app.cfg.AccessTTL,
		RefreshTTL:   app.cfg.RefreshTTL,
		ReplayWindow: app.cfg.ReplayWindow,
		StrictReplay: app.cfg.StrictReplay,
		Audit:        app.audit,
		Metrics:      app.telemetry.Metrics,
		Tracer:       tracer,
	}

	app.contextService = &service.SecurityContextService{
		Store:      app.db,
		Cache:      app.kv,
		CacheTTL:   app.cfg.ContextTTL,
		PersistTTL: app.cfg.PersistTTL,
		Metrics:    app.telemetry.Metrics,
		Tracer:     tracer,
	}

	app.sessionService = &service.SessionService{
		Store:     app.db,
		Tokens:    app.tokenService,
		Contexts:  app.contextService,
		Passwords: cryptox.PasswordHasher{Pepper: app.cfg.Pepper},
		Audit:     app.audit,
	}

	// Redis expires keys itself; only the in-process store needs sweeping.
	var sweeper service.Sweeper
	if m, ok := app.kv.(*kvstore.Memory); ok {
		sweeper = m
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		sweeper,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	proxies, err := app.cfg.ProxyTrust()
	if err != nil {
		return fmt.Errorf("%w: TRUSTED_PROXIES: %w", ErrConfiguration, err)
	}

	router := httpapi.NewRouter(BuildVersion, app.db, app.kv, app.logger)
	router.Proxies = proxies

	router.Sessions = app.sessionService
	router.Tokens = app.tokenService
	router.Contexts = app.contextService
	router.Events = app.audit
	router.Metrics = app.telemetry.Handler()

	router.RateLimits.Window = app.cfg.RateLimitWindow
	switch app.cfg.RateLimitMode {
	case "token_bucket":
		router.Limiter = &httpx.TokenBucketLimiter{}
	default:
		router.Limiter = &httpx.FixedWindowLimiter{Store: app.kv}
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
