package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/gatehouse/api/resource"
	httpapi "github.com/aussiebroadwan/gatehouse/internal/resource/http"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application is the resource API process.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metricsx.Metrics

	keys     *jwtx.RemoteKeySet
	verifier *jwtx.Verifier

	server *http.Server
	router *httpapi.Router

	// cancels the JWKS warm-up loop
	stopWarmup context.CancelFunc
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "resource-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metricsx.New("gatehouse_resource"),
	}

	if err := httpx.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.JWKSURL); err != nil {
		return nil, fmt.Errorf("invalid JWKS_URL %q: %w", cfg.JWKSURL, err)
	}

	app.keys = jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{
		URL:                cfg.JWKSURL,
		TTL:                cfg.JWKSCacheTTL,
		FetchTimeout:       cfg.JWKSFetchTimeout,
		MinRefreshInterval: cfg.JWKSMinRefreshInterval,
		Logger:             app.logger,
		OnFetch:            app.metrics.ObserveJWKSFetch,
	})
	app.verifier = jwtx.NewVerifier(app.keys, jwtx.VerifierOptions{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
	})

	configureDocs(cfg)
	app.initHTTP()

	return app, nil
}

// configureDocs points the OpenAPI document at the configured base path and
// first public server.
func configureDocs(cfg Config) {
	resource.SwaggerInfo.BasePath = cfg.BasePath
	resource.SwaggerInfo.Version = BuildVersion
	if len(cfg.ServerURLs) == 0 {
		return
	}
	if u, err := url.Parse(cfg.ServerURLs[0]); err == nil && u.Host != "" {
		resource.SwaggerInfo.Host = u.Host
		resource.SwaggerInfo.Schemes = []string{u.Scheme}
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		BasePath:       app.cfg.BasePath,
		TimeScope:      app.cfg.TimeScope,
		DiscloseScopes: app.cfg.DiscloseScopes,
		ServerURLs:     app.cfg.ServerURLs,
		BuildVersion:   BuildVersion,
		ExposeErrors:   app.cfg.IsDev(),
	}, app.verifier, app.keys, app.metrics, app.logger)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the fully wired router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Keys exposes the remote key set so callers can warm it before serving.
func (app *Application) Keys() *jwtx.RemoteKeySet {
	return app.keys
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("resource service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"jwks_url", app.cfg.JWKSURL,
		"time_scope", app.cfg.TimeScope,
	)

	ctx, cancel := context.WithCancel(context.Background())
	app.stopWarmup = cancel
	go app.warmKeys(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		cancel()
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

// warmKeys fetches the JWKS until the first success so readiness does not
// wait for the first authenticated request.
func (app *Application) warmKeys(ctx context.Context) {
	backoff := time.Second
	for {
		err := app.keys.Refresh(ctx)
		if err == nil {
			app.logger.Info("jwks_loaded", "keys", app.keys.Len())
			return
		}
		app.logger.Warn("jwks_warmup_failed", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down resource service...")

	if app.stopWarmup != nil {
		app.stopWarmup()
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
		return err
	}

	app.logger.Info("resource service stopped")
	return nil
}
