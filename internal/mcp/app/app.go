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
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/resource"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/server"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/session"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/tools"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/transport"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application is the MCP tool proxy process.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metricsx.Metrics

	server *server.Server
	store  session.Store

	httpServer *http.Server
}

// New wires the proxy. logOutput receives the logs; stdio mode passes
// stderr because stdout carries protocol messages.
func New(cfg Config, logOutput io.Writer) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "mcp-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOutput,
		}),
		metrics: metricsx.New("gatehouse_mcp"),
	}

	client := resource.NewClient(cfg.ResourceBaseURL, cfg.UpstreamTimeout)
	registry := tools.NewRegistry(client, app.metrics, app.logger)
	app.server = server.New(registry, cfg.AuthJWT, app.logger)

	return app, nil
}

// OpenSessionStore selects the Redis store when MCP_REDIS_ADDR is set and
// the in-memory one otherwise.
func (app *Application) OpenSessionStore(ctx context.Context) error {
	if app.cfg.RedisAddr == "" {
		app.store = session.NewMemoryStore(app.cfg.SessionTTL)
		app.logger.Info("session store ready", "backend", "memory", "ttl", app.cfg.SessionTTL)
		return nil
	}

	st, err := session.NewRedisStore(ctx, session.RedisConfig{
		Addr:      app.cfg.RedisAddr,
		KeyPrefix: app.cfg.RedisKeyPrefix,
		TTL:       app.cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("init redis session store: %w", err)
	}
	app.store = st
	app.logger.Info("session store ready", "backend", "redis", "addr", app.cfg.RedisAddr, "ttl", app.cfg.SessionTTL)
	return nil
}

// Handler builds the HTTP surface. OpenSessionStore must have run.
func (app *Application) Handler() http.Handler {
	mux := http.NewServeMux()

	mcp := transport.NewHTTPHandler(app.server, app.store, app.logger)
	mux.Handle("/mcp", mcp)
	mux.Handle("GET /metrics", app.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", app.handleReadyz)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.NotFound("Route not found").WriteError(w)
	})

	return httpx.Chain(app.metrics.HTTPMiddleware(mux),
		slogx.HTTPMiddleware(app.logger),
		httpx.Recover(app.cfg.IsDev()),
	)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (app *Application) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if p, ok := app.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"checks": map[string]string{"sessions": err.Error()},
			})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"checks": map[string]string{"sessions": "ok"},
	})
}

// RunHTTP serves streamable HTTP on port (0 means the configured port) and
// blocks until a shutdown signal arrives.
func (app *Application) RunHTTP(ctx context.Context, port int) error {
	if port == 0 {
		port = app.cfg.Port
	}
	if err := app.OpenSessionStore(ctx); err != nil {
		return err
	}
	defer app.closeStore()

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	app.logger.Info("mcp service starting",
		"transport", "http",
		"port", port,
		"version", BuildVersion,
		"resource_base_url", app.cfg.ResourceBaseURL,
		"static_credential", app.cfg.AuthJWT != "",
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

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
	case <-ctx.Done():
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

// RunStdio serves newline-delimited JSON-RPC on in/out until EOF or a
// shutdown signal.
func (app *Application) RunStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info("mcp service starting",
		"transport", "stdio",
		"version", BuildVersion,
		"resource_base_url", app.cfg.ResourceBaseURL,
		"static_credential", app.cfg.AuthJWT != "",
	)

	err := transport.NewStdio(app.server, out, app.logger).Serve(ctx, in)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	app.logger.Info("mcp service stopped")
	return err
}

// Shutdown gracefully shuts down the HTTP server.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down mcp service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.httpServer.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
		return err
	}

	app.logger.Info("mcp service stopped")
	return nil
}

func (app *Application) closeStore() {
	if app.store == nil {
		return
	}
	if err := app.store.Close(); err != nil {
		app.logger.Warn("session store close failed", "error", err)
	}
}
