package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"

	"github.com/aussiebroadwan/gatehouse/api/resource" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// KeyCache is the readiness view of the verifier's key set.
type KeyCache interface {
	Ready() bool
}

type RouterConfig struct {
	BasePath string

	// TimeScope guards /time. Empty disables the scope check.
	TimeScope      string
	DiscloseScopes bool

	// ServerURLs are advertised in llms.txt.
	ServerURLs   []string
	BuildVersion string
	ExposeErrors bool
}

// Router wires the resource routes behind bearer authentication.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	cfg       RouterConfig
	verifier  httpx.TokenVerifier
	keys      KeyCache
	metrics   *metricsx.Metrics
	startTime time.Time
	logger    *slog.Logger
}

func NewRouter(
	cfg RouterConfig,
	verifier httpx.TokenVerifier,
	keys KeyCache,
	metrics *metricsx.Metrics,
	logger *slog.Logger,
) *Router {
	cfg.BasePath = strings.TrimSuffix("/"+strings.Trim(cfg.BasePath, "/"), "/")

	return &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		verifier:  verifier,
		keys:      keys,
		metrics:   metrics,
		startTime: time.Now(),
		logger:    logger,
		middlewares: []httpx.Middleware{
			slogx.HTTPMiddleware(logger),
			httpx.Recover(cfg.ExposeErrors),
		},
	}
}

// ApplyRoutes registers every route and freezes the middleware chain.
func (r *Router) ApplyRoutes() {
	base := r.cfg.BasePath

	r.Mux.Handle("GET "+base+"/public",
		httpx.Chain(PublicHandler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	timeChain := []httpx.Middleware{httpx.Authenticate(r.verifier)}
	if r.cfg.TimeScope != "" {
		timeChain = append(timeChain, httpx.RequireScope(r.cfg.TimeScope, httpx.ScopeOptions{
			DiscloseProvided: r.cfg.DiscloseScopes,
		}))
	}
	timeChain = append(timeChain, httpx.RateLimitByUser(httpx.LenientLimit))
	r.Mux.Handle("GET "+base+"/time", httpx.Chain(TimeHandler(time.Now), timeChain...))

	r.Mux.Handle("GET "+base+"/health", HealthHandler())
	r.Mux.Handle("GET "+base+"/llms.txt", LLMsHandler(resource.SwaggerInfo.InstanceName(), base, r.cfg.ServerURLs))
	r.Mux.Handle("GET "+base+"/reference/", httpSwagger.Handler(
		httpSwagger.URL(base+"/reference/doc.json"),
		httpSwagger.InstanceName(resource.SwaggerInfo.InstanceName()),
	))

	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.keys))
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}

	r.Mux.Handle("/", NotFoundHandler())

	var inner http.Handler = r.Mux
	if r.metrics != nil {
		inner = r.metrics.HTTPMiddleware(r.Mux)
	}
	r.handler = httpx.Chain(inner, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatehouse Resource API
//	@version		0.1.0
//	@description	A protected resource that verifies access tokens issued by the Gatehouse credential issuer.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/gatehouse
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:3010
//	@BasePath		/api/v1/resource
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token from the issuer. Format: "Bearer {token}"
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
