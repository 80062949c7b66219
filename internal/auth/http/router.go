package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/metricsx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"

	_ "github.com/aussiebroadwan/gatehouse/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig is the HTTP-facing slice of the issuer config.
type RouterConfig struct {
	BasePath       string
	CookieName     string
	SecureCookie   bool
	TrustedOrigins []string
	BuildVersion   string

	// ExposeErrors puts panic messages in 500 bodies (dev only).
	ExposeErrors bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	cfg       RouterConfig
	keys      *jwtx.KeySet
	store     store.Store
	metrics   *metricsx.Metrics
	startTime time.Time
	logger    *slog.Logger

	UserService    *service.UserService
	SessionService *service.SessionService
	TokenService   *service.TokenService
}

func NewRouter(
	cfg RouterConfig,
	keys *jwtx.KeySet,
	st store.Store,
	metrics *metricsx.Metrics,
	logger *slog.Logger,
) *Router {
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")

	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		keys:      keys,
		store:     st,
		metrics:   metrics,
		startTime: time.Now(),
		logger:    logger,
	}

	// Outermost first: access log sees recovered panics and CORS preflights.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(cfg.ExposeErrors),
		httpx.CORS(httpx.CORSOptions{
			AllowedOrigins:   cfg.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}),
	}

	return r
}

// ApplyRoutes registers every route and freezes the middleware chain.
func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerKeys()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.Handle("/", NotFoundHandler())

	// Metrics wraps the mux directly so it sees the matched pattern.
	var inner http.Handler = r.Mux
	if r.metrics != nil {
		inner = r.metrics.HTTPMiddleware(r.Mux)
	}
	r.handler = httpx.Chain(inner, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatehouse Credential Issuer API
//	@version		0.1.0
//	@description	Email and password accounts, opaque sessions and short-lived JWT access tokens.
//	@description
//	@description	Access tokens are signed with EdDSA by default and can be verified using the JWKS endpoint.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/gatehouse
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:3000
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	SessionAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {session token}". Browsers use the session cookie instead.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{
		UserService:    r.UserService,
		SessionService: r.SessionService,
		TokenService:   r.TokenService,
		Cookie:         SessionCookie{Name: r.cfg.CookieName, Secure: r.cfg.SecureCookie},
	}
	base := r.cfg.BasePath
	if base == "/" {
		base = ""
	}

	// Credential endpoints - strict rate limit by IP + email to slow brute force
	r.Mux.Handle("POST "+base+"/sign-up/email",
		httpx.Chain(http.HandlerFunc(h.HandleSignUp),
			httpx.RateLimitByIPAndField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST "+base+"/sign-in/email",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIPAndField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST "+base+"/sign-out",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Polled by browsers - lenient
	r.Mux.Handle("GET "+base+"/get-session",
		httpx.Chain(http.HandlerFunc(h.HandleGetSession),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET "+base+"/token",
		httpx.Chain(http.HandlerFunc(h.HandleToken),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET "+base+"/jwks",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerKeys() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.cfg.BuildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
