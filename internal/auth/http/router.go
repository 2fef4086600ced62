package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/service"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/kvstore"
	"github.com/hollandstar/sportteams/pkg/slogx"

	_ "github.com/hollandstar/sportteams/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache kvstore.Store

	Sessions *service.SessionService
	Tokens   *service.TokenService
	Contexts *service.SecurityContextService

	// Limiter and RateLimits drive the per (ip, path) gate. A nil Limiter
	// disables rate limiting.
	Limiter    httpx.Limiter
	RateLimits httpx.RateLimitPolicy

	// Proxies lists peers whose forwarded headers name the client. The zero
	// value keys everything on the socket address.
	Proxies httpx.ProxyTrust

	// Events receives access, auth failure and rate limit events.
	Events httpx.Events

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(buildVersion string, st store.Store, cache kvstore.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		cache:        cache,
		RateLimits:   httpx.DefaultRateLimitPolicy(),
	}

	// Set default middleware chain. ApplyRoutes puts the client ip resolver
	// in front of it.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, clientIPAttr),
	}

	return r
}

func clientIPAttr(req *http.Request) slog.Attr {
	return slog.String("client_ip", httpx.ClientIP(req))
}

func (r *Router) ApplyRoutes() {
	r.middlewares = append([]httpx.Middleware{httpx.ClientIPMiddleware(r.Proxies)}, r.middlewares...)

	r.registerAuth()
	r.registerPlayers()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Sportteams Authentication Service API
//	@version		0.1.0
//	@description	Session authentication and team-scoped authorization for the sportteams application.
//	@description
//	@description				Access tokens are HS256 JWTs sealed with AES-256-GCM. Treat them as opaque.
//
//	@contact.name				Hollandstar Team
//	@contact.url				https://github.com/hollandstar/sportteams
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Sealed access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// limited wraps h in the rate limit gate, then mws.
func (r *Router) limited(h http.Handler, mws ...httpx.Middleware) http.Handler {
	if r.Limiter != nil {
		mws = append([]httpx.Middleware{httpx.RateLimitMiddleware(r.Limiter, r.RateLimits, r.Events)}, mws...)
	}
	return httpx.Chain(h, mws...)
}

func (r *Router) authenticated() httpx.Middleware {
	return httpx.AuthnMiddleware(r.Tokens, r.Events)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.Sessions}

	r.Mux.Handle("POST /v1/auth/login", r.limited(http.HandlerFunc(h.HandleLogin)))
	r.Mux.Handle("POST /v1/auth/refresh", r.limited(http.HandlerFunc(h.HandleRefresh)))
	r.Mux.Handle("GET /v1/auth/me", r.limited(http.HandlerFunc(h.HandleMe), r.authenticated()))
	r.Mux.Handle("POST /v1/auth/logout", r.limited(http.HandlerFunc(h.HandleLogout), r.authenticated()))
}

func (r *Router) registerPlayers() {
	h := &PlayersHandler{Contexts: r.Contexts}
	scoped := []httpx.Middleware{r.authenticated(), SecurityContextMiddleware(r.Contexts)}

	r.Mux.Handle("GET /v1/players", r.limited(http.HandlerFunc(h.HandleList), scoped...))
	r.Mux.Handle("GET /v1/players/{id}", r.limited(http.HandlerFunc(h.HandleGet), scoped...))
}

func (r *Router) registerAdmin() {
	h := &SecurityContextsHandler{Contexts: r.Contexts}

	r.Mux.Handle("GET /v1/admin/security-contexts/{user_id}",
		r.limited(h,
			r.authenticated(),
			httpx.RequireRole("admin"),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics)
	}
}
