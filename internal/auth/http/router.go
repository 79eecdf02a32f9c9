package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/service"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/jwtx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	AuthService       *service.AuthService
	TwoFactorService  *service.TwoFactorService
	TokenService      *service.TokenService
	NewsletterService *service.NewsletterService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMe()
	r.registerAdmin()
	r.registerNewsletter()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{
		AuthService:  r.AuthService,
		TokenService: r.TokenService,
	}
	twoFactorHandler := &TwoFactorHandler{
		TwoFactorService: r.TwoFactorService,
		TokenService:     r.TokenService,
		AuthService:      r.AuthService,
	}

	// Credential endpoints get the strict limit: they are the ones worth
	// brute-forcing.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(twoFactorHandler.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMe() {
	meHandler := &MeHandler{Store: r.store}
	accountHandler := &AccountHandler{
		AuthService:      r.AuthService,
		TwoFactorService: r.TwoFactorService,
	}

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(http.HandlerFunc(meHandler.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	// Password changes re-verify the current password, so they share the
	// strict profile with login.
	r.Mux.Handle("PUT /v1/me/password",
		httpx.Chain(http.HandlerFunc(accountHandler.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("PUT /v1/me/2fa/email",
		httpx.Chain(http.HandlerFunc(accountHandler.HandleSetEmailOTP),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	adminHandler := &AdminHandler{Store: r.store}

	r.Mux.Handle("GET /v1/admin/users",
		httpx.Chain(http.HandlerFunc(adminHandler.HandleListUsers),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/admin/users/{id}/logins",
		httpx.Chain(http.HandlerFunc(adminHandler.HandleListLogins),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerNewsletter() {
	newsletterHandler := &NewsletterHandler{NewsletterService: r.NewsletterService}

	r.Mux.Handle("POST /v1/newsletter/subscribe",
		httpx.Chain(http.HandlerFunc(newsletterHandler.HandleSubscribe),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/newsletter/subscribe",
		httpx.Chain(http.HandlerFunc(newsletterHandler.HandleUnsubscribe),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/admin/newsletter",
		httpx.Chain(http.HandlerFunc(newsletterHandler.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
