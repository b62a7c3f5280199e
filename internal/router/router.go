// Package router assembles the HTTP route tree and middleware chain.
package router

import (
	"database/sql"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tabletop/backend/internal/config"
	"github.com/tabletop/backend/internal/db"
	"github.com/tabletop/backend/internal/handlers"
	"github.com/tabletop/backend/internal/middleware"
	"github.com/tabletop/backend/internal/presence"
	"github.com/tabletop/backend/internal/services"
	"github.com/tabletop/backend/internal/ws"
)

// New wires services, handlers, and middleware into the API router.
func New(cfg *config.Config, dbc *sql.DB, queries *db.Queries, coordinator *presence.Coordinator) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	if cfg.SentryDSN != "" {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration)
	authzService := services.NewAuthzService(queries)
	visibilityService := services.NewVisibilityService(queries, authzService)
	inviteKeyService := services.NewInviteKeyService(queries)

	// Handlers
	authHandler := handlers.NewAuthHandler(queries, authService)
	scenarioHandler := handlers.NewScenarioHandler(dbc, queries, visibilityService, authzService, coordinator)
	injectHandler := handlers.NewInjectHandler(queries, visibilityService, coordinator)
	teamHandler := handlers.NewTeamHandler(queries, inviteKeyService)
	wsHandler := ws.NewHandler(coordinator, authService, cfg.CORSAllowedOrigins, cfg.SendBufferSize)

	// Rate limiter for credential endpoints
	loginRateLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)

	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Authentication (rate limited, no auth)
		r.Group(func(r chi.Router) {
			r.Use(loginRateLimiter.Middleware)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Live session: token is validated inside the handler since browser
		// websocket clients cannot set an Authorization header.
		r.Get("/ws", wsHandler.Serve)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", scenarioHandler.List)
				r.Post("/", scenarioHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", scenarioHandler.Get)
					r.Put("/", scenarioHandler.Update)
					r.Delete("/", scenarioHandler.Delete)
					r.Post("/teams", scenarioHandler.LinkTeam)

					r.Route("/injects", func(r chi.Router) {
						r.Get("/", injectHandler.List)
						r.Post("/", injectHandler.Create)
						r.Put("/{injectId}", injectHandler.Update)
						r.Delete("/{injectId}", injectHandler.Delete)
					})
				})
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", teamHandler.List)
				r.Post("/", teamHandler.Create)
				r.Post("/join", teamHandler.Join)
			})
		})
	})

	return r
}
