/*
Package handler provides the HTTP handlers and routing setup for the torwatch operator API.

This file defines the main Router, applying middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"torwatch/internal/pkg/auth/jwt"
	"torwatch/internal/pkg/limiter"
	"torwatch/internal/pkg/logx"
	"torwatch/internal/pkg/resp"
)

const (
	// TokenRate limits operator token issuance attempts per IP, keeping
	// the shared secret out of brute-force reach.
	TokenRate  = 0.2
	TokenBurst = 3
)

// Router sets up the chi routing table for the operator API: health check,
// token issuance, JWT-gated registry inspection, and the WebSocket event feed.
func Router(deps *AppDeps) http.Handler {
	tokenLimiter := limiter.NewIPRateLimiter(rate.Limit(TokenRate), TokenBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "torwatch",
		})
	})

	r.Route("/api", func(api chi.Router) {
		rateLimitedToken := tokenLimiter.Middleware(HandleIssueToken(deps))
		api.Post("/auth/token", http.HandlerFunc(rateLimitedToken.ServeHTTP))

		api.Group(func(protected chi.Router) {
			protected.Use(jwt.RequireOperator(deps.Config.JWTSecret))

			protected.Get("/users/{id}/nodes", HandleGetUserNodes(deps))
			protected.Post("/users/{id}/nodes", HandleAddUserNode(deps))
			protected.Delete("/users/{id}/nodes/{fingerprint}", HandleRemoveUserNode(deps))
			protected.Get("/users/{id}/status", HandleGetUserStatus(deps))
			protected.Get("/relays/{fingerprint}", HandleGetRelay(deps))
		})
	})

	// Browsers cannot set headers on WebSocket upgrades, so RequireOperator
	// also accepts the token as a query parameter here.
	r.With(jwt.RequireOperator(deps.Config.JWTSecret)).
		Get("/ws/events", HandleEvents(wsUpgrader, deps))

	return r
}
