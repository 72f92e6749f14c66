// Package api provides the HTTP API server and handlers for the Guidepost application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/guidepostapp/guidepost-server/internal/store"
)

// Server holds dependencies for HTTP handlers. Operations are registered
// through huma on top of a chi router, so every route is described in the
// generated OpenAPI document and every JSON response rides the envelope.
type Server struct {
	store    store.Store
	services *Services
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger

	authRateLimiter  *RateLimiter
	shareRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// version is reported in the OpenAPI document and the instance endpoint.
func NewServer(st store.Store, services *Services, version string, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	authRateLimiter := NewRateLimiter(20, time.Minute, 10)
	shareRateLimiter := NewRateLimiter(30, time.Minute, 15)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	// Extension and web clients call from arbitrary origins; auth is
	// bearer-token only, so no credentialed CORS is needed.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Forwarded-For", "X-Real-IP"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	router.Use(rateLimitMiddleware(authRateLimiter, shareRateLimiter, logger))
	router.Use(authMiddleware(services.Auth))

	humaConfig := huma.DefaultConfig("Guidepost API", version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:            st,
		services:         services,
		router:           router,
		api:              api,
		logger:           logger,
		authRateLimiter:  authRateLimiter,
		shareRateLimiter: shareRateLimiter,
	}

	s.registerHealthRoutes()
	s.registerInstanceRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerGuideRoutes()
	s.registerSearchRoutes()
	s.registerShareRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Stop releases background resources held by the server's middleware.
func (s *Server) Stop() {
	s.authRateLimiter.Stop()
	s.shareRateLimiter.Stop()
}
