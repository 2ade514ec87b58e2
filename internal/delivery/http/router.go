package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/handler"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/middleware"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/response"
	"github.com/Pesokrava/reviewhub/internal/pkg/health"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	itemHandler   *handler.ItemHandler
	reviewHandler *handler.ReviewHandler
	authHandler   *handler.AuthHandler
	tokens        middleware.TokenValidator
	health        *health.Registry
	logger        *logger.Logger
	cfg           *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	itemHandler *handler.ItemHandler,
	reviewHandler *handler.ReviewHandler,
	authHandler *handler.AuthHandler,
	tokens middleware.TokenValidator,
	checks *health.Registry,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		itemHandler:   itemHandler,
		reviewHandler: reviewHandler,
		authHandler:   authHandler,
		tokens:        tokens,
		health:        checks,
		logger:        log,
		cfg:           cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Timeout(rt.cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Get("/ready", rt.readinessCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	authenticate := middleware.Authenticate(rt.tokens)

	r.Route("/api/v1", func(r chi.Router) {
		if rt.cfg.Auth.SessionEndpoint {
			r.Post("/auth/session", rt.authHandler.CreateSession)
		}

		r.Get("/categories", rt.itemHandler.Categories)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", rt.itemHandler.List)
			r.Get("/{id}", rt.itemHandler.GetByID)
			r.Get("/{id}/reviews", rt.reviewHandler.ListByItem)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", rt.itemHandler.Create)
				r.Put("/{id}", rt.itemHandler.Update)
				r.Delete("/{id}", rt.itemHandler.Delete)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", rt.reviewHandler.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", rt.reviewHandler.Create)
				r.Put("/{id}", rt.reviewHandler.Update)
				r.Patch("/{id}", rt.reviewHandler.Update)
				r.Delete("/{id}", rt.reviewHandler.Delete)
			})
		})
	})

	return r
}

// healthCheck handles liveness requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// readinessCheck reports whether the store and cache are reachable
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	report := rt.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != health.StatusUp {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, report)
}
