package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"leaguesync/internal/container"
	"leaguesync/internal/middleware"
	"leaguesync/pkg/errors"
)

// NewRouter builds the HTTP surface on top of c
func NewRouter(c *container.Container) http.Handler {
	log := c.Logger
	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig(c.Config.AllowedOrigins), log))
	r.Use(middleware.RequestID(log))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))

	health := NewHealthHandler(c)
	admin := NewAdminHandler(c)
	matches := NewMatchHandler(c)

	r.Get("/health", health.Check)
	r.Method(http.MethodGet, "/metrics", c.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/matches/{matchId}", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(30 * time.Second))
			r.Post("/result", matches.SubmitResult)
			r.Post("/confirmation", matches.ConfirmResult)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(c.Config.AdminJWTSecret, log))
			r.Post("/categories/{category}/sync", admin.SyncCategory)
			r.Delete("/categories/{category}/tracking", admin.ResetTracking)
			r.Post("/notifications/process", admin.ProcessNotifications)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteErrorResponse(w, req, errors.NewNotFoundError("Route not found"), log)
	})

	return r
}
