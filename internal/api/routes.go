package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Buffered routes; streaming ones below must not be wrapped by these.
	bounded := func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json", "text/html"))
		r.Use(m.Timeout(15 * time.Second))
	}

	r.Group(func(r chi.Router) {
		bounded(r)

		r.Get("/", h.Dashboard)
		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
		if metricsHandler != nil {
			r.Method(http.MethodGet, "/metrics", metricsHandler)
		}
	})

	r.Route("/v1", func(r chi.Router) {
		// Live updates
		r.Get("/stream", h.HandleSSE)
		r.Get("/ws", h.HandleWebSocket)

		r.Group(func(r chi.Router) {
			bounded(r)

			r.Get("/assets", h.ListAssets)
			r.Put("/assets", h.ReplaceAssets)
			r.Get("/assets/{id}", h.GetAsset)

			r.Get("/table", h.GetTable)

			r.Get("/status", h.GetStatus)
			r.Post("/status/loading", h.SetLoading)
			r.Post("/status/error", h.SetError)

			r.Post("/ticker/start", h.StartTicker)
			r.Post("/ticker/stop", h.StopTicker)
			r.Post("/ticker/tick", h.TickOnce)
		})
	})

	return r
}
