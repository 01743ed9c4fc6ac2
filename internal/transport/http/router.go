package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"epicli/internal/config"
	"epicli/internal/middleware"
	"epicli/internal/services"
	"epicli/internal/websocket"
)

// Deps carries everything the router needs.
type Deps struct {
	Config *config.Config
	Paths  *config.Paths
	Data   *services.DataService
	Trends *services.TrendService
	Views  ViewRenderer
	Hub    *websocket.Hub
	Logger *slog.Logger
}

// NewRouter assembles the middleware chain and the API routes.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewHandler(deps, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))

	limiter := middleware.NewRateLimiter(
		deps.Config.Server.RateLimitRPS,
		deps.Config.Server.RateLimitBurst,
		logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", handler.Health)
		r.Get("/dataset", handler.GetDataset)
		r.Get("/dataset/columns/{column}", handler.GetColumn)
		r.Post("/projections", handler.CreateProjection)
		r.Get("/views/{view}/download", handler.DownloadView)
		r.Post("/refresh", handler.Refresh)
	})

	r.Get("/ws", handler.ServeWS)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
