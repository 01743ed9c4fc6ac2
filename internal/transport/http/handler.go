package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"epicli/internal/chart"
	"epicli/internal/dataset"
	apierrors "epicli/internal/errors"
	"epicli/internal/services"
	ws "epicli/internal/websocket"
)

// ViewRenderer writes a chart view for download. Satisfied by
// chart.Renderer.
type ViewRenderer interface {
	RenderView(ctx context.Context, ds *dataset.Dataset, view chart.View, opts chart.RenderOptions) error
}

// Handler serves the API endpoints.
type Handler struct {
	data     *services.DataService
	trends   *services.TrendService
	views    ViewRenderer
	hub      *ws.Hub
	upgrader websocket.Upgrader
	deps     Deps
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler wires the handler set.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	return &Handler{
		data:   deps.Data,
		trends: deps.Trends,
		views:  deps.Views,
		hub:    deps.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  deps.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: deps.Config.WebSocket.WriteBufferSize,
		},
		deps:     deps,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "http_handler")),
	}
}

// HealthResponse reports service liveness and dataset state.
type HealthResponse struct {
	Status        string `json:"status"`
	DatasetLoaded bool   `json:"dataset_loaded"`
	LastDate      string `json:"last_date,omitempty"`
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if summary, err := h.data.Summary(); err == nil {
		resp.DatasetLoaded = true
		resp.LastDate = summary.LastDate
	}
	render.JSON(w, r, resp)
}

// GetDataset handles GET /api/dataset.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.data.Summary()
	if err != nil {
		h.renderError(w, r, apierrors.ErrDatasetNotLoaded)
		return
	}
	render.JSON(w, r, summary)
}

// ColumnResponse is one raw column as dated points.
type ColumnResponse struct {
	Column string                     `json:"column"`
	Points []services.ProjectionPoint `json:"points"`
}

// GetColumn handles GET /api/dataset/columns/{column}.
func (h *Handler) GetColumn(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")
	points, err := h.trends.ColumnSeries(column)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, ColumnResponse{Column: column, Points: points})
}

// CreateProjection handles POST /api/projections.
func (h *Handler) CreateProjection(w http.ResponseWriter, r *http.Request) {
	var req services.ProjectionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.renderError(w, r, apierrors.ErrValidation(verrs[0].Field(), verrs[0].Tag()))
			return
		}
		h.renderError(w, r, apierrors.ErrValidationFailed)
		return
	}

	result, err := h.trends.Project(r.Context(), req)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// DownloadView handles GET /api/views/{view}/download: the view is
// rendered fresh against the current dataset and streamed as xlsx.
func (h *Handler) DownloadView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	view, ok := chart.ViewByName(name)
	if !ok {
		h.renderError(w, r, apierrors.NotFoundError(fmt.Sprintf("view %q", name)))
		return
	}
	ds, err := h.data.Current()
	if err != nil {
		h.renderError(w, r, apierrors.ErrDatasetNotLoaded)
		return
	}

	path := filepath.Join(h.deps.Paths.FiguresDir, view.Name+"_overview.xlsx")
	if err := h.views.RenderView(r.Context(), ds, view, chart.RenderOptions{OutputPath: path}); err != nil {
		h.logger.ErrorContext(r.Context(), "view render failed",
			slog.String("view", view.Name),
			slog.String("error", err.Error()))
		h.renderError(w, r, apierrors.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

// Refresh handles POST /api/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	summary, err := h.data.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "refresh failed", slog.String("error", err.Error()))
		h.renderError(w, r, apierrors.NewWithDetails(
			http.StatusBadGateway, "REFRESH_FAILED", "Upstream feed refresh failed", err.Error()))
		return
	}
	render.JSON(w, r, summary)
}

// ServeWS handles GET /ws by upgrading to a websocket connection and
// attaching the client to the hub.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}
	client := ws.NewClient(h.hub, conn, h.deps.Config.WebSocket, h.logger)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}

// renderServiceError maps service and trend errors onto the envelope.
func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNoDataset) {
		h.renderError(w, r, apierrors.ErrDatasetNotLoaded)
		return
	}
	h.renderError(w, r, apierrors.FromProjectionError(err))
}
