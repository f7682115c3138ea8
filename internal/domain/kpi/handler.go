package kpi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wiye1050/gestionclinica-sub003/pkg/pagination"
)

// Handler exposes read-only KPI queries over HTTP.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes binds KPI routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/kpis", h.HandleList)
}

// HandleList handles GET /kpis?kind=... or ?episode_id=...
func (h *Handler) HandleList(c echo.Context) error {
	p := pagination.FromContext(c)
	ctx := c.Request().Context()

	if kind := c.QueryParam("kind"); kind != "" {
		items, total, err := h.repo.ListByKind(ctx, Kind(kind), p.Limit, p.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
	}

	if episodeID := c.QueryParam("episode_id"); episodeID != "" {
		items, total, err := h.repo.ListByEpisode(ctx, episodeID, p.Limit, p.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
	}

	return echo.NewHTTPError(http.StatusBadRequest, "kind or episode_id query parameter is required")
}
