package task

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wiye1050/gestionclinica-sub003/pkg/pagination"
)

// Handler exposes task operations over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes binds task routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/tasks", h.HandleCreate)
	g.GET("/tasks", h.HandleList)
	g.GET("/tasks/:id", h.HandleGet)
	g.PUT("/tasks/:id/status", h.HandleSetStatus)
}

type createRequest struct {
	Summary     string     `json:"summary"`
	Priority    Priority   `json:"priority"`
	SubjectKind string     `json:"subject_kind"`
	SubjectID   string     `json:"subject_id"`
	DueAt       *time.Time `json:"due_at"`
}

// HandleCreate handles POST /tasks.
func (h *Handler) HandleCreate(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.CreateTask(c.Request().Context(), req.Summary, req.Priority, req.SubjectKind, req.SubjectID, req.DueAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

// HandleList handles GET /tasks. Without filters it returns the open
// work queue; with subject_kind+subject_id it returns the subject's
// task history.
func (h *Handler) HandleList(c echo.Context) error {
	p := pagination.FromContext(c)
	ctx := c.Request().Context()

	kind, id := c.QueryParam("subject_kind"), c.QueryParam("subject_id")
	if kind != "" && id != "" {
		items, total, err := h.svc.ListBySubject(ctx, kind, id, p.Limit, p.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
	}

	items, total, err := h.svc.ListOpen(ctx, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

// HandleGet handles GET /tasks/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	t, err := h.svc.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return c.JSON(http.StatusOK, t)
}

type statusRequest struct {
	Status Status `json:"status"`
}

// HandleSetStatus handles PUT /tasks/:id/status.
func (h *Handler) HandleSetStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
