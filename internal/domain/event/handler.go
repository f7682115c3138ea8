package event

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wiye1050/gestionclinica-sub003/pkg/pagination"
)

// Handler exposes the canonical event stream over HTTP.
type Handler struct {
	repo    Repository
	emitter *Emitter
}

// NewHandler creates a new event Handler.
func NewHandler(repo Repository, emitter *Emitter) *Handler {
	return &Handler{repo: repo, emitter: emitter}
}

// RegisterRoutes binds event routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/events", h.HandleEmit)
	g.GET("/events", h.HandleList)
	g.GET("/events/:id", h.HandleGet)
}

// HandleEmit handles POST /events: emit a canonical event on behalf of a
// domain action.
func (h *Handler) HandleEmit(c echo.Context) error {
	var d Draft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	e, err := h.emitter.Emit(c.Request().Context(), d)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

// HandleList handles GET /events?subject_kind=episode&subject_id=...
func (h *Handler) HandleList(c echo.Context) error {
	subject := Subject{
		Kind: SubjectKind(c.QueryParam("subject_kind")),
		ID:   c.QueryParam("subject_id"),
	}
	if !subject.Kind.Valid() || subject.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_kind and subject_id query parameters are required")
	}

	p := pagination.FromContext(c)
	events, total, err := h.repo.ListBySubject(c.Request().Context(), subject, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, p))
}

// HandleGet handles GET /events/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	e, err := h.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	}
	return c.JSON(http.StatusOK, e)
}
