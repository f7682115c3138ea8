package episode

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wiye1050/gestionclinica-sub003/pkg/pagination"
)

// Handler exposes episode workflow operations over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a new episode Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes binds episode routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/episodes", h.HandleCreate)
	g.GET("/episodes", h.HandleList)
	g.GET("/episodes/:id", h.HandleGet)
	g.POST("/episodes/:id/transitions", h.HandleTransition)
	g.GET("/episodes/:id/transitions/check", h.HandleCheck)
	g.GET("/workflow/transitions", h.HandleWorkflow)
}

// createRequest is the JSON body for POST /episodes.
type createRequest struct {
	PatientID   string   `json:"patient_id"`
	Reason      string   `json:"reason"`
	Tags        []string `json:"tags"`
	ActorUserID string   `json:"actor_user_id"`
}

// HandleCreate handles POST /episodes.
func (h *Handler) HandleCreate(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	e, err := h.svc.CreateEpisode(c.Request().Context(), patientID, req.Reason, req.Tags, req.ActorUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

// HandleGet handles GET /episodes/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid episode id")
	}
	e, err := h.svc.GetEpisode(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "episode not found")
	}
	return c.JSON(http.StatusOK, e)
}

// HandleList handles GET /episodes?patient_id=... or ?state=...
func (h *Handler) HandleList(c echo.Context) error {
	p := pagination.FromContext(c)
	ctx := c.Request().Context()

	if pid := c.QueryParam("patient_id"); pid != "" {
		patientID, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(ctx, patientID, p.Limit, p.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
	}

	if st := c.QueryParam("state"); st != "" {
		items, total, err := h.svc.ListByState(ctx, State(st), p.Limit, p.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
	}

	return echo.NewHTTPError(http.StatusBadRequest, "patient_id or state query parameter is required")
}

// transitionRequest is the JSON body for POST /episodes/:id/transitions.
type transitionRequest struct {
	Trigger     string       `json:"trigger"`
	Context     GuardContext `json:"context"`
	ActorUserID string       `json:"actor_user_id"`
}

// HandleTransition handles POST /episodes/:id/transitions.
func (h *Handler) HandleTransition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid episode id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Trigger == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trigger is required")
	}

	e, err := h.svc.ApplyTransition(c.Request().Context(), id, req.Trigger, req.Context, req.ActorUserID)
	if err != nil {
		var rej *RejectedError
		switch {
		case errors.As(err, &rej):
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"error":     "transition_rejected",
				"rejection": rej.Rejection,
			})
		case errors.Is(err, ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, ErrConflict.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, e)
}

// HandleCheck handles GET /episodes/:id/transitions/check?trigger=... It is
// the read-only pre-flight used by forms to disable illegal actions.
func (h *Handler) HandleCheck(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid episode id")
	}
	trigger := c.QueryParam("trigger")
	if trigger == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trigger query parameter is required")
	}

	var gctx GuardContext
	// Guard booleans arrive as query parameters ("true"/"1").
	gctx.HasBaseConsent = queryBool(c, "hasBaseConsent")
	gctx.HasSpecificConsent = queryBool(c, "hasSpecificConsent")
	gctx.AppointmentConfirmed = queryBool(c, "appointmentConfirmed")
	gctx.TreatmentControlRecorded = queryBool(c, "treatmentControlRecorded")
	gctx.DischargeChecklistReady = queryBool(c, "dischargeChecklistReady")
	gctx.RecallScheduled = queryBool(c, "recallScheduled")
	gctx.QuoteStatus = QuoteStatus(c.QueryParam("quoteStatus"))

	ok, desc, err := h.svc.CanApply(c.Request().Context(), id, trigger, gctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "episode not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"allowed":     ok,
		"description": desc,
	})
}

// HandleWorkflow handles GET /workflow/transitions: the static legal
// transition graph, for auditing and UI display.
func (h *Handler) HandleWorkflow(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"states":      States(),
		"transitions": Transitions(),
	})
}

func queryBool(c echo.Context, name string) bool {
	v := c.QueryParam(name)
	return v == "true" || v == "1"
}
