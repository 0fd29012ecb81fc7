package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
)

// GeneratePlan runs the day-plan pipeline for one port of a trip.
func (h *Handler) GeneratePlan(c *gin.Context) {
	var req dayplan.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}
	req.TripID = strings.TrimSpace(req.TripID)
	req.PortID = strings.TrimSpace(req.PortID)
	if req.TripID == "" || req.PortID == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_input", "trip_id and port_id are required", nil))
		return
	}

	res := h.plans.Generate(c.Request.Context(), dayplan.RequestContext{
		TripID:      req.TripID,
		PortID:      req.PortID,
		OwnerID:     mustOwner(c),
		Preferences: req.Preferences,
	})
	if !res.OK() {
		abortWithError(c, failureToHTTP(res.Failure))
		return
	}
	c.JSON(http.StatusOK, res.Plan)
}

// failureToHTTP maps a terminal pipeline failure to its response.
func failureToHTTP(f *dayplan.Failure) *HTTPError {
	if f == nil {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
	switch f.Kind {
	case dayplan.KindContextNotFound:
		return NewHTTPError(http.StatusNotFound, "context_not_found", "trip or port not found", f)
	case dayplan.KindContextUnavailable:
		return NewHTTPError(http.StatusServiceUnavailable, "trip_store_unavailable", "trip data is temporarily unavailable, try again later", f)
	case dayplan.KindLLMNotConfigured:
		return NewHTTPError(http.StatusServiceUnavailable, "ai_service_not_configured",
			"AI service is not configured; set the provider API key (GROQ_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY)", f)
	case dayplan.KindQuotaExceeded:
		httpErr := NewHTTPError(http.StatusServiceUnavailable, "ai_service_quota_exceeded", "AI service quota exceeded, try again later", f)
		httpErr.RetryAfter = int(f.RetryAfter.Seconds())
		return httpErr
	case dayplan.KindAuthenticationFailed:
		return NewHTTPError(http.StatusServiceUnavailable, "ai_service_auth_failed", "AI service rejected the configured credentials", f)
	case dayplan.KindPersistenceFailure:
		return NewHTTPError(http.StatusInternalServerError, "plan_not_saved", "the plan was generated but could not be saved", f)
	default:
		message := "AI service is temporarily unavailable"
		if f.Detail != "" && f.Detail != message {
			message += ": " + f.Detail
		}
		return NewHTTPError(http.StatusServiceUnavailable, "ai_service_unavailable", message, f)
	}
}

// ListPlans returns the device's plans, optionally for one trip or port.
func (h *Handler) ListPlans(c *gin.Context) {
	filter := dayplan.ListFilter{
		TripID: strings.TrimSpace(c.Query("trip_id")),
		PortID: strings.TrimSpace(c.Query("port_id")),
	}
	plans, err := h.plans.ListPlans(c.Request.Context(), mustOwner(c), filter)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.plans.GetPlan(c.Request.Context(), c.Param("planId"), mustOwner(c))
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) DeletePlan(c *gin.Context) {
	if err := h.plans.DeletePlan(c.Request.Context(), c.Param("planId"), mustOwner(c)); err != nil {
		abortWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
