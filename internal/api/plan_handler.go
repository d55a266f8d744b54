package api

import (
	"alcyxob/fitness-coach/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// ListPlans godoc
// @Summary List my workout plans, newest date first
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanResponse
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	plans, err := h.planService.ListPlans(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve workout plans.")
		return
	}
	resp := make([]PlanResponse, len(plans))
	for i := range plans {
		resp[i] = MapPlanToResponse(&plans[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetPlanByDate godoc
// @Summary Get my workout plan for a date
// @Description When several plans exist for the date the most recent one is returned.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param date path string true "YYYY-MM-DD"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} gin.H "Malformed date"
// @Failure 404 {object} gin.H "No plan for that date"
// @Router /plans/{date} [get]
func (h *PlanHandler) GetPlanByDate(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	plan, err := h.planService.GetPlanByDate(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		abortForPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// DownloadPlan godoc
// @Summary Get a temporary download link for the archived plan text
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param date path string true "YYYY-MM-DD"
// @Success 200 {object} gin.H "{url}"
// @Failure 404 {object} gin.H "No archived plan for that date"
// @Failure 501 {object} gin.H "Archive not configured"
// @Router /plans/{date}/download [get]
func (h *PlanHandler) DownloadPlan(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	url, err := h.planService.PlanDownloadURL(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		abortForPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func abortForPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlanDate):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrNotArchived):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrArchiveDisabled):
		abortWithError(c, http.StatusNotImplemented, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve workout plan.")
	}
}
