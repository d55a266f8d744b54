package api

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Values of the "next" field telling clients which screen to open.
const (
	nextProfileSetup = "profile-setup"
	nextConsultation = "consultation"
)

type ConsultationHandler struct {
	consultations service.ConsultationService
	plans         service.PlanService
	log           *logger.Logger
}

func NewConsultationHandler(consultations service.ConsultationService, plans service.PlanService, log *logger.Logger) *ConsultationHandler {
	return &ConsultationHandler{
		consultations: consultations,
		plans:         plans,
		log:           log.With("handler", "ConsultationHandler"),
	}
}

// --- DTOs ---

type SessionResponse struct {
	State        domain.SessionState `json:"state"`
	Messages     []domain.Message    `json:"messages"`
	MessageCount int                 `json:"messageCount"`
	CanFinalize  bool                `json:"canFinalize"`
	StartedAt    string              `json:"startedAt"`
	Error        string              `json:"error,omitempty"`
}

type PlanResponse struct {
	ID          string `json:"id,omitempty"`
	PlanDate    string `json:"planDate"`
	PlanDetails string `json:"planDetails"`
	YouTubeID   string `json:"youtubeId,omitempty"`
	Archived    bool   `json:"archived"`
	CreatedAt   string `json:"createdAt"`
}

type TurnRequest struct {
	Text string `json:"text"`
}

type FinalizeResponse struct {
	Session   SessionResponse `json:"session"`
	Plan      PlanResponse    `json:"plan"`
	Persisted bool            `json:"persisted"`
	Warning   string          `json:"warning,omitempty"`
}

// MapSessionToResponse converts a session snapshot to its DTO.
func MapSessionToResponse(s *domain.Session) SessionResponse {
	if s == nil {
		return SessionResponse{Messages: []domain.Message{}}
	}
	msgs := s.Snapshot()
	return SessionResponse{
		State:        s.State,
		Messages:     msgs,
		MessageCount: len(msgs),
		CanFinalize:  s.CanFinalize(),
		StartedAt:    s.StartedAt.Format(time.RFC3339),
	}
}

// MapPlanToResponse converts a domain.Plan to PlanResponse DTO.
func MapPlanToResponse(p *domain.Plan) PlanResponse {
	if p == nil {
		return PlanResponse{}
	}
	resp := PlanResponse{
		PlanDate:    p.PlanDate,
		PlanDetails: p.PlanDetails,
		YouTubeID:   p.YouTubeID,
		Archived:    p.ArchiveKey != "",
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if !p.ID.IsZero() {
		resp.ID = p.ID.Hex()
	}
	return resp
}

// --- Session endpoints ---

// StartSession godoc
// @Summary Start a consultation
// @Description Opens a consultation from the stored profile and runs the opening exchange. Any in-flight consultation is replaced.
// @Tags Consultation
// @Produce json
// @Security BearerAuth
// @Success 201 {object} SessionResponse
// @Failure 400 {object} gin.H "Profile missing"
// @Failure 409 {object} gin.H "Turn in progress"
// @Router /consultation/session [post]
func (h *ConsultationHandler) StartSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	sess, err := h.consultations.Start(c.Request.Context(), userID)
	if err != nil && sess == nil {
		h.abortForSessionError(c, err)
		return
	}
	resp := MapSessionToResponse(sess)
	if err != nil {
		resp.Error = service.ErrOracleUnavailable.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSession godoc
// @Summary Get the current consultation
// @Tags Consultation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 404 {object} gin.H "No consultation in progress"
// @Router /consultation/session [get]
func (h *ConsultationHandler) GetSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	sess, err := h.consultations.Snapshot(c.Request.Context(), userID)
	if err != nil {
		h.abortForSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(sess))
}

// PostTurn godoc
// @Summary Send one user message
// @Description Appends the message and the coach's reply. Blank text leaves the consultation unchanged. When the coach is unavailable the apology is appended and error is set.
// @Tags Consultation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param turn body TurnRequest true "User message"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} gin.H "No consultation in progress"
// @Failure 409 {object} gin.H "Previous message still being answered"
// @Router /consultation/session/turns [post]
func (h *ConsultationHandler) PostTurn(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	sess, err := h.consultations.HandleTurn(c.Request.Context(), userID, req.Text)
	switch {
	case err == nil, errors.Is(err, service.ErrEmptyInput):
		c.JSON(http.StatusOK, MapSessionToResponse(sess))
	case errors.Is(err, service.ErrOracleUnavailable) && sess != nil:
		resp := MapSessionToResponse(sess)
		resp.Error = service.ErrOracleUnavailable.Error()
		c.JSON(http.StatusOK, resp)
	default:
		h.abortForSessionError(c, err)
	}
}

// FinalizeSession godoc
// @Summary Generate the workout plan
// @Description Requires at least 5 messages. A plan that could not be saved is still returned with persisted=false.
// @Tags Consultation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} FinalizeResponse
// @Failure 404 {object} gin.H "No consultation in progress"
// @Failure 409 {object} gin.H "Not enough messages yet, or a turn is in progress"
// @Failure 500 {object} gin.H "Generation failed"
// @Router /consultation/session/finalize [post]
func (h *ConsultationHandler) FinalizeSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	sess, plan, err := h.consultations.Finalize(c.Request.Context(), userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, FinalizeResponse{Session: MapSessionToResponse(sess), Plan: MapPlanToResponse(plan), Persisted: true})
	case errors.Is(err, service.ErrPersistence) && plan != nil:
		c.JSON(http.StatusOK, FinalizeResponse{
			Session:   MapSessionToResponse(sess),
			Plan:      MapPlanToResponse(plan),
			Persisted: false,
			Warning:   service.ErrPersistence.Error(),
		})
	case errors.Is(err, service.ErrFinalizeGateClosed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "session": MapSessionToResponse(sess)})
	case errors.Is(err, service.ErrOracleUnavailable), errors.Is(err, service.ErrEmptyGeneration):
		h.log.Warn("finalize failed", "userId", userID.Hex(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": service.PlanFailedMessage, "session": MapSessionToResponse(sess)})
	default:
		h.abortForSessionError(c, err)
	}
}

// AbandonSession godoc
// @Summary Discard the current consultation
// @Tags Consultation
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} gin.H "No consultation in progress"
// @Router /consultation/session [delete]
func (h *ConsultationHandler) AbandonSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.consultations.Abandon(c.Request.Context(), userID); err != nil {
		h.abortForSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Stateless endpoints used by the web client ---

type ConsultationRequest struct {
	Profile             json.RawMessage  `json:"profile"`
	ConversationContext string           `json:"conversationContext"`
	Messages            []domain.Message `json:"messages"`
}

type GeneratePlanRequest struct {
	Profile             json.RawMessage `json:"profile"`
	ConsultationResults json.RawMessage `json:"consultationResults"`
}

// Consult godoc
// @Summary Answer one consultation context
// @Description Stateless: the client sends the full conversation context (or its messages) on every call.
// @Tags Consultation
// @Accept json
// @Produce json
// @Param request body ConsultationRequest true "Profile and context"
// @Success 200 {object} gin.H "{reply}"
// @Failure 400 {object} gin.H "Missing profile or context"
// @Failure 500 {object} gin.H "Coach unavailable"
// @Router /consultation [post]
func (h *ConsultationHandler) Consult(c *gin.Context) {
	var req ConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if isJSONEmpty(req.Profile) {
		abortWithError(c, http.StatusBadRequest, "User profile is required.")
		return
	}

	contextSummary := req.ConversationContext
	if strings.TrimSpace(contextSummary) == "" && len(req.Messages) > 0 {
		contextSummary = domain.ProjectContext("", req.Messages)
	}

	reply, err := h.consultations.Reply(c.Request.Context(), contextSummary)
	if err != nil {
		if errors.Is(err, service.ErrEmptyContext) {
			abortWithError(c, http.StatusBadRequest, "Conversation context is required.")
			return
		}
		h.log.Error("error generating coach reply", "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to process consultation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// GenerateWorkoutPlan godoc
// @Summary Generate a workout plan from a finished consultation
// @Description With a valid bearer token the plan is also saved for the caller.
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body GeneratePlanRequest true "Profile and consultation results"
// @Success 200 {object} gin.H "{workoutPlan, persisted}"
// @Failure 400 {object} gin.H "Missing profile or consultation results"
// @Failure 500 {object} gin.H "Generation failed"
// @Router /generate-workout-plan [post]
func (h *ConsultationHandler) GenerateWorkoutPlan(c *gin.Context) {
	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if isJSONEmpty(req.Profile) || isJSONEmpty(req.ConsultationResults) {
		abortWithError(c, http.StatusBadRequest, "Profile and consultation results are required")
		return
	}

	// Anonymous callers get a plan that is never stored.
	userID, _ := getUserIDFromContext(c)

	plan, err := h.plans.Generate(c.Request.Context(), service.GenerateInput{
		UserID:       userID,
		Profile:      req.Profile,
		Consultation: req.ConsultationResults,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"workoutPlan": plan.PlanDetails, "persisted": userID != primitive.NilObjectID})
	case errors.Is(err, service.ErrPersistence) && plan != nil:
		c.JSON(http.StatusOK, gin.H{"workoutPlan": plan.PlanDetails, "persisted": false, "warning": service.ErrPersistence.Error()})
	default:
		h.log.Error("error generating workout plan", "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to generate workout plan")
	}
}

// --- helpers ---

func (h *ConsultationHandler) userID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	return userID, true
}

func (h *ConsultationHandler) abortForSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrProfileMissing):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "next": nextProfileSetup})
	case errors.Is(err, service.ErrSessionNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTurnInProgress), errors.Is(err, service.ErrFinalizeGateClosed):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		h.log.Error("consultation request failed", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// isJSONEmpty reports whether raw is absent, null or an empty string.
func isJSONEmpty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`:
		return true
	}
	return false
}
