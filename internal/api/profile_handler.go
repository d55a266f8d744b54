package api

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// ProfileRequest is the body of PUT /profile. Enum fields accept display
// ("Build Muscle") or kebab ("build-muscle") spelling.
type ProfileRequest struct {
	FullName          string   `json:"fullName" binding:"required"`
	Age               int      `json:"age" binding:"required"`
	Gender            string   `json:"gender" binding:"required"`
	Weight            float64  `json:"weight" binding:"required"`
	Height            float64  `json:"height" binding:"required"`
	BodyFatPercentage *float64 `json:"bodyFatPercentage"`
	Goal              string   `json:"goal" binding:"required"`
	ActivityLevel     string   `json:"activityLevel" binding:"required"`
	WorkoutDays       int      `json:"workoutDays" binding:"required"`
	PreferredTime     string   `json:"preferredTime" binding:"required"`
	DietPreference    string   `json:"dietPreference"`
	Injuries          string   `json:"injuries"`
	Sports            string   `json:"sports"`
	IsAthlete         bool     `json:"isAthlete"`
}

func (r ProfileRequest) toDomain() *domain.Profile {
	return &domain.Profile{
		FullName:          r.FullName,
		Age:               r.Age,
		Gender:            domain.Gender(r.Gender),
		Weight:            r.Weight,
		Height:            r.Height,
		BodyFatPercentage: r.BodyFatPercentage,
		Goal:              domain.FitnessGoal(r.Goal),
		ActivityLevel:     domain.ActivityLevel(r.ActivityLevel),
		WorkoutDays:       r.WorkoutDays,
		PreferredTime:     domain.PreferredTime(r.PreferredTime),
		DietPreference:    r.DietPreference,
		Injuries:          r.Injuries,
		Sports:            r.Sports,
		IsAthlete:         r.IsAthlete,
	}
}

// GetProfile godoc
// @Summary Get my fitness profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Profile
// @Failure 404 {object} gin.H "Profile not set up yet"
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error(), "next": nextProfileSetup})
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve profile.")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile godoc
// @Summary Create or replace my fitness profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body ProfileRequest true "Profile"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} gin.H "Validation error"
// @Router /profile [put]
func (h *ProfileHandler) PutProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	profile, err := h.profileService.SetupProfile(c.Request.Context(), userID, req.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProfile) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to save profile.")
		return
	}
	c.JSON(http.StatusOK, profile)
}
