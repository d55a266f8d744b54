package api

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	MuscleGroup      string `json:"muscleGroup"`
	Description      string `json:"description,omitempty"`
	ExecutionTechnic string `json:"executionTechnic,omitempty"`
	Difficulty       string `json:"difficulty,omitempty"`
	YouTubeID        string `json:"youtubeId,omitempty"`
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	return ExerciseResponse{
		ID:               ex.ID.Hex(),
		Name:             ex.Name,
		MuscleGroup:      ex.MuscleGroup,
		Description:      ex.Description,
		ExecutionTechnic: ex.ExecutionTechnic,
		Difficulty:       ex.Difficulty,
		YouTubeID:        ex.YouTubeID,
	}
}

// MapExercisesToResponse converts a slice of domain.Exercise to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i := range exercises {
		responses[i] = MapExerciseToResponse(&exercises[i])
	}
	return responses
}

// GetExercises godoc
// @Summary List catalog exercises for a muscle group
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param muscleGroup query string true "Muscle group, case-insensitive"
// @Success 200 {array} ExerciseResponse "List of exercises"
// @Failure 400 {object} gin.H "Missing muscle group"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /exercises [get]
func (h *ExerciseHandler) GetExercises(c *gin.Context) {
	exercises, err := h.exerciseService.GetExercisesByMuscleGroup(c.Request.Context(), c.Query("muscleGroup"))
	if err != nil {
		if errors.Is(err, service.ErrMuscleGroupRequired) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercises.")
		return
	}
	c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
}
