package service

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
	"context"
	"errors"
	"strings"
)

var ErrMuscleGroupRequired = errors.New("muscle group is required")

type ExerciseService interface {
	GetExercisesByMuscleGroup(ctx context.Context, muscleGroup string) ([]domain.Exercise, error)
}

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{exerciseRepo: exerciseRepo}
}

// GetExercisesByMuscleGroup looks up the static catalog. An unknown group
// yields an empty slice, not an error.
func (s *exerciseService) GetExercisesByMuscleGroup(ctx context.Context, muscleGroup string) ([]domain.Exercise, error) {
	muscleGroup = strings.TrimSpace(muscleGroup)
	if muscleGroup == "" {
		return nil, ErrMuscleGroupRequired
	}
	exercises, err := s.exerciseRepo.GetByMuscleGroup(ctx, muscleGroup)
	if err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	return exercises, nil
}
