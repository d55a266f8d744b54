package repository

import (
	"alcyxob/fitness-coach/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ProfileRepository stores one profile per user. Profiles are replaced
// whole, never patched.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// PlanRepository is an append-only store of generated plans.
type PlanRepository interface {
	Insert(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	// GetByDate returns the most recently created plan for (userID, date).
	GetByDate(ctx context.Context, userID primitive.ObjectID, date string) (*domain.Plan, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error)
}

// ExerciseRepository is a read-only view of the exercise catalog.
type ExerciseRepository interface {
	GetByMuscleGroup(ctx context.Context, muscleGroup string) ([]domain.Exercise, error)
}
