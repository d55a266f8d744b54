// Package session keeps in-flight consultations. Sessions are ephemeral: they
// expire after a TTL and are never written to the primary database.
package session

import (
	"alcyxob/fitness-coach/internal/domain"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrLocked   = errors.New("a turn is already in progress for this session")
)

// Store holds at most one session per user.
type Store interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
	// Lock claims the user's session for one turn. It fails fast with
	// ErrLocked instead of waiting; the returned func releases the claim.
	Lock(ctx context.Context, userID primitive.ObjectID) (unlock func(), err error)
}
