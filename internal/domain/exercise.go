// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is an entry of the read-only exercise catalog.
type Exercise struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	MuscleGroup      string             `bson:"muscleGroup" json:"muscleGroup"` // e.g., "Chest", "Legs", "Back"
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	ExecutionTechnic string             `bson:"executionTechnic,omitempty" json:"executionTechnic,omitempty"`
	Difficulty       string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"` // e.g., "Novice", "Medium", "Advanced"
	YouTubeID        string             `bson:"youtubeId,omitempty" json:"youtubeId,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}
