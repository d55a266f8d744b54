// internal/domain/plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanDateLayout is the key format of Plan.PlanDate.
const PlanDateLayout = "2006-01-02"

// Plan is a generated workout plan. Rows are append-only: a new generation for
// the same (user, date) adds a row and the newest one becomes canonical.
type Plan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	PlanDate    string             `bson:"planDate" json:"planDate"`                       // YYYY-MM-DD
	PlanDetails string             `bson:"planDetails" json:"planDetails"`                 // Opaque oracle output, newline-delimited
	YouTubeID   string             `bson:"youtubeId,omitempty" json:"youtubeId,omitempty"` // Optional linked video
	ArchiveKey  string             `bson:"archiveKey,omitempty" json:"-"`                  // Object key in the plan archive bucket
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// PlanDateFor formats t as a plan date key in loc. A nil loc means UTC.
func PlanDateFor(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(PlanDateLayout)
}

// ValidPlanDate reports whether s is a well-formed plan date key.
func ValidPlanDate(s string) bool {
	_, err := time.Parse(PlanDateLayout, s)
	return err == nil
}
