// internal/domain/profile.go
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type FitnessGoal string

const (
	GoalLoseWeight       FitnessGoal = "Lose Weight"
	GoalBuildMuscle      FitnessGoal = "Build Muscle"
	GoalImproveEndurance FitnessGoal = "Improve Endurance"
)

type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "Sedentary"
	ActivityLightlyActive    ActivityLevel = "Lightly Active"
	ActivityModeratelyActive ActivityLevel = "Moderately Active"
	ActivityVeryActive       ActivityLevel = "Very Active"
)

type PreferredTime string

const (
	TimeMorning   PreferredTime = "Morning"
	TimeAfternoon PreferredTime = "Afternoon"
	TimeEvening   PreferredTime = "Evening"
)

// DefaultInjuries is stored when the user reports no injuries.
const DefaultInjuries = "none"

var ErrInvalidProfile = errors.New("invalid profile")

// Profile holds a user's demographic and goal attributes. UserID is the
// document key and never changes once the profile exists.
type Profile struct {
	UserID            primitive.ObjectID `bson:"_id" json:"id"`
	FullName          string             `bson:"fullName" json:"fullName"`
	Age               int                `bson:"age" json:"age"`
	Gender            Gender             `bson:"gender" json:"gender"`
	Weight            float64            `bson:"weight" json:"weight"` // kg
	Height            float64            `bson:"height" json:"height"` // cm
	BodyFatPercentage *float64           `bson:"bodyFatPercentage,omitempty" json:"bodyFatPercentage,omitempty"`
	Goal              FitnessGoal        `bson:"goal" json:"goal"`
	ActivityLevel     ActivityLevel      `bson:"activityLevel" json:"activityLevel"`
	WorkoutDays       int                `bson:"workoutDays" json:"workoutDays"`
	PreferredTime     PreferredTime      `bson:"preferredTime" json:"preferredTime"`
	DietPreference    string             `bson:"dietPreference,omitempty" json:"dietPreference,omitempty"`
	Injuries          string             `bson:"injuries" json:"injuries"`
	Sports            string             `bson:"sports,omitempty" json:"sports,omitempty"`
	IsAthlete         bool               `bson:"isAthlete" json:"isAthlete"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

var (
	genders        = []Gender{GenderMale, GenderFemale, GenderOther}
	goals          = []FitnessGoal{GoalLoseWeight, GoalBuildMuscle, GoalImproveEndurance}
	activityLevels = []ActivityLevel{ActivitySedentary, ActivityLightlyActive, ActivityModeratelyActive, ActivityVeryActive}
	preferredTimes = []PreferredTime{TimeMorning, TimeAfternoon, TimeEvening}
)

// enumKey folds "Build Muscle", "build-muscle" and "BUILD_MUSCLE" to one key.
func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

func matchEnum[T ~string](raw string, allowed []T) (T, bool) {
	key := enumKey(raw)
	for _, v := range allowed {
		if enumKey(string(v)) == key {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Normalize rewrites enum fields to their canonical spelling and fills
// defaults. It returns ErrInvalidProfile (wrapped) on the first bad field.
func (p *Profile) Normalize() error {
	var ok bool
	p.FullName = strings.TrimSpace(p.FullName)

	if p.Gender, ok = matchEnum(string(p.Gender), genders); !ok {
		return fmt.Errorf("%w: gender must be one of Male, Female, Other", ErrInvalidProfile)
	}
	if p.Goal, ok = matchEnum(string(p.Goal), goals); !ok {
		return fmt.Errorf("%w: goal must be one of Lose Weight, Build Muscle, Improve Endurance", ErrInvalidProfile)
	}
	if p.ActivityLevel, ok = matchEnum(string(p.ActivityLevel), activityLevels); !ok {
		return fmt.Errorf("%w: activity level must be one of Sedentary, Lightly Active, Moderately Active, Very Active", ErrInvalidProfile)
	}
	if p.PreferredTime, ok = matchEnum(string(p.PreferredTime), preferredTimes); !ok {
		return fmt.Errorf("%w: preferred time must be one of Morning, Afternoon, Evening", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Injuries) == "" {
		p.Injuries = DefaultInjuries
	}
	return p.Validate()
}

// Validate checks the numeric ranges and required fields.
func (p *Profile) Validate() error {
	switch {
	case p.FullName == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidProfile)
	case p.Age < 1 || p.Age > 120:
		return fmt.Errorf("%w: age must be between 1 and 120", ErrInvalidProfile)
	case p.Weight <= 0 || p.Weight > 300:
		return fmt.Errorf("%w: weight must be greater than 0 and at most 300 kg", ErrInvalidProfile)
	case p.Height <= 0 || p.Height > 250:
		return fmt.Errorf("%w: height must be greater than 0 and at most 250 cm", ErrInvalidProfile)
	case p.BodyFatPercentage != nil && (*p.BodyFatPercentage < 0 || *p.BodyFatPercentage > 100):
		return fmt.Errorf("%w: body fat percentage must be between 0 and 100", ErrInvalidProfile)
	case p.WorkoutDays < 1 || p.WorkoutDays > 7:
		return fmt.Errorf("%w: workout days must be between 1 and 7", ErrInvalidProfile)
	}
	return nil
}
