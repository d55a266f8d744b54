package api

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/service"
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, email, _ string) (*domain.User, error) {
	if email == "taken@example.com" {
		return nil, service.ErrUserAlreadyExists
	}
	return &domain.User{ID: primitive.NewObjectID(), Email: email}, nil
}

func (stubAuth) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	if password != "correct-horse" {
		return "", nil, service.ErrAuthenticationFailed
	}
	u := &domain.User{ID: primitive.NewObjectID(), Email: email}
	return signToken(u.ID, time.Hour), u, nil
}

type stubProfiles struct {
	profile *domain.Profile
}

func (s *stubProfiles) GetProfile(_ context.Context, _ primitive.ObjectID) (*domain.Profile, error) {
	if s.profile == nil {
		return nil, service.ErrProfileNotFound
	}
	return s.profile, nil
}

func (s *stubProfiles) SetupProfile(_ context.Context, userID primitive.ObjectID, p *domain.Profile) (*domain.Profile, error) {
	p.UserID = userID
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	s.profile = p
	return p, nil
}

// stubConsultations returns whatever its fields say.
type stubConsultations struct {
	sess    *domain.Session
	plan    *domain.Plan
	err     error
	reply   string
	lastCtx string
}

func (s *stubConsultations) Start(context.Context, primitive.ObjectID) (*domain.Session, error) {
	return s.sess, s.err
}

func (s *stubConsultations) HandleTurn(_ context.Context, _ primitive.ObjectID, _ string) (*domain.Session, error) {
	return s.sess, s.err
}

func (s *stubConsultations) Snapshot(context.Context, primitive.ObjectID) (*domain.Session, error) {
	return s.sess, s.err
}

func (s *stubConsultations) Finalize(context.Context, primitive.ObjectID) (*domain.Session, *domain.Plan, error) {
	return s.sess, s.plan, s.err
}

func (s *stubConsultations) Abandon(context.Context, primitive.ObjectID) error {
	return s.err
}

func (s *stubConsultations) Reply(_ context.Context, contextSummary string) (string, error) {
	s.lastCtx = contextSummary
	if contextSummary == "" {
		return "", service.ErrEmptyContext
	}
	return s.reply, s.err
}

type stubPlans struct {
	plan      *domain.Plan
	err       error
	lastInput service.GenerateInput
	url       string
}

func (s *stubPlans) Generate(_ context.Context, in service.GenerateInput) (*domain.Plan, error) {
	s.lastInput = in
	return s.plan, s.err
}

func (s *stubPlans) GetPlanByDate(_ context.Context, _ primitive.ObjectID, date string) (*domain.Plan, error) {
	if !domain.ValidPlanDate(date) {
		return nil, service.ErrInvalidPlanDate
	}
	if s.plan == nil || s.plan.PlanDate != date {
		return nil, service.ErrPlanNotFound
	}
	return s.plan, nil
}

func (s *stubPlans) ListPlans(context.Context, primitive.ObjectID) ([]domain.Plan, error) {
	if s.plan == nil {
		return []domain.Plan{}, nil
	}
	return []domain.Plan{*s.plan}, nil
}

func (s *stubPlans) PlanDownloadURL(context.Context, primitive.ObjectID, string) (string, error) {
	return s.url, s.err
}

type stubExercises struct{}

func (stubExercises) GetExercisesByMuscleGroup(_ context.Context, group string) ([]domain.Exercise, error) {
	if group == "" {
		return nil, service.ErrMuscleGroupRequired
	}
	return []domain.Exercise{{ID: primitive.NewObjectID(), Name: "Squat", MuscleGroup: group}}, nil
}

type testServer struct {
	router        *gin.Engine
	consultations *stubConsultations
	plans         *stubPlans
	profiles      *stubProfiles
	metrics       *metrics.Metrics
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	router, err := NewRouter(nil)
	if err != nil {
		panic(err)
	}
	ts := &testServer{
		router:        router,
		consultations: &stubConsultations{},
		plans:         &stubPlans{},
		profiles:      &stubProfiles{},
		metrics:       metrics.New(),
	}
	SetupRoutes(ts.router, RouterDeps{
		JWTSecret:           testSecret,
		CORSOrigins:         []string{"http://localhost:3000"},
		RateLimitPerMinute:  0,
		AuthService:         stubAuth{},
		ProfileService:      ts.profiles,
		ConsultationService: ts.consultations,
		PlanService:         ts.plans,
		ExerciseService:     stubExercises{},
		Logger:              logger.Nop(),
		Metrics:             ts.metrics,
	})
	return ts
}

func signToken(userID primitive.ObjectID, ttl time.Duration) string {
	now := time.Now()
	claims := &service.JWTClaims{
		UserID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    service.TokenIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		panic(err)
	}
	return token
}

func testSession(n int) *domain.Session {
	s := &domain.Session{
		UserID:    primitive.NewObjectID(),
		State:     domain.StateConsulting,
		Preamble:  "Hi Al",
		StartedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			s.AppendAssistant("question")
		} else {
			s.AppendUser("answer")
		}
	}
	return s
}
