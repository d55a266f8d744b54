package service

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/oracle"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrOracleUnavailable = errors.New("the coach is unavailable right now")
	ErrEmptyGeneration   = errors.New("no workout plan was generated")
	ErrPersistence       = errors.New("workout plan could not be saved")
	ErrPlanNotFound      = errors.New("workout plan not found")
	ErrInvalidPlanDate   = errors.New("plan date must be formatted as YYYY-MM-DD")
	ErrArchiveDisabled   = errors.New("plan archive is not configured")
	ErrNotArchived       = errors.New("workout plan has no archived copy")
)

const planArchiveContentType = "text/plain; charset=utf-8"

// GenerateInput is everything plan generation needs. Profile and
// Consultation are embedded in the prompt as JSON, so a Consultation may be
// a transcript ([]domain.Message) or a pre-rendered string.
type GenerateInput struct {
	// UserID owns the plan. NilObjectID generates without persisting.
	UserID       primitive.ObjectID
	Profile      any
	Consultation any
}

type PlanService interface {
	// Generate runs one oracle call and stores the result. On ErrPersistence
	// the returned plan is still valid for display.
	Generate(ctx context.Context, in GenerateInput) (*domain.Plan, error)
	GetPlanByDate(ctx context.Context, userID primitive.ObjectID, date string) (*domain.Plan, error)
	ListPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error)
	PlanDownloadURL(ctx context.Context, userID primitive.ObjectID, date string) (string, error)
}

// PlanOptions tunes a PlanService. Zero values are usable.
type PlanOptions struct {
	OracleTimeout time.Duration
	Location      *time.Location // Time zone that decides "today"
	PresignExpiry time.Duration
}

type planService struct {
	oracle   oracle.Oracle
	planRepo repository.PlanRepository
	archive  storage.FileStorage // nil when archiving is disabled
	log      *logger.Logger
	metrics  *metrics.Metrics
	opts     PlanOptions
	now      func() time.Time
}

// NewPlanService creates the plan generator. archive may be nil.
func NewPlanService(
	o oracle.Oracle,
	planRepo repository.PlanRepository,
	archive storage.FileStorage,
	log *logger.Logger,
	m *metrics.Metrics,
	opts PlanOptions,
) PlanService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &planService{
		oracle:   o,
		planRepo: planRepo,
		archive:  archive,
		log:      log.With("service", "PlanService"),
		metrics:  m,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *planService) Generate(ctx context.Context, in GenerateInput) (*domain.Plan, error) {
	profileJSON, err := json.Marshal(in.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	consultationJSON, err := json.Marshal(in.Consultation)
	if err != nil {
		return nil, fmt.Errorf("encode consultation: %w", err)
	}

	callCtx, cancel := withOptionalTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.oracle.Complete(callCtx, planMessages(profileJSON, consultationJSON))
	if err != nil {
		s.metrics.ObserveOracleCall("plan", "error", time.Since(start))
		s.log.Error("plan generation failed", "userId", in.UserID.Hex(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	text, ok := resp.FirstReply()
	if !ok {
		s.metrics.ObserveOracleCall("plan", "empty", time.Since(start))
		s.log.Warn("plan generation returned no choices", "userId", in.UserID.Hex())
		return nil, ErrEmptyGeneration
	}
	s.metrics.ObserveOracleCall("plan", "ok", time.Since(start))

	now := s.now()
	plan := &domain.Plan{
		UserID:      in.UserID,
		PlanDate:    domain.PlanDateFor(now, s.opts.Location),
		PlanDetails: text,
		CreatedAt:   now.UTC(),
	}

	if in.UserID == primitive.NilObjectID {
		s.metrics.ObservePlan("anonymous")
		return plan, nil
	}

	s.archivePlan(ctx, plan)

	id, err := s.planRepo.Insert(ctx, plan)
	if err != nil {
		s.log.Error("failed to persist workout plan", "userId", in.UserID.Hex(), "date", plan.PlanDate, "error", err)
		s.discardArchive(ctx, plan)
		plan.ID = primitive.NilObjectID
		s.metrics.ObservePlan("persist_failed")
		return plan, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	plan.ID = id
	s.metrics.ObservePlan("persisted")
	s.log.Info("workout plan generated", "userId", in.UserID.Hex(), "planId", id.Hex(), "date", plan.PlanDate)
	return plan, nil
}

// archivePlan uploads a text copy of plan. Failures are logged and leave
// ArchiveKey empty.
func (s *planService) archivePlan(ctx context.Context, plan *domain.Plan) {
	if s.archive == nil {
		return
	}
	key := path.Join("plans", plan.UserID.Hex(), plan.PlanDate, uuid.NewString()+".txt")
	if err := s.archive.PutObject(ctx, key, planArchiveContentType, []byte(plan.PlanDetails)); err != nil {
		s.log.Warn("failed to archive workout plan", "userId", plan.UserID.Hex(), "error", err)
		return
	}
	plan.ArchiveKey = key
}

func (s *planService) discardArchive(ctx context.Context, plan *domain.Plan) {
	if s.archive == nil || plan.ArchiveKey == "" {
		return
	}
	if err := s.archive.DeleteObject(ctx, plan.ArchiveKey); err != nil {
		s.log.Warn("failed to delete orphaned plan archive", "key", plan.ArchiveKey, "error", err)
	}
	plan.ArchiveKey = ""
}

func (s *planService) GetPlanByDate(ctx context.Context, userID primitive.ObjectID, date string) (*domain.Plan, error) {
	if !domain.ValidPlanDate(date) {
		return nil, ErrInvalidPlanDate
	}
	plan, err := s.planRepo.GetByDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *planService) ListPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	plans, err := s.planRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	return plans, nil
}

func (s *planService) PlanDownloadURL(ctx context.Context, userID primitive.ObjectID, date string) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	plan, err := s.GetPlanByDate(ctx, userID, date)
	if err != nil {
		return "", err
	}
	if plan.ArchiveKey == "" {
		return "", ErrNotArchived
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, plan.ArchiveKey, s.opts.PresignExpiry)
}

// withOptionalTimeout bounds ctx by d when d is positive.
func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
