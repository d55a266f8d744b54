package service

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/oracle"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/session"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrEmptyInput         = errors.New("message is empty")
	ErrSessionNotFound    = errors.New("no consultation in progress")
	ErrTurnInProgress     = errors.New("previous message is still being answered")
	ErrFinalizeGateClosed = fmt.Errorf("consultation needs at least %d messages before a plan can be generated", domain.FinalizeThreshold)
	ErrEmptyContext       = errors.New("conversation context is required")
)

// ConsultationService drives a consultation from the opening exchange to a
// generated plan. Turns of one user are strictly sequential; concurrent calls
// for the same user fail with ErrTurnInProgress instead of queueing.
type ConsultationService interface {
	// Start opens a new consultation for userID, replacing any in-flight one.
	// A failed opening exchange still returns the session together with
	// ErrOracleUnavailable.
	Start(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error)
	// HandleTurn appends text and the coach's reply. Blank text returns the
	// unchanged session with ErrEmptyInput.
	HandleTurn(ctx context.Context, userID primitive.ObjectID, text string) (*domain.Session, error)
	Snapshot(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error)
	// Finalize generates a plan from the transcript. On success the session
	// is discarded and returned in state PlanReady.
	Finalize(ctx context.Context, userID primitive.ObjectID) (*domain.Session, *domain.Plan, error)
	Abandon(ctx context.Context, userID primitive.ObjectID) error
	// Reply answers one stateless context summary. It shares the oracle path
	// and reply filter with HandleTurn.
	Reply(ctx context.Context, contextSummary string) (string, error)
}

// ConsultationOptions tunes a ConsultationService. Zero values are usable.
type ConsultationOptions struct {
	OracleTimeout time.Duration
	ReplyFilter   ReplyFilter // defaults to CannedFollowUpFilter
}

type consultationService struct {
	oracle      oracle.Oracle
	profileRepo repository.ProfileRepository
	sessions    session.Store
	plans       PlanService
	log         *logger.Logger
	metrics     *metrics.Metrics
	opts        ConsultationOptions
}

func NewConsultationService(
	o oracle.Oracle,
	profileRepo repository.ProfileRepository,
	sessions session.Store,
	plans PlanService,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ConsultationOptions,
) ConsultationService {
	if opts.ReplyFilter == nil {
		opts.ReplyFilter = CannedFollowUpFilter
	}
	return &consultationService{
		oracle:      o,
		profileRepo: profileRepo,
		sessions:    sessions,
		plans:       plans,
		log:         log.With("service", "ConsultationService"),
		metrics:     m,
		opts:        opts,
	}
}

func (s *consultationService) Start(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProfileMissing
		}
		return nil, err
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, prevErr := s.sessions.Get(ctx, userID)
	replacing := prevErr == nil

	sess, err := domain.StartSession(profile)
	if err != nil {
		return nil, err
	}
	// Opening exchange: the priming message goes through the same path as a turn.
	turnErr := s.exchange(ctx, sess, true)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	if replacing {
		s.metrics.SessionEnded("replaced")
	}
	s.metrics.SessionStarted()
	s.log.Info("consultation started", "userId", userID.Hex(), "replaced", replacing)
	return sess, turnErr
}

func (s *consultationService) HandleTurn(ctx context.Context, userID primitive.ObjectID, text string) (*domain.Session, error) {
	if strings.TrimSpace(text) == "" {
		sess, err := s.Snapshot(ctx, userID)
		if err != nil {
			return nil, err
		}
		return sess, ErrEmptyInput
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess.AppendUser(text)
	turnErr := s.exchange(ctx, sess, false)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, turnErr
}

func (s *consultationService) Snapshot(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error) {
	return s.load(ctx, userID)
}

func (s *consultationService) Finalize(ctx context.Context, userID primitive.ObjectID) (*domain.Session, *domain.Plan, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !sess.CanFinalize() {
		return sess, nil, ErrFinalizeGateClosed
	}

	sess.State = domain.StateFinalizing
	plan, genErr := s.plans.Generate(ctx, GenerateInput{
		UserID:       userID,
		Profile:      sess.Profile,
		Consultation: sess.Snapshot(),
	})

	// A plan that failed to persist is still shown to the user.
	if genErr != nil && !errors.Is(genErr, ErrPersistence) {
		sess.AppendAssistant(PlanFailedMessage)
		sess.State = domain.StateConsulting
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, nil, err
		}
		return sess, nil, genErr
	}

	sess.AppendAssistant(PlanReadyMessage)
	sess.State = domain.StatePlanReady
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Warn("failed to discard finished consultation", "userId", userID.Hex(), "error", err)
	}
	s.metrics.SessionEnded("plan_ready")
	return sess, plan, genErr
}

func (s *consultationService) Abandon(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return err
	}
	s.metrics.SessionEnded("abandoned")
	return nil
}

func (s *consultationService) Reply(ctx context.Context, contextSummary string) (string, error) {
	if strings.TrimSpace(contextSummary) == "" {
		return "", ErrEmptyContext
	}
	return s.ask(ctx, contextSummary)
}

// exchange sends the session context to the oracle and appends the reply,
// or the apology when the oracle fails. State stays Consulting either way.
// The opening exchange is counted apart from user turns.
func (s *consultationService) exchange(ctx context.Context, sess *domain.Session, opening bool) error {
	okLabel, errLabel := "ok", "oracle_error"
	if opening {
		okLabel, errLabel = "opening_ok", "opening_error"
	}
	reply, err := s.ask(ctx, sess.Context())
	if err != nil {
		s.log.Warn("consultation exchange failed", "userId", sess.UserID.Hex(), "opening", opening, "error", err)
		s.metrics.ObserveTurn(errLabel)
		sess.AppendAssistant(ApologyMessage)
		return err
	}
	s.metrics.ObserveTurn(okLabel)
	sess.AppendAssistant(reply)
	return nil
}

// ask performs one bounded oracle call and applies the reply filter.
func (s *consultationService) ask(ctx context.Context, contextSummary string) (string, error) {
	callCtx, cancel := withOptionalTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.oracle.Complete(callCtx, consultationMessages(contextSummary))
	if err != nil {
		s.metrics.ObserveOracleCall("consultation", "error", time.Since(start))
		return "", fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	raw, ok := resp.FirstReply()
	if !ok {
		s.metrics.ObserveOracleCall("consultation", "empty", time.Since(start))
		return "", fmt.Errorf("%w: reply had no choices", ErrOracleUnavailable)
	}
	s.metrics.ObserveOracleCall("consultation", "ok", time.Since(start))
	return s.opts.ReplyFilter.Filter(raw), nil
}

func (s *consultationService) load(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *consultationService) lock(ctx context.Context, userID primitive.ObjectID) (func(), error) {
	unlock, err := s.sessions.Lock(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			return nil, ErrTurnInProgress
		}
		return nil, err
	}
	return unlock, nil
}
