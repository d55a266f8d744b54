package service

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/oracle"
	"alcyxob/fitness-coach/internal/session"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type consultationFixture struct {
	svc      ConsultationService
	oracle   *scriptedOracle
	profiles *fakeProfileRepo
	plans    *fakePlanRepo
	sessions session.Store
	metrics  *metrics.Metrics
	profile  *domain.Profile
}

func newConsultationFixture(replies ...string) *consultationFixture {
	f := &consultationFixture{
		oracle:   &scriptedOracle{replies: replies},
		plans:    &fakePlanRepo{},
		sessions: session.NewMemoryStore(0),
		metrics:  metrics.New(),
		profile:  sampleProfile(),
	}
	f.profiles = newFakeProfileRepo(f.profile)
	planSvc := NewPlanService(f.oracle, f.plans, nil, logger.Nop(), f.metrics, PlanOptions{})
	f.svc = NewConsultationService(f.oracle, f.profiles, f.sessions, planSvc, logger.Nop(), f.metrics, ConsultationOptions{})
	return f
}

func (f *consultationFixture) userID() primitive.ObjectID { return f.profile.UserID }

func TestStartRunsOpeningExchange(t *testing.T) {
	f := newConsultationFixture("Hello Al! How many days can you train?")

	sess, err := f.svc.Start(context.Background(), f.userID())
	require.NoError(t, err)
	assert.Equal(t, domain.StateConsulting, sess.State)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, domain.AssistantMessage("Hello Al! How many days can you train?"), sess.Messages[0])

	req := f.oracle.lastRequest()
	require.Len(t, req, 2)
	assert.Equal(t, domain.SystemMessage(CoachInstruction), req[0])
	assert.Equal(t, domain.UserMessage(domain.PrimingMessage(f.profile)), req[1])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConsultationsStartedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConsultationTurnsTotal.WithLabelValues("opening_ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ConsultationTurnsTotal.WithLabelValues("ok")))
}

func TestStartWithoutProfile(t *testing.T) {
	f := newConsultationFixture()

	sess, err := f.svc.Start(context.Background(), primitive.NewObjectID())
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, domain.ErrProfileMissing)
	assert.Zero(t, f.oracle.calls())
}

func TestStartOracleFailureKeepsSession(t *testing.T) {
	f := newConsultationFixture()
	f.oracle.err = errors.New("connection refused")

	sess, err := f.svc.Start(context.Background(), f.userID())
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	require.NotNil(t, sess)
	assert.Equal(t, []domain.Message{domain.AssistantMessage(ApologyMessage)}, sess.Messages)

	stored, err := f.svc.Snapshot(context.Background(), f.userID())
	require.NoError(t, err)
	assert.Equal(t, domain.StateConsulting, stored.State)

	turns := f.metrics.ConsultationTurnsTotal
	assert.Equal(t, 1.0, testutil.ToFloat64(turns.WithLabelValues("opening_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(turns.WithLabelValues("oracle_error")), "opening is not a user turn")
}

func TestStartAfterExpiryCountsNewConsultation(t *testing.T) {
	p := sampleProfile()
	m := metrics.New()
	sessions := session.NewMemoryStore(5 * time.Millisecond)
	svc := NewConsultationService(&scriptedOracle{}, newFakeProfileRepo(p), sessions, nil, logger.Nop(), m, ConsultationOptions{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Start(ctx, p.UserID)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	_, err := svc.Snapshot(ctx, p.UserID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConsultationsStartedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConsultationsEndedTotal.WithLabelValues("replaced")), "expired sessions are not replaced")
}

func TestStartReplacesInFlightSession(t *testing.T) {
	f := newConsultationFixture("first", "reply", "second")
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	_, err = f.svc.HandleTurn(ctx, f.userID(), "3 days")
	require.NoError(t, err)

	sess, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{domain.AssistantMessage("second")}, sess.Messages)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ConsultationsStartedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConsultationsEndedTotal.WithLabelValues("replaced")))
}

func TestHandleTurnGrowsTranscriptByTwo(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)

	for n := 1; n <= 4; n++ {
		sess, err := f.svc.HandleTurn(ctx, f.userID(), fmt.Sprintf("answer %d", n))
		require.NoError(t, err)
		assert.Len(t, sess.Messages, 1+2*n)
		assert.Equal(t, domain.UserMessage(fmt.Sprintf("answer %d", n)), sess.Messages[2*n-1])
		assert.Equal(t, domain.MessageRoleAssistant, sess.Messages[2*n].Role)
	}
}

func TestHandleTurnSendsProjectedContext(t *testing.T) {
	f := newConsultationFixture("How many days?", "Nice, any injuries?")
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	sess, err := f.svc.HandleTurn(ctx, f.userID(), "4 days")
	require.NoError(t, err)

	want := domain.PrimingMessage(f.profile) + "\nAI: How many days?\nUser: 4 days"
	assert.Equal(t, domain.UserMessage(want), f.oracle.lastRequest()[1])
	assert.Equal(t, want+"\nAI: Nice, any injuries?", sess.Context())
}

func TestHandleTurnBlankInputIsNoOp(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	calls := f.oracle.calls()

	for _, in := range []string{"", "   ", "\n\t"} {
		sess, err := f.svc.HandleTurn(ctx, f.userID(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
		require.NotNil(t, sess)
		assert.Len(t, sess.Messages, 1)
	}
	assert.Equal(t, calls, f.oracle.calls())
}

func TestHandleTurnWithoutSession(t *testing.T) {
	f := newConsultationFixture()

	_, err := f.svc.HandleTurn(context.Background(), f.userID(), "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandleTurnOracleFailureAppendsApology(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	f.oracle.empty = true

	sess, err := f.svc.HandleTurn(ctx, f.userID(), "3 days")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	require.NotNil(t, sess)
	assert.Len(t, sess.Messages, 3)
	assert.Equal(t, domain.AssistantMessage(ApologyMessage), sess.Messages[2])
	assert.Equal(t, domain.StateConsulting, sess.State)
}

func TestHandleTurnOracleTimeout(t *testing.T) {
	calls := 0
	slow := oracle.Func(func(ctx context.Context, _ []domain.Message) (*oracle.Completion, error) {
		calls++
		if calls == 1 {
			return &oracle.Completion{Choices: []oracle.Choice{{Message: domain.AssistantMessage("Hi!")}}}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := sampleProfile()
	svc := NewConsultationService(slow, newFakeProfileRepo(p), session.NewMemoryStore(0), nil, logger.Nop(), nil,
		ConsultationOptions{OracleTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := svc.Start(ctx, p.UserID)
	require.NoError(t, err)

	sess, err := svc.HandleTurn(ctx, p.UserID, "4 days")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, domain.AssistantMessage(ApologyMessage), sess.Messages[2])
}

func TestHandleTurnCannedFollowUp(t *testing.T) {
	f := newConsultationFixture("Hi!", "Great to see improvements")
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	sess, err := f.svc.HandleTurn(ctx, f.userID(), "I ran 5k")
	require.NoError(t, err)
	assert.Equal(t, domain.AssistantMessage(CannedFollowUp), sess.Messages[2])
}

func TestCustomReplyFilter(t *testing.T) {
	f := newConsultationFixture("Great to see you")
	planSvc := NewPlanService(f.oracle, f.plans, nil, logger.Nop(), nil, PlanOptions{})
	svc := NewConsultationService(f.oracle, f.profiles, f.sessions, planSvc, logger.Nop(), nil, ConsultationOptions{ReplyFilter: PassthroughFilter})

	sess, err := svc.Start(context.Background(), f.userID())
	require.NoError(t, err)
	assert.Equal(t, "Great to see you", sess.Messages[0].Content)
}

func TestHandleTurnRejectsConcurrentTurn(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)

	unlock, err := f.sessions.Lock(ctx, f.userID())
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.HandleTurn(ctx, f.userID(), "hi")
	assert.ErrorIs(t, err, ErrTurnInProgress)
	_, _, err = f.svc.Finalize(ctx, f.userID())
	assert.ErrorIs(t, err, ErrTurnInProgress)
}

func TestFinalizeGate(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	_, err = f.svc.HandleTurn(ctx, f.userID(), "one")
	require.NoError(t, err)

	// 3 messages: gate closed.
	sess, plan, err := f.svc.Finalize(ctx, f.userID())
	assert.ErrorIs(t, err, ErrFinalizeGateClosed)
	assert.Nil(t, plan)
	assert.Len(t, sess.Messages, 3)
	assert.Equal(t, 2, f.oracle.calls(), "no plan call while the gate is closed")

	_, err = f.svc.HandleTurn(ctx, f.userID(), "two")
	require.NoError(t, err)

	// 5 messages: gate open.
	f.oracle.replies = []string{"Day1: squats\nDay2: rest"}
	sess, plan, err = f.svc.Finalize(ctx, f.userID())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, domain.StatePlanReady, sess.State)
	assert.Equal(t, domain.AssistantMessage(PlanReadyMessage), sess.Messages[len(sess.Messages)-1])
	assert.Equal(t, "Day1: squats\nDay2: rest", plan.PlanDetails)
	assert.Equal(t, f.userID(), plan.UserID)
	assert.Equal(t, 1, f.plans.inserts)

	_, err = f.svc.Snapshot(ctx, f.userID())
	assert.ErrorIs(t, err, ErrSessionNotFound, "finished consultation is discarded")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConsultationsEndedTotal.WithLabelValues("plan_ready")))
}

func TestFinalizeSendsTranscript(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	for _, in := range []string{"one", "two"} {
		_, err = f.svc.HandleTurn(ctx, f.userID(), in)
		require.NoError(t, err)
	}

	_, _, err = f.svc.Finalize(ctx, f.userID())
	require.NoError(t, err)

	req := f.oracle.lastRequest()
	require.Len(t, req, 3)
	assert.Equal(t, domain.SystemMessage(TrainerInstruction), req[0])
	assert.Contains(t, req[1].Content, `"fullName":"Al"`)
	assert.Contains(t, req[2].Content, `{"role":"user","content":"two"}`)
}

func TestFinalizeFailureReturnsToConsulting(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	for _, in := range []string{"one", "two"} {
		_, err = f.svc.HandleTurn(ctx, f.userID(), in)
		require.NoError(t, err)
	}

	f.oracle.empty = true
	sess, plan, err := f.svc.Finalize(ctx, f.userID())
	assert.ErrorIs(t, err, ErrEmptyGeneration)
	assert.Nil(t, plan)
	assert.Equal(t, domain.StateConsulting, sess.State)
	assert.Equal(t, domain.AssistantMessage(PlanFailedMessage), sess.Messages[len(sess.Messages)-1])
	assert.Zero(t, f.plans.inserts)

	stored, err := f.svc.Snapshot(ctx, f.userID())
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 6)
}

func TestFinalizePersistenceFailureStillReturnsPlan(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	for _, in := range []string{"one", "two"} {
		_, err = f.svc.HandleTurn(ctx, f.userID(), in)
		require.NoError(t, err)
	}

	f.plans.err = errors.New("write concern")
	f.oracle.replies = []string{"Day1: plank"}
	sess, plan, err := f.svc.Finalize(ctx, f.userID())
	assert.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, plan)
	assert.Equal(t, "Day1: plank", plan.PlanDetails)
	assert.Equal(t, domain.StatePlanReady, sess.State)
}

func TestAbandon(t *testing.T) {
	f := newConsultationFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Abandon(ctx, f.userID()), ErrSessionNotFound)

	_, err := f.svc.Start(ctx, f.userID())
	require.NoError(t, err)
	require.NoError(t, f.svc.Abandon(ctx, f.userID()))

	_, err = f.svc.Snapshot(ctx, f.userID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConsultationsEndedTotal.WithLabelValues("abandoned")))
}

func TestReply(t *testing.T) {
	f := newConsultationFixture("Sounds good", "great to SEE that")
	ctx := context.Background()

	reply, err := f.svc.Reply(ctx, "User: I like running")
	require.NoError(t, err)
	assert.Equal(t, "Sounds good", reply)
	assert.Equal(t, domain.UserMessage("User: I like running"), f.oracle.lastRequest()[1])

	reply, err = f.svc.Reply(ctx, "User: I ran faster")
	require.NoError(t, err)
	assert.Equal(t, CannedFollowUp, reply)

	_, err = f.svc.Reply(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyContext)
}
