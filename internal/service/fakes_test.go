package service

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/oracle"
	"alcyxob/fitness-coach/internal/repository"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scriptedOracle answers with replies in order and records every request.
type scriptedOracle struct {
	mu       sync.Mutex
	replies  []string
	err      error
	empty    bool
	requests [][]domain.Message
}

func (o *scriptedOracle) Complete(_ context.Context, messages []domain.Message) (*oracle.Completion, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req := make([]domain.Message, len(messages))
	copy(req, messages)
	o.requests = append(o.requests, req)

	if o.err != nil {
		return nil, o.err
	}
	if o.empty {
		return &oracle.Completion{}, nil
	}
	reply := "ok"
	if len(o.replies) > 0 {
		reply, o.replies = o.replies[0], o.replies[1:]
	}
	return &oracle.Completion{Choices: []oracle.Choice{{Message: domain.AssistantMessage(reply)}}}, nil
}

func (o *scriptedOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}

func (o *scriptedOracle) lastRequest() []domain.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.requests) == 0 {
		return nil
	}
	return o.requests[len(o.requests)-1]
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[primitive.ObjectID]domain.Profile
	err      error
}

func newFakeProfileRepo(profiles ...*domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[primitive.ObjectID]domain.Profile)}
	for _, p := range profiles {
		r.profiles[p.UserID] = *p
	}
	return r
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.profiles[profile.UserID] = *profile
	return nil
}

type fakePlanRepo struct {
	mu      sync.Mutex
	plans   []domain.Plan
	inserts int
	err     error
}

func (r *fakePlanRepo) Insert(_ context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	stored := *plan
	stored.ID = primitive.NewObjectID()
	r.plans = append(r.plans, stored)
	return stored.ID, nil
}

func (r *fakePlanRepo) GetByDate(_ context.Context, userID primitive.ObjectID, date string) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.plans) - 1; i >= 0; i-- {
		if r.plans[i].UserID == userID && r.plans[i].PlanDate == date {
			p := r.plans[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePlanRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plan
	for _, p := range r.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlanDate > out[j].PlanDate })
	return out, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte)}
}

func (a *fakeArchive) PutObject(_ context.Context, key, _ string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.putErr != nil {
		return a.putErr
	}
	a.objects[key] = body
	return nil
}

func (a *fakeArchive) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://archive.test/" + key, nil
}

func (a *fakeArchive) DeleteObject(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	a.deleted = append(a.deleted, key)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := r.users[key]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	u := *user
	u.ID = primitive.NewObjectID()
	r.users[key] = u
	return u.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeExerciseRepo struct {
	exercises []domain.Exercise
}

func (r *fakeExerciseRepo) GetByMuscleGroup(_ context.Context, muscleGroup string) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, e := range r.exercises {
		if strings.EqualFold(e.MuscleGroup, muscleGroup) {
			out = append(out, e)
		}
	}
	return out, nil
}

func sampleProfile() *domain.Profile {
	return &domain.Profile{
		UserID:        primitive.NewObjectID(),
		FullName:      "Al",
		Age:           30,
		Gender:        domain.GenderMale,
		Weight:        80,
		Height:        180,
		Goal:          domain.GoalBuildMuscle,
		ActivityLevel: domain.ActivityModeratelyActive,
		WorkoutDays:   4,
		PreferredTime: domain.TimeMorning,
		Injuries:      domain.DefaultInjuries,
	}
}
