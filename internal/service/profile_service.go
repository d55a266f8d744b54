package service

import (
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	// SetupProfile validates and stores profile as the whole profile of userID.
	SetupProfile(ctx context.Context, userID primitive.ObjectID, profile *domain.Profile) (*domain.Profile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *profileService) SetupProfile(ctx context.Context, userID primitive.ObjectID, profile *domain.Profile) (*domain.Profile, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	// The identity always comes from the caller, never from the payload.
	profile.UserID = userID
	if err := profile.Normalize(); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
