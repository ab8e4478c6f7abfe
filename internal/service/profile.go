package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/internal/repository"
	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/uid"
)

// ProfileService handles user-profile business logic.
type ProfileService struct {
	repo repository.ProfileRepository
	log  *zap.SugaredLogger
}

// NewProfileService creates a new profile service.
func NewProfileService(repo repository.ProfileRepository, l *zap.SugaredLogger) *ProfileService {
	return &ProfileService{repo: repo, log: logger.OrNop(l).Named("profile")}
}

func validateID(id string) error {
	if !uid.IsValidV4(id) {
		return apierror.BadRequest("Invalid UUID format")
	}
	return nil
}

func (s *ProfileService) mapErr(err error, op string) error {
	if errors.Is(err, repository.ErrProfileNotFound) {
		return apierror.NotFound("User not found")
	}
	s.log.Errorw("profile store failure", "op", op, "err", err)
	return apierror.InternalError("Database error")
}

// Upsert creates the profile or refreshes its email and name. Settings
// already stored are kept.
func (s *ProfileService) Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	if err := validateID(p.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, s.mapErr(err, "upsert")
	}
	stored, err := s.repo.Get(ctx, p.ID)
	if err != nil {
		return nil, s.mapErr(err, "upsert")
	}
	return stored, nil
}

// Get returns one profile including its credentials.
func (s *ProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "get")
	}
	return p, nil
}

// List returns every profile with credentials removed.
func (s *ProfileService) List(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.mapErr(err, "list")
	}
	out := make([]model.Profile, len(profiles))
	for i, p := range profiles {
		out[i] = p.Redacted()
	}
	return out, nil
}

// UpdateSettings applies a partial settings update.
func (s *ProfileService) UpdateSettings(ctx context.Context, id string, settings model.ProfileSettings) (*model.Profile, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateSettings(ctx, id, settings)
	if err != nil {
		return nil, s.mapErr(err, "update")
	}
	s.log.Infow("profile settings updated", "id", id)
	return p, nil
}

// Stats returns store statistics.
func (s *ProfileService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.Stats(ctx)
}
