package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"brickvault-api/internal/idp"
	"brickvault-api/internal/model"
	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/uid"
)

// ErrSignInRejected is returned when the provider refuses the access token.
var ErrSignInRejected = errors.New("sign-in rejected by identity provider")

// IdentityStore receives the signed-in identity. *session.Store implements it.
type IdentityStore interface {
	SetIdentity(ctx context.Context, identity model.Identity) error
	ClearIdentity(ctx context.Context) error
}

// ProfileUpserter is the subset of ProfileService used by sign-in.
type ProfileUpserter interface {
	Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error)
}

// SignInService turns a provider access token into a stored identity.
type SignInService struct {
	provider idp.Provider
	profiles ProfileUpserter
	log      *zap.SugaredLogger
}

// NewSignInService creates a sign-in service.
func NewSignInService(p idp.Provider, profiles ProfileUpserter, l *zap.SugaredLogger) *SignInService {
	return &SignInService{provider: p, profiles: profiles, log: logger.OrNop(l).Named("signin")}
}

// SignIn resolves the token, records the profile and stores the merged
// identity. The user id is derived from the provider subject so the same
// account always maps to the same profile.
func (s *SignInService) SignIn(ctx context.Context, store IdentityStore, accessToken string) (*model.Identity, error) {
	info, err := s.provider.UserInfo(ctx, accessToken)
	if err != nil {
		if errors.Is(err, idp.ErrInvalidToken) || errors.Is(err, idp.ErrNoSubject) {
			return nil, fmt.Errorf("%w: %w", ErrSignInRejected, err)
		}
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	profile, err := s.profiles.Upsert(ctx, &model.Profile{
		ID:    uid.DeriveV4(info.Subject),
		Email: info.Email,
		Name:  info.Name,
	})
	if err != nil {
		return nil, err
	}

	identity := model.Identity{
		ID:          profile.ID,
		Email:       info.Email,
		Name:        info.Name,
		ImageURL:    info.Picture,
		AccessToken: accessToken,
	}.WithProfile(profile)

	if err := store.SetIdentity(ctx, identity); err != nil {
		s.log.Warnw("signed in but session could not be persisted", "id", identity.ID, "err", err)
	}
	s.log.Infow("signed in", "id", identity.ID)
	return &identity, nil
}

// SignOut revokes the provider token and clears the store. The store is
// cleared even if revocation fails.
func (s *SignInService) SignOut(ctx context.Context, store IdentityStore, identity *model.Identity) error {
	if identity != nil && identity.AccessToken != "" {
		if err := s.provider.Revoke(ctx, identity.AccessToken); err != nil {
			s.log.Warnw("token revocation failed", "id", identity.ID, "err", err)
		}
	}
	return store.ClearIdentity(ctx)
}
