package service

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickvault-api/internal/idp"
	"brickvault-api/internal/model"
	"brickvault-api/internal/repository"
	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/uid"
)

func newProfileService(t *testing.T) *ProfileService {
	t.Helper()
	repo, err := repository.NewSQLiteProfileRepository(filepath.Join(t.TempDir(), "profiles.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewProfileService(repo, nil)
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr), "expected *apierror.Error, got %v", err)
	return apiErr.StatusCode
}

func strPtr(s string) *string { return &s }

func TestProfileService_RejectsMalformedIDs(t *testing.T) {
	svc := newProfileService(t)
	ctx := context.Background()

	for _, id := range []string{"", "abc", "{3f2b8c1e-9d4a-4b6e-8f1a-2c3d4e5f6a7b}", "3f2b8c1e-9d4a-1b6e-8f1a-2c3d4e5f6a7b"} {
		_, err := svc.Get(ctx, id)
		assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), id)

		_, err = svc.UpdateSettings(ctx, id, model.ProfileSettings{})
		assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), id)

		_, err = svc.Upsert(ctx, &model.Profile{ID: id})
		assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), id)
	}
}

func TestProfileService_NotFound(t *testing.T) {
	svc := newProfileService(t)
	_, err := svc.Get(context.Background(), uuid.NewString())
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestProfileService_ListRedactsCredentials(t *testing.T) {
	svc := newProfileService(t)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := svc.Upsert(ctx, &model.Profile{ID: id, Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.UpdateSettings(ctx, id, model.ProfileSettings{APIKey: strPtr("secret"), UserToken: strPtr("tok")})
	require.NoError(t, err)

	profiles, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Empty(t, profiles[0].APIKey)
	assert.Empty(t, profiles[0].UserToken)

	full, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "secret", full.APIKey)
}

type fakeProvider struct {
	info      *idp.UserInfo
	infoErr   error
	revokeErr error
	revoked   []string
}

func (f *fakeProvider) UserInfo(context.Context, string) (*idp.UserInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeProvider) Revoke(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

type memIdentityStore struct {
	identity *model.Identity
	cleared  int
}

func (m *memIdentityStore) SetIdentity(_ context.Context, identity model.Identity) error {
	m.identity = &identity
	return nil
}

func (m *memIdentityStore) ClearIdentity(context.Context) error {
	m.identity = nil
	m.cleared++
	return nil
}

func TestSignIn_MergesStoredSettings(t *testing.T) {
	profiles := newProfileService(t)
	provider := &fakeProvider{info: &idp.UserInfo{Subject: "1090", Email: "a@example.com", Name: "Ann", Picture: "https://pic"}}
	svc := NewSignInService(provider, profiles, nil)
	ctx := context.Background()

	store := &memIdentityStore{}
	first, err := svc.SignIn(ctx, store, "at-1")
	require.NoError(t, err)
	assert.True(t, uid.IsValidV4(first.ID))
	assert.Equal(t, uid.DeriveV4("1090"), first.ID)
	assert.Empty(t, first.DisplayName)
	assert.Equal(t, "at-1", store.identity.AccessToken)
	assert.Equal(t, "https://pic", store.identity.ImageURL)

	_, err = profiles.UpdateSettings(ctx, first.ID, model.ProfileSettings{ScreenName: strPtr("brickfan"), APIKey: strPtr("k")})
	require.NoError(t, err)

	second, err := svc.SignIn(ctx, store, "at-2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "brickfan", store.identity.DisplayName)
	assert.Equal(t, "k", store.identity.APIKey)
}

func TestSignIn_RejectedToken(t *testing.T) {
	svc := NewSignInService(&fakeProvider{infoErr: idp.ErrInvalidToken}, newProfileService(t), nil)
	store := &memIdentityStore{}

	_, err := svc.SignIn(context.Background(), store, "bad")
	assert.ErrorIs(t, err, ErrSignInRejected)
	assert.Nil(t, store.identity)
}

func TestSignOut_ClearsEvenWhenRevokeFails(t *testing.T) {
	provider := &fakeProvider{revokeErr: errors.New("network down")}
	svc := NewSignInService(provider, newProfileService(t), nil)
	store := &memIdentityStore{identity: &model.Identity{ID: "u1", AccessToken: "at"}}

	require.NoError(t, svc.SignOut(context.Background(), store, store.identity))
	assert.Nil(t, store.identity)
	assert.Equal(t, 1, store.cleared)
	assert.Equal(t, []string{"at"}, provider.revoked)
}
