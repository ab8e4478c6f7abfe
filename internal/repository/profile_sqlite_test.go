package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickvault-api/internal/model"
)

func newSQLiteRepo(t *testing.T) *SQLiteProfileRepository {
	t.Helper()
	repo, err := NewSQLiteProfileRepository(filepath.Join(t.TempDir(), "data", "profiles.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func strPtr(s string) *string { return &s }

const (
	idA = "3f2b8c1e-9d4a-4b6e-8f1a-2c3d4e5f6a7b"
	idB = "0a1b2c3d-4e5f-4a6b-9c7d-8e9f0a1b2c3d"
)

func TestSQLiteProfileRepository_UpsertAndGet(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, idA)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idA, Email: "a@example.com", Name: "Ann"}))

	p, err := repo.Get(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, idA, p.ID)
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, "Ann", p.Name)
	assert.Empty(t, p.ScreenName)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestSQLiteProfileRepository_UpsertKeepsSettings(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idA, Email: "a@example.com", Name: "Ann"}))
	_, err := repo.UpdateSettings(ctx, idA, model.ProfileSettings{
		ScreenName: strPtr("brickfan"),
		APIKey:     strPtr("key"),
		UserToken:  strPtr("token"),
	})
	require.NoError(t, err)

	// signing in again refreshes identity fields only
	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idA, Email: "new@example.com", Name: "Ann B"}))

	p, err := repo.Get(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", p.Email)
	assert.Equal(t, "Ann B", p.Name)
	assert.Equal(t, "brickfan", p.ScreenName)
	assert.Equal(t, "key", p.APIKey)
	assert.Equal(t, "token", p.UserToken)
}

func TestSQLiteProfileRepository_UpdateSettingsPartial(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idA, Email: "a@example.com"}))
	_, err := repo.UpdateSettings(ctx, idA, model.ProfileSettings{ScreenName: strPtr("one"), APIKey: strPtr("k1")})
	require.NoError(t, err)

	p, err := repo.UpdateSettings(ctx, idA, model.ProfileSettings{UserToken: strPtr("t1")})
	require.NoError(t, err)
	assert.Equal(t, "one", p.ScreenName)
	assert.Equal(t, "k1", p.APIKey)
	assert.Equal(t, "t1", p.UserToken)

	p, err = repo.UpdateSettings(ctx, idA, model.ProfileSettings{APIKey: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, p.APIKey, "explicit empty value clears the field")
	assert.Equal(t, "one", p.ScreenName)

	_, err = repo.UpdateSettings(ctx, idB, model.ProfileSettings{ScreenName: strPtr("x")})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSQLiteProfileRepository_ListNewestFirst(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idA, Email: "a@example.com"}))
	repo.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idB, Email: "b@example.com"}))

	profiles, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, idB, profiles[0].ID)
	assert.Equal(t, idA, profiles[1].ID)
}

func TestSQLiteProfileRepository_StatsAndPing(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ping(ctx))

	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idA}))
	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: idB}))
	_, err := repo.UpdateSettings(ctx, idA, model.ProfileSettings{ScreenName: strPtr("s"), APIKey: strPtr("k")})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_profiles"])
	assert.Equal(t, int64(1), stats["onboarded_profiles"])
	assert.Contains(t, stats, "db_size_bytes")
}
