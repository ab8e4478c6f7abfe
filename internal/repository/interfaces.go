package repository

import (
	"context"
	"errors"

	"brickvault-api/internal/model"
)

// ErrProfileNotFound is returned when no profile has the requested id.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository defines user-profile data access methods.
type ProfileRepository interface {
	// Upsert creates the profile or refreshes its email and name. Onboarding
	// settings already stored are kept.
	Upsert(ctx context.Context, p *model.Profile) error

	// Get retrieves a profile by id.
	Get(ctx context.Context, id string) (*model.Profile, error)

	// List returns every profile, newest first.
	List(ctx context.Context) ([]model.Profile, error)

	// UpdateSettings applies a partial settings update and returns the stored profile.
	UpdateSettings(ctx context.Context, id string, settings model.ProfileSettings) (*model.Profile, error)

	// Stats returns statistics about the profile store.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Close closes the repository connection.
	Close() error
}
