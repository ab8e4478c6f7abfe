package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/internal/service"
	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/response"
	"brickvault-api/pkg/uid"
)

// ProfileHandler handles /api/users requests.
type ProfileHandler struct {
	profiles *service.ProfileService
	log      *zap.SugaredLogger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles *service.ProfileService, l *zap.SugaredLogger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: logger.OrNop(l).Named("profile")}
}

// ownID validates the id parameter and requires it to be the caller's.
func ownID(r *http.Request, id string) (*model.Identity, error) {
	if !uid.IsValidV4(id) {
		return nil, apierror.BadRequest("Invalid UUID format")
	}
	_, identity, err := currentIdentity(r)
	if err != nil {
		return nil, err
	}
	if identity.ID != id {
		return nil, apierror.Forbidden("You can only access your own profile")
	}
	return identity, nil
}

// UpsertRequest is the body of POST /api/users.
type UpsertRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Upsert handles POST /api/users
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if _, err := ownID(r, req.ID); err != nil {
		response.Error(w, err)
		return
	}

	p, err := h.profiles.Upsert(r.Context(), &model.Profile{ID: req.ID, Email: req.Email, Name: req.Name})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, p)
}

// List handles GET /api/users
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, profiles)
}

// Get handles GET /api/users/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := ownID(r, id); err != nil {
		response.Error(w, err)
		return
	}

	p, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, p)
}

// UpdateSettings handles PATCH /api/users/{id}. Absent fields keep their
// stored values. The session is re-persisted so the gate sees the new
// onboarding state on the next navigation.
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity, err := ownID(r, id)
	if err != nil {
		response.Error(w, err)
		return
	}

	var settings model.ProfileSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		response.Error(w, err)
		return
	}

	p, err := h.profiles.UpdateSettings(r.Context(), id, settings)
	if err != nil {
		response.Error(w, err)
		return
	}

	store, _, err := currentIdentity(r)
	if err == nil {
		if err := store.SetIdentity(r.Context(), identity.WithProfile(p)); err != nil {
			h.log.Warnw("session refresh failed", "id", id, "err", err)
		}
	}

	response.OK(w, p)
}
