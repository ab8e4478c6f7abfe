package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/internal/onboarding"
	"brickvault-api/internal/service"
	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/response"
)

// SignInConfig is what the browser needs to render the sign-in button.
type SignInConfig interface {
	ClientID() string
	Scopes() string
}

// AuthHandler handles session sign-in and sign-out.
type AuthHandler struct {
	signIn *service.SignInService
	config SignInConfig
	log    *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(signIn *service.SignInService, cfg SignInConfig, l *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{signIn: signIn, config: cfg, log: logger.OrNop(l).Named("auth")}
}

// SignInRequest represents the request body for sign-in.
type SignInRequest struct {
	AccessToken string `json:"access_token"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	Authenticated bool                  `json:"authenticated"`
	User          *model.PublicIdentity `json:"user,omitempty"`
	Onboarded     bool                  `json:"onboarded"`
	Missing       []string              `json:"missing,omitempty"`
}

func sessionResponse(identity *model.Identity) SessionResponse {
	if identity == nil {
		return SessionResponse{}
	}
	public := identity.Public()
	return SessionResponse{
		Authenticated: true,
		User:          &public,
		Onboarded:     onboarding.IsComplete(identity),
		Missing:       onboarding.Missing(identity),
	}
}

// SignIn handles POST /auth/session
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.AccessToken == "" {
		response.Error(w, apierror.ValidationError("", apierror.FieldError{Field: "access_token", Message: "is required"}))
		return
	}

	store, err := currentStore(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	identity, err := h.signIn.SignIn(r.Context(), store, req.AccessToken)
	if err != nil {
		var apiErr *apierror.Error
		switch {
		case errors.Is(err, service.ErrSignInRejected):
			response.Error(w, apierror.Unauthorized("Sign-in was rejected"))
		case errors.As(err, &apiErr):
			response.Error(w, apiErr)
		default:
			h.log.Errorw("sign-in failed", "err", err)
			response.Error(w, apierror.BadGateway("Identity provider unavailable"))
		}
		return
	}

	response.OK(w, sessionResponse(identity))
}

// GetSession handles GET /auth/session
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	store, err := currentStore(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, sessionResponse(store.Identity()))
}

// SignOut handles DELETE /auth/session
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	store, err := currentStore(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.signIn.SignOut(r.Context(), store, store.Identity()); err != nil {
		h.log.Warnw("session clear failed", "err", err)
	}
	response.NoContent(w)
}

// ConfigResponse is the sign-in button configuration.
type ConfigResponse struct {
	ClientID string `json:"client_id"`
	Scopes   string `json:"scopes"`
}

// Config handles GET /auth/config
func (h *AuthHandler) Config(w http.ResponseWriter, r *http.Request) {
	response.OK(w, ConfigResponse{ClientID: h.config.ClientID(), Scopes: h.config.Scopes()})
}
