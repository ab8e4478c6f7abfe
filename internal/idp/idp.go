// Package idp resolves identity-provider access tokens into user claims.
// The browser performs the OAuth flow; this service only sees the
// resulting access token.
package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"brickvault-api/pkg/logger"
)

const (
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	DefaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
	// DefaultScopes are requested by the browser sign-in button.
	DefaultScopes = "email profile openid https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email"
)

var (
	// ErrInvalidToken is returned when the provider rejects the access token.
	ErrInvalidToken = errors.New("idp: invalid access token")
	// ErrNoSubject is returned when the provider answers without a subject.
	ErrNoSubject = errors.New("idp: userinfo has no subject")
)

// UserInfo is the subset of OpenID claims the service uses.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Provider exchanges an access token for claims and revokes it.
type Provider interface {
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
	Revoke(ctx context.Context, accessToken string) error
}

// GoogleConfig configures the Google provider.
type GoogleConfig struct {
	ClientID    string
	Scopes      string
	UserInfoURL string
	RevokeURL   string
}

// Google is a Provider backed by Google's OAuth endpoints.
type Google struct {
	cfg  GoogleConfig
	http *http.Client
	log  *zap.SugaredLogger
}

// NewGoogle creates a Google provider. Empty URLs use the public endpoints.
func NewGoogle(cfg GoogleConfig, h *http.Client, l *zap.SugaredLogger) *Google {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = DefaultUserInfoURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = DefaultRevokeURL
	}
	if cfg.Scopes == "" {
		cfg.Scopes = DefaultScopes
	}
	if h == nil {
		h = &http.Client{}
	}
	return &Google{cfg: cfg, http: h, log: logger.OrNop(l).Named("idp")}
}

// ClientID returns the OAuth client id shown to the browser.
func (g *Google) ClientID() string { return g.cfg.ClientID }

// Scopes returns the scopes the browser should request.
func (g *Google) Scopes() string { return g.cfg.Scopes }

// UserInfo fetches the claims for accessToken.
func (g *Google) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("userinfo request failed: %s; body=%s", resp.Status, strings.TrimSpace(string(body)))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Subject == "" {
		return nil, ErrNoSubject
	}
	return &info, nil
}

// Revoke invalidates accessToken at the provider.
func (g *Google) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Debugw("revoke rejected", "status", resp.StatusCode)
		return fmt.Errorf("revoke request failed: %s", resp.Status)
	}
	return nil
}

var _ Provider = (*Google)(nil)
