package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"brickvault-api/internal/notify"
	"brickvault-api/internal/session"
	"brickvault-api/pkg/logger"
)

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Provider session.Provider
	TTL      time.Duration
	Logger   *zap.SugaredLogger
}

// NewSessionMiddleware attaches a credential store and a notification
// recorder to every request. The store starts empty; it is hydrated lazily
// by the gate or by a handler that needs the identity.
func NewSessionMiddleware(cfg SessionConfig) func(http.Handler) http.Handler {
	log := logger.OrNop(cfg.Logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			persistence := cfg.Provider.ForRequest(w, r)
			store := session.NewStore(persistence, cfg.TTL, log)

			ctx := session.WithStore(r.Context(), store)
			ctx = notify.WithRecorder(ctx, notify.NewRecorder())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
