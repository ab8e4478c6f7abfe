package middleware

import (
	"crypto/subtle"
	"net/http"

	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/response"
)

// AdminKeyHeader carries the operator key.
const AdminKeyHeader = "X-Login-Key"

// NewAdminKeyMiddleware guards operator endpoints with a shared key. An
// empty key disables the endpoints.
func NewAdminKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				response.Error(w, apierror.Forbidden("Admin access disabled"))
				return
			}
			provided := r.Header.Get(AdminKeyHeader)
			if provided == "" {
				response.Error(w, apierror.Unauthorized("Missing X-Login-Key header"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				response.Error(w, apierror.Unauthorized("Invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
