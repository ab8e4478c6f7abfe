package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/response"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(l *zap.SugaredLogger) func(http.Handler) http.Handler {
	log := logger.OrNop(l).Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Errorw("panic recovered",
						"err", err,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)
					response.Error(w, apierror.InternalError("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
