package middleware

import (
	"net/http"

	"brickvault-api/internal/gate"
	"brickvault-api/internal/session"
	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/response"
)

// ViewGate guards a browser view. A denied navigation becomes a 302 to the
// landing page or to the profile page with the intended path attached.
func ViewGate(g *gate.Gate, routeName string) func(http.Handler) http.Handler {
	target, ok := g.Table().Lookup(routeName)
	if !ok {
		panic("middleware: unknown route " + routeName)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.FromContext(r.Context())
			if store == nil {
				response.Error(w, apierror.InternalError("session unavailable"))
				return
			}

			d := g.Decide(r.Context(), target, r.URL.RequestURI(), store)
			if !d.Allowed() {
				http.Redirect(w, r, d.Location(), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIGate guards JSON endpoints with the rules of a view route. Instead of
// redirecting it answers 401 when signed out and 403 ONBOARDING_REQUIRED
// when the profile is incomplete, with the view path in meta.intended.
func APIGate(g *gate.Gate, routeName string) func(http.Handler) http.Handler {
	target, ok := g.Table().Lookup(routeName)
	if !ok {
		panic("middleware: unknown route " + routeName)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := session.FromContext(r.Context())
			if store == nil {
				response.Error(w, apierror.InternalError("session unavailable"))
				return
			}

			d := g.Decide(r.Context(), target, target.Path, store)
			switch d.Outcome {
			case gate.RedirectLanding:
				response.Error(w, apierror.Unauthorized("Sign in required"))
				return
			case gate.RedirectProfile:
				response.Error(w, apierror.OnboardingRequired(d.Intended))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a signed-in identity.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := session.FromContext(r.Context())
		if store == nil {
			response.Error(w, apierror.InternalError("session unavailable"))
			return
		}
		store.EnsureHydrated(r.Context())
		if !store.IsAuthenticated() {
			response.Error(w, apierror.Unauthorized("Sign in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
