package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"brickvault-api/internal/model"
	"brickvault-api/internal/session"
	"brickvault-api/pkg/apierror"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required")
		}
		return apierror.BadRequest("invalid JSON")
	}
	return nil
}

// currentStore returns the hydrated credential store of the request.
func currentStore(r *http.Request) (*session.Store, error) {
	store := session.FromContext(r.Context())
	if store == nil {
		return nil, apierror.InternalError("session unavailable")
	}
	store.EnsureHydrated(r.Context())
	return store, nil
}

// currentIdentity returns the signed-in identity or a 401.
func currentIdentity(r *http.Request) (*session.Store, *model.Identity, error) {
	store, err := currentStore(r)
	if err != nil {
		return nil, nil, err
	}
	identity := store.Identity()
	if identity == nil {
		return nil, nil, apierror.Unauthorized("Sign in required")
	}
	return store, identity, nil
}

// localPath accepts only same-origin absolute paths.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}
