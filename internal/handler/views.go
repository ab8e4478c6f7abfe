package handler

import (
	"net/http"

	"brickvault-api/internal/model"
	"brickvault-api/internal/onboarding"
	"brickvault-api/pkg/response"
)

// ViewHandler serves the JSON view models of the three navigable pages.
// Access control is applied by the gate middleware in front of it.
type ViewHandler struct {
	inventory *InventoryHandler
	auth      SignInConfig
}

// NewViewHandler creates a view handler. The sets view reuses the
// inventory handler's sync wiring.
func NewViewHandler(inventory *InventoryHandler, auth SignInConfig) *ViewHandler {
	return &ViewHandler{inventory: inventory, auth: auth}
}

// HomeView is the landing page model.
type HomeView struct {
	View          string                `json:"view"`
	Authenticated bool                  `json:"authenticated"`
	User          *model.PublicIdentity `json:"user,omitempty"`
	SignIn        *ConfigResponse       `json:"sign_in,omitempty"`
}

// Home handles GET /
func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	store, err := currentStore(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	view := HomeView{View: "home"}
	if identity := store.Identity(); identity != nil {
		public := identity.Public()
		view.Authenticated = true
		view.User = &public
	} else if h.auth != nil {
		view.SignIn = &ConfigResponse{ClientID: h.auth.ClientID(), Scopes: h.auth.Scopes()}
	}
	response.OK(w, view)
}

// SetsView is the collection page model.
type SetsView struct {
	View      string            `json:"view"`
	Sets      []model.Container `json:"sets"`
	PartLists []model.Container `json:"partlists"`
	Error     string            `json:"error,omitempty"`
}

// Sets handles GET /sets. Both listings are passive, so missing
// credentials or remote failures yield empty lists rather than an error.
func (h *ViewHandler) Sets(w http.ResponseWriter, r *http.Request) {
	s, rec, err := h.inventory.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	view := SetsView{View: "sets"}
	s.ListSets(r.Context())
	if err := s.Err(); err != nil {
		view.Error = err.Error()
	}
	s.ListPartLists(r.Context())
	if err := s.Err(); err != nil {
		view.Error = err.Error()
	}
	view.Sets = s.Sets()
	view.PartLists = s.PartLists()

	response.WithNotifications(w, http.StatusOK, view.Error == "", view, rec.Toasts())
}

// ProfileView is the profile page model.
type ProfileView struct {
	View       string               `json:"view"`
	User       model.PublicIdentity `json:"user"`
	Onboarding bool                 `json:"onboarding"`
	Intended   string               `json:"intended,omitempty"`
	Complete   bool                 `json:"complete"`
	Missing    []string             `json:"missing,omitempty"`
}

// Profile handles GET /profile
func (h *ViewHandler) Profile(w http.ResponseWriter, r *http.Request) {
	_, identity, err := currentIdentity(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	q := r.URL.Query()
	response.OK(w, ProfileView{
		View:       "profile",
		User:       identity.Public(),
		Onboarding: q.Get("onboarding") == "true",
		Intended:   localPath(q.Get("intended")),
		Complete:   onboarding.IsComplete(identity),
		Missing:    onboarding.Missing(identity),
	})
}
