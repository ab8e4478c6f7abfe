package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/internal/notify"
	"brickvault-api/internal/service"
	"brickvault-api/pkg/apierror"
	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/response"
)

// InventoryHandler exposes the inventory sync operations of the signed-in
// user. Remote failures do not become HTTP errors: the response carries
// success=false, the error text and the notifications raised.
type InventoryHandler struct {
	remote service.InventoryRemote
	cfg    service.InventorySyncConfig
	log    *zap.SugaredLogger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(remote service.InventoryRemote, cfg service.InventorySyncConfig, l *zap.SugaredLogger) *InventoryHandler {
	return &InventoryHandler{remote: remote, cfg: cfg, log: logger.OrNop(l)}
}

// syncFor builds the per-request sync client bound to the caller's
// credential store and notification recorder.
func (h *InventoryHandler) syncFor(r *http.Request) (*service.InventorySync, *notify.Recorder, error) {
	store, err := currentStore(r)
	if err != nil {
		return nil, nil, err
	}
	rec := notify.RecorderFromContext(r.Context())
	if rec == nil {
		rec = notify.NewRecorder()
	}
	n := notify.Multi(rec, notify.NewLogNotifier(h.log))
	return service.NewInventorySync(h.remote, store, n, h.cfg, h.log), rec, nil
}

// InventoryResult is the payload of every inventory response.
type InventoryResult struct {
	Items interface{} `json:"items,omitempty"`
	OK    *bool       `json:"ok,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeResult(w http.ResponseWriter, s *service.InventorySync, rec *notify.Recorder, result InventoryResult, success bool) {
	if err := s.Err(); err != nil {
		result.Error = err.Error()
	}
	response.WithNotifications(w, http.StatusOK, success, result, rec.Toasts())
}

func writeList(w http.ResponseWriter, s *service.InventorySync, rec *notify.Recorder, items interface{}) {
	writeResult(w, s, rec, InventoryResult{Items: items}, s.Err() == nil)
}

func writeMutation(w http.ResponseWriter, s *service.InventorySync, rec *notify.Recorder, ok bool) {
	writeResult(w, s, rec, InventoryResult{OK: &ok}, ok)
}

// ListSets handles GET /api/inventory/sets
func (h *InventoryHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	writeList(w, s, rec, s.ListSets(r.Context()))
}

// ListPartLists handles GET /api/inventory/partlists
func (h *InventoryHandler) ListPartLists(w http.ResponseWriter, r *http.Request) {
	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	writeList(w, s, rec, s.ListPartLists(r.Context()))
}

// Search handles GET /api/inventory/search?q=&color=&category=&year=&sortBy=&partlist=
func (h *InventoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	q := r.URL.Query()
	filters := model.SearchFilters{
		Color:    q.Get("color"),
		Category: q.Get("category"),
		Year:     q.Get("year"),
		SortBy:   model.SortOrder(q.Get("sortBy")),
		PartList: q.Get("partlist"),
	}
	writeList(w, s, rec, s.Search(r.Context(), q.Get("q"), filters))
}

func containerParams(r *http.Request) (model.ContainerKind, string, error) {
	kind, err := model.ParseContainerKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", apierror.NotFound("Unknown container kind")
	}
	id := chi.URLParam(r, "containerID")
	if id == "" {
		return "", "", apierror.BadRequest("container id is required")
	}
	return kind, id, nil
}

// ListItems handles GET /api/inventory/{kind}/{containerID}/parts
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	kind, id, err := containerParams(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	writeList(w, s, rec, s.ListItemsInContainer(r.Context(), id, kind))
}

// AddItemRequest is the body of POST /api/inventory/{kind}/{containerID}/parts.
type AddItemRequest struct {
	PartID   string `json:"part"`
	Quantity int    `json:"quantity"`
}

// AddItem handles POST /api/inventory/{kind}/{containerID}/parts
func (h *InventoryHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	kind, id, err := containerParams(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	var details []apierror.FieldError
	if req.PartID == "" {
		details = append(details, apierror.FieldError{Field: "part", Message: "is required"})
	}
	if req.Quantity < 1 {
		details = append(details, apierror.FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("", details...))
		return
	}

	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	writeMutation(w, s, rec, s.AddItem(r.Context(), id, req.PartID, req.Quantity, kind))
}

// RemoveItem handles DELETE /api/inventory/{kind}/{containerID}/parts/{partID}
func (h *InventoryHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	kind, id, err := containerParams(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	partID := chi.URLParam(r, "partID")

	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	writeMutation(w, s, rec, s.RemoveItem(r.Context(), id, partID, kind))
}

// MoveItem handles POST /api/inventory/moves
func (h *InventoryHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req model.MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Kind == "" {
		req.Kind = model.KindSet
	}

	var details []apierror.FieldError
	if req.From == "" {
		details = append(details, apierror.FieldError{Field: "from", Message: "is required"})
	}
	if req.To == "" {
		details = append(details, apierror.FieldError{Field: "to", Message: "is required"})
	}
	if req.From != "" && req.From == req.To {
		details = append(details, apierror.FieldError{Field: "to", Message: "must differ from source"})
	}
	if req.PartID == "" {
		details = append(details, apierror.FieldError{Field: "part", Message: "is required"})
	}
	if req.Quantity < 1 {
		details = append(details, apierror.FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	if !req.Kind.Valid() {
		details = append(details, apierror.FieldError{Field: "kind", Message: "must be set or partlist"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("", details...))
		return
	}

	s, rec, err := h.syncFor(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	writeMutation(w, s, rec, s.MoveItem(r.Context(), req))
}
