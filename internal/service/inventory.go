package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/internal/notify"
	"brickvault-api/internal/rebrickable"
	"brickvault-api/pkg/logger"
)

// User-facing messages.
const (
	msgNeedAPIKey       = "Please add your Rebrickable API key in profile settings"
	msgNeedUserToken    = "Please add your Rebrickable user token in profile settings to search part-lists"
	msgNeedCredentials  = "Please add your Rebrickable API key and user token in profile settings"
	msgListSetsFailed   = "Failed to fetch your LEGO sets"
	msgListListsFailed  = "Failed to fetch your part-lists"
	msgSearchFailed     = "Failed to search bricks"
	msgMoveFailed       = "Failed to move brick between %s"
	msgCompensated      = "The brick was put back into its original %s"
	msgCompensateFailed = "The brick could not be put back into its original %s"
)

// InventoryRemote is the remote inventory API. *rebrickable.Client implements it.
type InventoryRemote interface {
	ListSets(ctx context.Context, creds rebrickable.Credentials) ([]model.Container, error)
	ListPartLists(ctx context.Context, creds rebrickable.Credentials) ([]model.Container, error)
	SearchParts(ctx context.Context, creds rebrickable.Credentials, query string, filters model.SearchFilters) ([]model.InventoryItem, error)
	ListContainerParts(ctx context.Context, creds rebrickable.Credentials, kind model.ContainerKind, containerID string) ([]model.InventoryItem, error)
	AddPart(ctx context.Context, creds rebrickable.Credentials, kind model.ContainerKind, containerID, partID string, quantity int) error
	RemovePart(ctx context.Context, creds rebrickable.Credentials, kind model.ContainerKind, containerID, partID string) error
}

// CredentialSource exposes the signed-in identity. *session.Store implements it.
type CredentialSource interface {
	Identity() *model.Identity
}

// InventorySyncConfig holds policy switches for InventorySync.
type InventorySyncConfig struct {
	// CompensateMoves re-adds a part to its source container when the second
	// step of a move fails.
	CompensateMoves bool
}

// InventorySync performs the user's inventory operations against the remote
// API. Failures never escape: they are stored (see Err), reported through the
// notifier, and turned into an empty result or false.
//
// The loading flag is shared by every operation on one instance. Concurrent
// calls race on its final value; treat it as a display hint only.
type InventorySync struct {
	remote   InventoryRemote
	creds    CredentialSource
	notifier notify.Notifier
	cfg      InventorySyncConfig
	log      *zap.SugaredLogger

	loading atomic.Bool

	mu        sync.RWMutex
	err       error
	sets      []model.Container
	partLists []model.Container
}

// NewInventorySync wires the sync client for one session.
func NewInventorySync(remote InventoryRemote, creds CredentialSource, n notify.Notifier, cfg InventorySyncConfig, l *zap.SugaredLogger) *InventorySync {
	if n == nil {
		n = notify.Func(func(string, notify.Severity) {})
	}
	return &InventorySync{
		remote:   remote,
		creds:    creds,
		notifier: n,
		cfg:      cfg,
		log:      logger.OrNop(l).Named("inventory"),
	}
}

// IsLoading reports whether an operation is in flight.
func (s *InventorySync) IsLoading() bool { return s.loading.Load() }

// Err returns the failure of the most recent operation, or nil.
func (s *InventorySync) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Sets returns the last fetched set listing.
func (s *InventorySync) Sets() []model.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Container{}, s.sets...)
}

// PartLists returns the last fetched part-list listing.
func (s *InventorySync) PartLists() []model.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Container{}, s.partLists...)
}

func (s *InventorySync) credentials() rebrickable.Credentials {
	id := s.creds.Identity()
	if id == nil {
		return rebrickable.Credentials{}
	}
	return rebrickable.Credentials{APIKey: id.APIKey, UserToken: id.APIUserToken}
}

// begin raises the busy flag and clears the previous error. The returned
// func lowers the flag and must be deferred.
func (s *InventorySync) begin() func() {
	s.loading.Store(true)
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
	return func() { s.loading.Store(false) }
}

func (s *InventorySync) fail(op string, err error, message string) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.Warnw("inventory operation failed", "op", op, "err", err)
	s.notifier.Notify(message, notify.Danger)
}

// ListSets fetches the user's sets and replaces the listing. Missing
// credentials return an empty result without a notification.
func (s *InventorySync) ListSets(ctx context.Context) []model.Container {
	creds := s.credentials()
	if !creds.Complete() {
		return []model.Container{}
	}

	done := s.begin()
	defer done()

	sets, err := s.remote.ListSets(ctx, creds)
	if err != nil {
		s.fail("list_sets", err, msgListSetsFailed)
		return []model.Container{}
	}

	s.mu.Lock()
	s.sets = sets
	s.mu.Unlock()
	return append([]model.Container{}, sets...)
}

// ListPartLists fetches the user's part-lists and replaces the listing.
// Missing credentials return an empty result without a notification.
func (s *InventorySync) ListPartLists(ctx context.Context) []model.Container {
	creds := s.credentials()
	if !creds.Complete() {
		return []model.Container{}
	}

	done := s.begin()
	defer done()

	lists, err := s.remote.ListPartLists(ctx, creds)
	if err != nil {
		s.fail("list_partlists", err, msgListListsFailed)
		return []model.Container{}
	}

	s.mu.Lock()
	s.partLists = lists
	s.mu.Unlock()
	return append([]model.Container{}, lists...)
}

// Search queries the parts catalog, or the contents of filters.PartList
// when set. It needs the API key, plus the user token for part-list searches.
func (s *InventorySync) Search(ctx context.Context, query string, filters model.SearchFilters) []model.InventoryItem {
	creds := s.credentials()
	if !creds.HasKey() {
		s.notifier.Notify(msgNeedAPIKey, notify.Warning)
		return []model.InventoryItem{}
	}
	if filters.PartList != "" && creds.UserToken == "" {
		s.notifier.Notify(msgNeedUserToken, notify.Warning)
		return []model.InventoryItem{}
	}

	done := s.begin()
	defer done()

	items, err := s.remote.SearchParts(ctx, creds, query, filters)
	if err != nil {
		s.fail("search", err, msgSearchFailed)
		return []model.InventoryItem{}
	}
	return items
}

// ListItemsInContainer fetches the contents of one container. Missing
// credentials return an empty result without a notification.
func (s *InventorySync) ListItemsInContainer(ctx context.Context, containerID string, kind model.ContainerKind) []model.InventoryItem {
	creds := s.credentials()
	if !creds.Complete() {
		return []model.InventoryItem{}
	}

	done := s.begin()
	defer done()

	items, err := s.remote.ListContainerParts(ctx, creds, kindOrSet(kind), containerID)
	if err != nil {
		s.fail("list_items", err, fmt.Sprintf("Failed to fetch the parts of this %s", label(kind)))
		return []model.InventoryItem{}
	}
	return items
}

// AddItem adds quantity of a part to a container.
func (s *InventorySync) AddItem(ctx context.Context, containerID, partID string, quantity int, kind model.ContainerKind) bool {
	creds := s.credentials()
	if !creds.Complete() {
		s.notifier.Notify(msgNeedCredentials, notify.Warning)
		return false
	}

	done := s.begin()
	defer done()

	if err := s.remote.AddPart(ctx, creds, kindOrSet(kind), containerID, partID, quantity); err != nil {
		s.fail("add_item", err, fmt.Sprintf("Failed to add brick to %s", label(kind)))
		return false
	}
	return true
}

// RemoveItem removes a part from a container.
func (s *InventorySync) RemoveItem(ctx context.Context, containerID, partID string, kind model.ContainerKind) bool {
	creds := s.credentials()
	if !creds.Complete() {
		s.notifier.Notify(msgNeedCredentials, notify.Warning)
		return false
	}

	done := s.begin()
	defer done()

	if err := s.remote.RemovePart(ctx, creds, kindOrSet(kind), containerID, partID); err != nil {
		s.fail("remove_item", err, fmt.Sprintf("Failed to delete brick from %s", label(kind)))
		return false
	}
	return true
}

// ErrMoveIncomplete marks a move whose part was removed from the source but
// never reached the destination.
var ErrMoveIncomplete = errors.New("part removed from source but not added to destination")

// MoveItem relocates a part in two remote calls: remove from the source,
// then add to the destination. The calls are not atomic.
//
// If the removal fails nothing has changed and no add is attempted. If the
// add fails the part is already gone from the source and, unless
// CompensateMoves is set, is now in neither container.
func (s *InventorySync) MoveItem(ctx context.Context, req model.MoveRequest) bool {
	creds := s.credentials()
	if !creds.Complete() {
		s.notifier.Notify(msgNeedCredentials, notify.Warning)
		return false
	}

	kind := kindOrSet(req.Kind)
	failMsg := fmt.Sprintf(msgMoveFailed, kind.PathSegment())

	done := s.begin()
	defer done()

	if err := s.remote.RemovePart(ctx, creds, kind, req.From, req.PartID); err != nil {
		s.fail("move_remove", err, failMsg)
		return false
	}

	if err := s.remote.AddPart(ctx, creds, kind, req.To, req.PartID, req.Quantity); err != nil {
		s.fail("move_add", fmt.Errorf("%w: %w", ErrMoveIncomplete, err), failMsg)
		if s.cfg.CompensateMoves {
			s.compensateMove(ctx, creds, kind, req)
		}
		return false
	}
	return true
}

// compensateMove puts the part back into the source container.
func (s *InventorySync) compensateMove(ctx context.Context, creds rebrickable.Credentials, kind model.ContainerKind, req model.MoveRequest) {
	if err := s.remote.AddPart(ctx, creds, kind, req.From, req.PartID, req.Quantity); err != nil {
		s.log.Errorw("move compensation failed; part is in neither container",
			"part", req.PartID, "from", req.From, "to", req.To, "quantity", req.Quantity, "err", err)
		s.notifier.Notify(fmt.Sprintf(msgCompensateFailed, label(kind)), notify.Danger)
		return
	}
	s.log.Infow("move compensated", "part", req.PartID, "from", req.From, "quantity", req.Quantity)
	s.notifier.Notify(fmt.Sprintf(msgCompensated, label(kind)), notify.Info)
}

func kindOrSet(k model.ContainerKind) model.ContainerKind {
	if k == model.KindPartList {
		return k
	}
	return model.KindSet
}

func label(k model.ContainerKind) string {
	if k == model.KindPartList {
		return "part-list"
	}
	return "set"
}
