package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickvault-api/internal/model"
	"brickvault-api/internal/notify"
	"brickvault-api/internal/rebrickable"
)

type staticCreds struct{ id *model.Identity }

func (c staticCreds) Identity() *model.Identity { return c.id }

var fullIdentity = &model.Identity{ID: "u1", DisplayName: "brickfan", APIKey: "k", APIUserToken: "t"}

// fakeRemote keeps part counts per container and can fail chosen calls.
type fakeRemote struct {
	mu     sync.Mutex
	counts map[string]map[string]int
	calls  []string

	removeErr error
	addErr    map[string]error
	listErr   error
	searchErr error

	sets      []model.Container
	partLists []model.Container
	items     []model.InventoryItem
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{counts: map[string]map[string]int{}, addErr: map[string]error{}}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRemote) count(container, part string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[container][part]
}

func (f *fakeRemote) put(container, part string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[container] == nil {
		f.counts[container] = map[string]int{}
	}
	f.counts[container][part] += qty
}

func (f *fakeRemote) ListSets(context.Context, rebrickable.Credentials) ([]model.Container, error) {
	f.record("list_sets")
	return f.sets, f.listErr
}

func (f *fakeRemote) ListPartLists(context.Context, rebrickable.Credentials) ([]model.Container, error) {
	f.record("list_partlists")
	return f.partLists, f.listErr
}

func (f *fakeRemote) SearchParts(_ context.Context, _ rebrickable.Credentials, _ string, _ model.SearchFilters) ([]model.InventoryItem, error) {
	f.record("search")
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.items, nil
}

func (f *fakeRemote) ListContainerParts(_ context.Context, _ rebrickable.Credentials, _ model.ContainerKind, _ string) ([]model.InventoryItem, error) {
	f.record("list_items")
	return f.items, f.listErr
}

func (f *fakeRemote) AddPart(_ context.Context, _ rebrickable.Credentials, _ model.ContainerKind, containerID, partID string, quantity int) error {
	f.record("add:" + containerID)
	if err := f.addErr[containerID]; err != nil {
		return err
	}
	f.put(containerID, partID, quantity)
	return nil
}

func (f *fakeRemote) RemovePart(_ context.Context, _ rebrickable.Credentials, _ model.ContainerKind, containerID, partID string) error {
	f.record("remove:" + containerID)
	if f.removeErr != nil {
		return f.removeErr
	}
	f.mu.Lock()
	delete(f.counts[containerID], partID)
	f.mu.Unlock()
	return nil
}

func newSync(remote InventoryRemote, id *model.Identity, cfg InventorySyncConfig) (*InventorySync, *notify.Recorder) {
	rec := notify.NewRecorder()
	return NewInventorySync(remote, staticCreds{id}, rec, cfg, nil), rec
}

func statusErr(code int) error {
	return &rebrickable.HTTPError{Op: "test", StatusCode: code, Status: http.StatusText(code)}
}

func TestMoveItem_Success(t *testing.T) {
	remote := newFakeRemote()
	remote.put("A", "3001", 2)
	s, rec := newSync(remote, fullIdentity, InventorySyncConfig{})

	ok := s.MoveItem(context.Background(), model.MoveRequest{From: "A", To: "B", PartID: "3001", Quantity: 2, Kind: model.KindSet})

	assert.True(t, ok)
	assert.Equal(t, 0, remote.count("A", "3001"))
	assert.Equal(t, 2, remote.count("B", "3001"))
	assert.Equal(t, []string{"remove:A", "add:B"}, remote.calls)
	assert.Empty(t, rec.Toasts())
	assert.NoError(t, s.Err())
	assert.False(t, s.IsLoading())
}

func TestMoveItem_RemoveFailsSkipsAdd(t *testing.T) {
	remote := newFakeRemote()
	remote.put("A", "3001", 2)
	remote.removeErr = statusErr(http.StatusNotFound)
	s, rec := newSync(remote, fullIdentity, InventorySyncConfig{})

	ok := s.MoveItem(context.Background(), model.MoveRequest{From: "A", To: "B", PartID: "3001", Quantity: 2})

	assert.False(t, ok)
	assert.Equal(t, []string{"remove:A"}, remote.calls, "no add after a failed removal")
	assert.Equal(t, 2, remote.count("A", "3001"))
	assert.Equal(t, 0, remote.count("B", "3001"))
	assert.True(t, rebrickable.IsStatus(s.Err(), http.StatusNotFound))

	toasts := rec.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Failed to move brick between sets", toasts[0].Message)
	assert.Equal(t, notify.Danger, toasts[0].Severity)
}

func TestMoveItem_AddFailsLeavesPartInNeither(t *testing.T) {
	remote := newFakeRemote()
	remote.put("A", "3001", 2)
	remote.addErr["B"] = statusErr(http.StatusInternalServerError)
	s, rec := newSync(remote, fullIdentity, InventorySyncConfig{})

	ok := s.MoveItem(context.Background(), model.MoveRequest{From: "A", To: "B", PartID: "3001", Quantity: 2})

	assert.False(t, ok)
	assert.Equal(t, 0, remote.count("A", "3001"), "source already decreased")
	assert.Equal(t, 0, remote.count("B", "3001"), "destination unchanged")
	assert.ErrorIs(t, s.Err(), ErrMoveIncomplete)
	assert.True(t, rebrickable.IsStatus(s.Err(), http.StatusInternalServerError))
	assert.Len(t, rec.Toasts(), 1)
}

func TestMoveItem_Compensation(t *testing.T) {
	t.Run("restores source", func(t *testing.T) {
		remote := newFakeRemote()
		remote.put("A", "3001", 2)
		remote.addErr["B"] = statusErr(http.StatusBadGateway)
		s, rec := newSync(remote, fullIdentity, InventorySyncConfig{CompensateMoves: true})

		ok := s.MoveItem(context.Background(), model.MoveRequest{From: "A", To: "B", PartID: "3001", Quantity: 2, Kind: model.KindPartList})

		assert.False(t, ok)
		assert.Equal(t, 2, remote.count("A", "3001"))
		assert.Equal(t, []string{"remove:A", "add:B", "add:A"}, remote.calls)

		toasts := rec.Toasts()
		require.Len(t, toasts, 2)
		assert.Equal(t, "Failed to move brick between partlists", toasts[0].Message)
		assert.Equal(t, notify.Info, toasts[1].Severity)
	})

	t.Run("restore fails", func(t *testing.T) {
		remote := newFakeRemote()
		remote.put("A", "3001", 2)
		remote.addErr["B"] = statusErr(http.StatusBadGateway)
		remote.addErr["A"] = statusErr(http.StatusBadGateway)
		s, rec := newSync(remote, fullIdentity, InventorySyncConfig{CompensateMoves: true})

		assert.False(t, s.MoveItem(context.Background(), model.MoveRequest{From: "A", To: "B", PartID: "3001", Quantity: 2}))
		assert.Equal(t, 0, remote.count("A", "3001"))

		toasts := rec.Toasts()
		require.Len(t, toasts, 2)
		assert.Equal(t, notify.Danger, toasts[1].Severity)
	})
}

func TestSearch_PartListWithoutToken(t *testing.T) {
	remote := newFakeRemote()
	id := &model.Identity{ID: "u1", DisplayName: "x", APIKey: "k"}
	s, rec := newSync(remote, id, InventorySyncConfig{})

	items := s.Search(context.Background(), "brick", model.SearchFilters{PartList: "77"})

	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, remote.calls)
	toasts := rec.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.Warning, toasts[0].Severity)
}

func TestSearch_MissingKey(t *testing.T) {
	for name, id := range map[string]*model.Identity{
		"signed out": nil,
		"no key":     {ID: "u1", DisplayName: "x"},
	} {
		t.Run(name, func(t *testing.T) {
			remote := newFakeRemote()
			s, rec := newSync(remote, id, InventorySyncConfig{})

			assert.Empty(t, s.Search(context.Background(), "brick", model.SearchFilters{}))
			assert.Empty(t, remote.calls)
			toasts := rec.Toasts()
			require.Len(t, toasts, 1)
			assert.Equal(t, "Please add your Rebrickable API key in profile settings", toasts[0].Message)
		})
	}
}

func TestSearch_CatalogNeedsOnlyKey(t *testing.T) {
	remote := newFakeRemote()
	remote.items = []model.InventoryItem{{PartID: "3001", Name: "Brick"}}
	s, rec := newSync(remote, &model.Identity{ID: "u1", APIKey: "k"}, InventorySyncConfig{})

	items := s.Search(context.Background(), "brick", model.SearchFilters{})
	assert.Len(t, items, 1)
	assert.Empty(t, rec.Toasts())
}

func TestSearch_FailureSetsErrorAndClearsOnNextCall(t *testing.T) {
	remote := newFakeRemote()
	remote.searchErr = statusErr(http.StatusServiceUnavailable)
	s, rec := newSync(remote, fullIdentity, InventorySyncConfig{})

	assert.Empty(t, s.Search(context.Background(), "brick", model.SearchFilters{}))
	require.Error(t, s.Err())
	require.Len(t, rec.Toasts(), 1)
	assert.Equal(t, "Failed to search bricks", rec.Toasts()[0].Message)

	remote.searchErr = nil
	s.Search(context.Background(), "brick", model.SearchFilters{})
	assert.NoError(t, s.Err())
	assert.False(t, s.IsLoading())
}

func TestListSets(t *testing.T) {
	t.Run("missing credentials is silent", func(t *testing.T) {
		remote := newFakeRemote()
		s, rec := newSync(remote, &model.Identity{ID: "u1", APIKey: "k"}, InventorySyncConfig{})

		assert.Empty(t, s.ListSets(context.Background()))
		assert.Empty(t, s.ListPartLists(context.Background()))
		assert.Empty(t, s.ListItemsInContainer(context.Background(), "1", model.KindSet))
		assert.Empty(t, remote.calls)
		assert.Empty(t, rec.Toasts())
		assert.NoError(t, s.Err())
	})

	t.Run("stores listing", func(t *testing.T) {
		remote := newFakeRemote()
		remote.sets = []model.Container{{Kind: model.KindSet, ID: "10294-1", Name: "Titanic"}}
		s, _ := newSync(remote, fullIdentity, InventorySyncConfig{})

		got := s.ListSets(context.Background())
		assert.Equal(t, remote.sets, got)
		assert.Equal(t, remote.sets, s.Sets())
		assert.Empty(t, s.PartLists())

		remote.partLists = []model.Container{{Kind: model.KindPartList, ID: "77", Name: "Spares"}}
		assert.Equal(t, remote.partLists, s.ListPartLists(context.Background()))
		assert.Equal(t, remote.partLists, s.PartLists())
	})

	t.Run("failure keeps previous listing", func(t *testing.T) {
		remote := newFakeRemote()
		remote.sets = []model.Container{{Kind: model.KindSet, ID: "1"}}
		s, rec := newSync(remote, fullIdentity, InventorySyncConfig{})
		s.ListSets(context.Background())

		remote.listErr = errors.New("boom")
		assert.Empty(t, s.ListSets(context.Background()))
		assert.Len(t, s.Sets(), 1)
		require.Len(t, rec.Toasts(), 1)
		assert.Equal(t, "Failed to fetch your LEGO sets", rec.Toasts()[0].Message)
	})
}

func TestAddAndRemoveItem(t *testing.T) {
	remote := newFakeRemote()
	s, rec := newSync(remote, fullIdentity, InventorySyncConfig{})
	ctx := context.Background()

	require.True(t, s.AddItem(ctx, "A", "3001", 3, model.KindSet))
	assert.Equal(t, 3, remote.count("A", "3001"))
	require.True(t, s.RemoveItem(ctx, "A", "3001", model.KindSet))
	assert.Equal(t, 0, remote.count("A", "3001"))
	assert.Empty(t, rec.Toasts())

	remote.addErr["A"] = statusErr(http.StatusBadRequest)
	assert.False(t, s.AddItem(ctx, "A", "3001", 1, model.KindPartList))
	require.Len(t, rec.Toasts(), 1)
	assert.Equal(t, "Failed to add brick to part-list", rec.Toasts()[0].Message)

	remote.removeErr = statusErr(http.StatusNotFound)
	assert.False(t, s.RemoveItem(ctx, "A", "3001", model.KindSet))
	assert.Equal(t, "Failed to delete brick from set", rec.Toasts()[1].Message)
}

func TestMutationsNeedCredentials(t *testing.T) {
	remote := newFakeRemote()
	s, rec := newSync(remote, &model.Identity{ID: "u1", APIKey: "k"}, InventorySyncConfig{})
	ctx := context.Background()

	assert.False(t, s.AddItem(ctx, "A", "3001", 1, model.KindSet))
	assert.False(t, s.RemoveItem(ctx, "A", "3001", model.KindSet))
	assert.False(t, s.MoveItem(ctx, model.MoveRequest{From: "A", To: "B", PartID: "3001", Quantity: 1}))
	assert.Empty(t, remote.calls)
	assert.Len(t, rec.Toasts(), 3)
	for _, toast := range rec.Toasts() {
		assert.Equal(t, notify.Warning, toast.Severity)
	}
}

// blockingRemote parks SearchParts until released so the busy flag can be observed.
type blockingRemote struct {
	*fakeRemote
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) SearchParts(ctx context.Context, c rebrickable.Credentials, q string, f model.SearchFilters) ([]model.InventoryItem, error) {
	close(b.entered)
	<-b.release
	return b.fakeRemote.SearchParts(ctx, c, q, f)
}

func TestIsLoadingDuringCall(t *testing.T) {
	remote := &blockingRemote{fakeRemote: newFakeRemote(), entered: make(chan struct{}), release: make(chan struct{})}
	s, _ := newSync(remote, fullIdentity, InventorySyncConfig{})

	done := make(chan struct{})
	go func() {
		s.Search(context.Background(), "brick", model.SearchFilters{})
		close(done)
	}()

	<-remote.entered
	assert.True(t, s.IsLoading())
	close(remote.release)
	<-done
	assert.False(t, s.IsLoading())
}
