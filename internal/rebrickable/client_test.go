package rebrickable

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickvault-api/internal/model"
)

var creds = Credentials{APIKey: "k3y", UserToken: "tok"}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, nil), srv
}

func TestSearchParts_QueryAndHeaders(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"count":2,"next":null,"results":[
			{"part_num":"3001","name":"Brick 2 x 4","part_img_url":"https://img/3001.jpg"},
			{"part_num":"3003","name":"Brick 2 x 2","color":{"name":"Red"}}
		]}`)
	})

	items, err := c.SearchParts(context.Background(), Credentials{APIKey: "k3y"}, "brick 2x4", model.SearchFilters{
		Color:    "4",
		Category: "11",
		Year:     "1999",
		SortBy:   model.SortPartCount,
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "/lego/parts/", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "brick 2x4", q.Get("search"))
	assert.Equal(t, "20", q.Get("page_size"))
	assert.Equal(t, "4", q.Get("color"))
	assert.Equal(t, "11", q.Get("category"))
	assert.Equal(t, "1999", q.Get("year"))
	assert.Equal(t, "num_parts", q.Get("ordering"))
	assert.Equal(t, "key k3y", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Empty(t, got.Header.Get("Content-Type"))

	require.Len(t, items, 2)
	assert.Equal(t, model.InventoryItem{
		PartID:       "3001",
		Name:         "Brick 2 x 4",
		Color:        model.DefaultColor,
		ImageURL:     "https://img/3001.jpg",
		CanonicalURL: "https://rebrickable.com/parts/3001/",
	}, items[0])
	assert.Equal(t, "Red", items[1].Color)
	assert.Nil(t, items[1].Quantity)
}

func TestSearchParts_RelevanceOmitsOrdering(t *testing.T) {
	for _, sort := range []model.SortOrder{"", model.SortRelevance, "bogus"} {
		var ordering []string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			ordering = r.URL.Query()["ordering"]
			_, _ = io.WriteString(w, `{"results":[]}`)
		})
		items, err := c.SearchParts(context.Background(), creds, "x", model.SearchFilters{SortBy: sort})
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Empty(t, ordering, "sort %q", sort)
	}
}

func TestSearchParts_PartListTarget(t *testing.T) {
	var path string
	var query string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"results":[{"part":{"part_num":"3001","name":"Brick"},"color":{"name":"Blue"},"quantity":4}]}`)
	})

	items, err := c.SearchParts(context.Background(), creds, "ignored", model.SearchFilters{PartList: "77", Color: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "/users/tok/partlists/77/parts/", path)
	assert.Equal(t, "page_size=20", query)
	require.Len(t, items, 1)
	assert.Equal(t, "Blue", items[0].Color)
	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, 4, *items[0].Quantity)
}

func TestClient_MissingCredentialsMakesNoCall(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	ctx := context.Background()
	keyOnly := Credentials{APIKey: "k"}

	_, err := c.SearchParts(ctx, Credentials{}, "x", model.SearchFilters{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = c.SearchParts(ctx, keyOnly, "x", model.SearchFilters{PartList: "1"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = c.ListSets(ctx, keyOnly)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = c.ListPartLists(ctx, keyOnly)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = c.ListContainerParts(ctx, keyOnly, model.KindSet, "1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.ErrorIs(t, c.AddPart(ctx, keyOnly, model.KindSet, "1", "3001", 1), ErrMissingCredentials)
	assert.ErrorIs(t, c.RemovePart(ctx, keyOnly, model.KindSet, "1", "3001"), ErrMissingCredentials)

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestAddAndRemovePart(t *testing.T) {
	type call struct {
		method, path, contentType string
		body                      map[string]any
	}
	var calls []call
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cl := call{method: r.Method, path: r.URL.Path, contentType: r.Header.Get("Content-Type")}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				assert.NoError(t, json.Unmarshal(data, &cl.body))
			}
		}
		calls = append(calls, cl)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.AddPart(ctx, creds, model.KindSet, "10030-1", "3001", 3))
	require.NoError(t, c.RemovePart(ctx, creds, model.KindPartList, "42", "3001"))

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/users/tok/sets/10030-1/parts/", calls[0].path)
	assert.Equal(t, "application/json", calls[0].contentType)
	assert.Equal(t, map[string]any{"part": "3001", "quantity": float64(3)}, calls[0].body)

	assert.Equal(t, http.MethodDelete, calls[1].method)
	assert.Equal(t, "/users/tok/partlists/42/parts/3001/", calls[1].path)
	assert.Empty(t, calls[1].contentType)
}

func TestHTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
	})

	err := c.RemovePart(context.Background(), creds, model.KindSet, "1", "3001")
	require.Error(t, err)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
	assert.Equal(t, "remove part", he.Op)
	assert.Equal(t, `{"detail":"Not found."}`, he.Body)
	assert.NotContains(t, he.URL, "tok")
	assert.Contains(t, err.Error(), "Not found.")
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, IsStatus(err, http.StatusInternalServerError))
}

func TestListSets_FollowsNext(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"count":2,"next":null,"results":[
				{"set_num":"6080-1","name":"King's Castle","year":1984,"num_parts":667}
			]}`)
			return
		}
		_, _ = io.WriteString(w, `{"count":2,"next":"`+srv.URL+`/users/tok/sets/?page=2","results":[
			{"set":{"set_num":"10030-1","name":"Star Destroyer","year":2002,"num_parts":3104,"set_img_url":"https://img/10030.jpg"},"quantity":1}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	sets, err := c.ListSets(context.Background(), creds)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, model.Container{
		Kind: model.KindSet, ID: "10030-1", Name: "Star Destroyer", NumParts: 3104,
		Quantity: 1, Year: 2002, ImageURL: "https://img/10030.jpg",
	}, sets[0])
	assert.Equal(t, "6080-1", sets[1].ID)
	assert.Equal(t, 1984, sets[1].Year)
}

func TestListPartLists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/tok/partlists/", r.URL.Path)
		_, _ = io.WriteString(w, `{"results":[
			{"id":77,"name":"Spares","num_parts":120,"is_buildable":false,"is_private":true},
			{"id":"78","name":"Wishlist","num_parts":3,"is_buildable":true}
		]}`)
	})

	lists, err := c.ListPartLists(context.Background(), creds)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, model.Container{Kind: model.KindPartList, ID: "77", Name: "Spares", NumParts: 120, Private: true}, lists[0])
	assert.Equal(t, "78", lists[1].ID)
	assert.True(t, lists[1].Buildable)
}

func TestClient_DetachedFromCallerCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListSets(ctx, creds)
	assert.NoError(t, err)
}

func TestListSets_NextLinkMustStayOnHost(t *testing.T) {
	var foreignHits int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&foreignHits, 1)
		_, _ = io.WriteString(w, `{"next":null,"results":[]}`)
	}))
	defer foreign.Close()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"next":"`+foreign.URL+`/users/tok/sets/?page=2","results":[]}`)
	})

	sets, err := c.ListSets(context.Background(), creds)
	assert.ErrorIs(t, err, ErrForeignNextLink)
	assert.Nil(t, sets)
	assert.Zero(t, atomic.LoadInt32(&foreignHits), "the API key must not be sent to another host")
}

func TestListSets_RepeatedNextStops(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{"next":"/api/v3/users/tok/sets/?page=2","results":[
			{"set":{"set_num":"10030-1","name":"Star Destroyer"},"quantity":1}
		]}`)
	})

	sets, err := c.ListSets(context.Background(), creds)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
