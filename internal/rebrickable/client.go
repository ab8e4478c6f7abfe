// Package rebrickable talks to the Rebrickable v3 REST API on behalf of one
// user: listing their sets and part-lists, searching the parts catalog and
// changing container contents.
package rebrickable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/pkg/logger"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://rebrickable.com/api/v3"
	// DefaultSiteURL is the root used for canonical part links.
	DefaultSiteURL = "https://rebrickable.com"
	// PageSize is the fixed page size of catalog searches.
	PageSize = 20

	maxErrorBody = 4 << 10
)

// ErrMissingCredentials is returned when a call is made without the
// credentials it needs. No request is sent.
var ErrMissingCredentials = errors.New("rebrickable: missing credentials")

// ErrForeignNextLink is returned when a listing points its next page at a
// host other than the API's.
var ErrForeignNextLink = errors.New("rebrickable: next link leaves the API host")

// Credentials authenticate one user against the API.
type Credentials struct {
	APIKey    string
	UserToken string
}

// HasKey reports whether an API key is present.
func (c Credentials) HasKey() bool { return c.APIKey != "" }

// Complete reports whether both the API key and user token are present.
func (c Credentials) Complete() bool { return c.APIKey != "" && c.UserToken != "" }

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Status)
	if e.Body != "" {
		msg += ". " + e.Body
	}
	return msg
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

// Client is a Rebrickable API client. It is safe for concurrent use.
//
// Requests are not bound to the caller's cancellation and carry no timeout
// of their own: once issued they run to completion or transport failure.
type Client struct {
	baseURL string
	siteURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*Client)

// WithSiteURL sets the root used for canonical part links.
func WithSiteURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.siteURL = strings.TrimRight(u, "/")
		}
	}
}

// NewClient creates a client rooted at baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, l *zap.SugaredLogger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		siteURL: DefaultSiteURL,
		http:    &http.Client{},
		log:     logger.OrNop(l).Named("rebrickable"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type page struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

type partBody struct {
	Part     string `json:"part"`
	Quantity int    `json:"quantity"`
}

// ListSets returns the user's sets.
func (c *Client) ListSets(ctx context.Context, creds Credentials) ([]model.Container, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	raw, err := c.getAll(ctx, "list sets", c.userURL(creds, model.KindSet.PathSegment()), creds.APIKey)
	if err != nil {
		return nil, err
	}
	return normalizeContainers(model.KindSet, raw)
}

// ListPartLists returns the user's part-lists.
func (c *Client) ListPartLists(ctx context.Context, creds Credentials) ([]model.Container, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	raw, err := c.getAll(ctx, "list part-lists", c.userURL(creds, model.KindPartList.PathSegment()), creds.APIKey)
	if err != nil {
		return nil, err
	}
	return normalizeContainers(model.KindPartList, raw)
}

// SearchParts searches the parts catalog. When filters.PartList is set the
// query and other filters are ignored and the part-list contents are
// returned instead, which also needs the user token.
func (c *Client) SearchParts(ctx context.Context, creds Credentials, query string, filters model.SearchFilters) ([]model.InventoryItem, error) {
	if !creds.HasKey() {
		return nil, ErrMissingCredentials
	}

	if filters.PartList != "" {
		if creds.UserToken == "" {
			return nil, ErrMissingCredentials
		}
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(PageSize))
		u := c.userURL(creds, model.KindPartList.PathSegment(), filters.PartList, "parts") + "?" + q.Encode()
		p, err := c.getPage(ctx, "search part-list", u, creds.APIKey)
		if err != nil {
			return nil, err
		}
		return normalizeItems(SourcePartList, p.Results, c.siteURL)
	}

	q := url.Values{}
	q.Set("search", query)
	q.Set("page_size", fmt.Sprint(PageSize))
	if filters.Color != "" {
		q.Set("color", filters.Color)
	}
	if filters.Category != "" {
		q.Set("category", filters.Category)
	}
	if filters.Year != "" {
		q.Set("year", filters.Year)
	}
	if ordering := Ordering(filters.SortBy); ordering != "" {
		q.Set("ordering", ordering)
	}

	p, err := c.getPage(ctx, "search parts", c.baseURL+"/lego/parts/?"+q.Encode(), creds.APIKey)
	if err != nil {
		return nil, err
	}
	return normalizeItems(SourceCatalog, p.Results, c.siteURL)
}

// ListContainerParts returns the parts inside one set or part-list.
func (c *Client) ListContainerParts(ctx context.Context, creds Credentials, kind model.ContainerKind, containerID string) ([]model.InventoryItem, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	raw, err := c.getAll(ctx, "list "+string(kind)+" parts", c.userURL(creds, kind.PathSegment(), containerID, "parts"), creds.APIKey)
	if err != nil {
		return nil, err
	}
	src := SourceSet
	if kind == model.KindPartList {
		src = SourcePartList
	}
	return normalizeItems(src, raw, c.siteURL)
}

// AddPart adds quantity of partID to the container.
func (c *Client) AddPart(ctx context.Context, creds Credentials, kind model.ContainerKind, containerID, partID string, quantity int) error {
	if !creds.Complete() {
		return ErrMissingCredentials
	}
	body, err := json.Marshal(partBody{Part: partID, Quantity: quantity})
	if err != nil {
		return fmt.Errorf("failed to marshal part body: %w", err)
	}
	u := c.userURL(creds, kind.PathSegment(), containerID, "parts")
	resp, err := c.do(ctx, "add part", http.MethodPost, u, creds.APIKey, body)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// RemovePart removes partID from the container.
func (c *Client) RemovePart(ctx context.Context, creds Credentials, kind model.ContainerKind, containerID, partID string) error {
	if !creds.Complete() {
		return ErrMissingCredentials
	}
	u := c.userURL(creds, kind.PathSegment(), containerID, "parts", partID)
	resp, err := c.do(ctx, "remove part", http.MethodDelete, u, creds.APIKey, nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// userURL builds /users/{token}/{segments...}/ with every segment escaped.
func (c *Client) userURL(creds Credentials, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/users/")
	b.WriteString(url.PathEscape(creds.UserToken))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	b.WriteByte('/')
	return b.String()
}

// getAll follows "next" links and returns every result. Links must stay on
// the API host, since each request carries the API key. A link already
// visited ends the walk.
func (c *Client) getAll(ctx context.Context, op, u, key string) ([]json.RawMessage, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}

	var out []json.RawMessage
	seen := make(map[string]bool)
	for u != "" {
		seen[u] = true
		p, err := c.getPage(ctx, op, u, key)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		if p.Next == nil || *p.Next == "" {
			break
		}

		next, err := url.Parse(u)
		if err == nil {
			next, err = next.Parse(*p.Next)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: bad next link: %w", op, err)
		}
		if next.Scheme != base.Scheme || next.Host != base.Host {
			return nil, fmt.Errorf("%w: %s", ErrForeignNextLink, next.Host)
		}
		u = next.String()
		if seen[u] {
			c.log.Warnw("pagination loop", "op", op, "url", redactUserPath(u))
			break
		}
	}
	return out, nil
}

func (c *Client) getPage(ctx context.Context, op, u, key string) (*page, error) {
	resp, err := c.do(ctx, op, http.MethodGet, u, key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return &p, nil
}

// do sends one request and returns the response for 2xx answers. Any other
// status is turned into an *HTTPError carrying the response text.
func (c *Client) do(ctx context.Context, op, method, u, key string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "key "+key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("request failed", "op", op, "method", method, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.log.Debugw("request completed",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Op:         op,
			Method:     method,
			URL:        redactUserPath(u),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(text)),
		}
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// redactUserPath hides the user token segment of a URL kept in errors.
func redactUserPath(u string) string {
	i := strings.Index(u, "/users/")
	if i < 0 {
		return u
	}
	rest := u[i+len("/users/"):]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return u[:i] + "/users/***"
	}
	return u[:i] + "/users/***" + rest[j:]
}
