package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"brickvault-api/internal/cache"
	"brickvault-api/pkg/uid"
)

// Persistence is the scoped storage medium of one session snapshot.
// Save overwrites the snapshot wholesale; when two writers share a scope
// (two browser tabs) the last write wins and nothing is merged.
type Persistence interface {
	// Load returns the stored value. ok is false when nothing is stored.
	Load(ctx context.Context) (value string, ok bool, err error)
	// Save stores value for ttl.
	Save(ctx context.Context, value string, ttl time.Duration) error
	// Clear invalidates the stored value.
	Clear(ctx context.Context) error
}

// expiredAt is the "already expired" date written when a cookie is cleared.
var expiredAt = time.Unix(0, 0).UTC()

// CookiePersistence stores the snapshot itself in a browser cookie.
// Writes made during a request are visible to later reads of the same request.
type CookiePersistence struct {
	r      *http.Request
	w      http.ResponseWriter
	name   string
	secure bool

	mu      sync.Mutex
	written bool
	value   string
}

// NewCookiePersistence binds cookie storage to one request/response pair.
func NewCookiePersistence(w http.ResponseWriter, r *http.Request, name string, secure bool) *CookiePersistence {
	return &CookiePersistence{r: r, w: w, name: name, secure: secure}
}

// Load reads the cookie from the request, or the value written earlier in this request.
func (p *CookiePersistence) Load(ctx context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.written {
		return p.value, p.value != "", nil
	}
	c, err := p.r.Cookie(p.name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if c.Value == "" {
		return "", false, nil
	}
	return c.Value, true, nil
}

// Save writes the cookie with Max-Age equal to ttl.
func (p *CookiePersistence) Save(ctx context.Context, value string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	http.SetCookie(p.w, &http.Cookie{
		Name:     p.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	p.written = true
	p.value = value
	return nil
}

// Clear overwrites the cookie with an empty, already-expired one.
func (p *CookiePersistence) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	http.SetCookie(p.w, &http.Cookie{
		Name:     p.name,
		Value:    "",
		Path:     "/",
		Expires:  expiredAt,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	p.written = true
	p.value = ""
	return nil
}

// KeyedPersistence stores the snapshot server-side in a cache, keyed by an
// opaque session id. Save and Clear move the session to a freshly issued id
// and drop the old entry, so an id known before a sign-in or sign-out never
// reaches the identity stored after it.
type KeyedPersistence struct {
	cache  cache.Cache
	prefix string
	issue  func(sid string)

	mu  sync.Mutex
	sid string
}

// NewKeyedPersistence scopes c to prefix+sid. An empty sid means no session
// exists yet. issue is called with every newly minted id and may be nil.
func NewKeyedPersistence(c cache.Cache, prefix, sid string, issue func(sid string)) *KeyedPersistence {
	return &KeyedPersistence{cache: c, prefix: prefix, sid: sid, issue: issue}
}

// Load reads the snapshot; a cache miss is not an error.
func (p *KeyedPersistence) Load(ctx context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sid == "" {
		return "", false, nil
	}
	data, err := p.cache.Get(ctx, p.prefix+p.sid)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), len(data) > 0, nil
}

// Save stores the snapshot for ttl under a new session id.
func (p *KeyedPersistence) Save(ctx context.Context, value string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sid := uid.NewKSUID()
	if err := p.cache.Set(ctx, p.prefix+sid, []byte(value), ttl); err != nil {
		return err
	}
	return p.rotate(ctx, sid)
}

// Clear deletes the snapshot and moves the session to a new, empty id.
func (p *KeyedPersistence) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sid == "" {
		return nil
	}
	return p.rotate(ctx, uid.NewKSUID())
}

// rotate switches to sid and deletes the entry of the previous id.
func (p *KeyedPersistence) rotate(ctx context.Context, sid string) error {
	old := p.sid
	p.sid = sid
	if p.issue != nil {
		p.issue(sid)
	}
	if old == "" {
		return nil
	}
	if err := p.cache.Delete(ctx, p.prefix+old); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}
	return nil
}

var (
	_ Persistence = (*CookiePersistence)(nil)
	_ Persistence = (*KeyedPersistence)(nil)
)
