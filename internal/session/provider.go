package session

import (
	"net/http"
	"time"

	"brickvault-api/internal/cache"
	"brickvault-api/pkg/uid"
)

const (
	// DefaultCookieName names the cookie carrying the identity snapshot.
	DefaultCookieName = "lego_app_session"
	// DefaultSIDCookieName names the cookie carrying the opaque session id
	// when snapshots are kept server-side.
	DefaultSIDCookieName = "lego_app_sid"
)

// Provider chooses the Persistence for one request.
type Provider interface {
	ForRequest(w http.ResponseWriter, r *http.Request) Persistence
}

// CookieProvider keeps the snapshot in the browser.
type CookieProvider struct {
	Name   string
	Secure bool
}

// ForRequest binds a CookiePersistence to the request.
func (p CookieProvider) ForRequest(w http.ResponseWriter, r *http.Request) Persistence {
	name := p.Name
	if name == "" {
		name = DefaultCookieName
	}
	return NewCookiePersistence(w, r, name, p.Secure)
}

// KeyedProvider keeps the snapshot in a cache, keyed by an opaque session
// id cookie. The cookie is only issued once something is stored, and is
// reissued whenever the snapshot changes.
type KeyedProvider struct {
	Cache     cache.Cache
	SIDCookie string
	KeyPrefix string
	TTL       time.Duration
	Secure    bool
}

// ForRequest resolves the session id and scopes the cache to it. Cookie
// values that are not KSUIDs are ignored.
func (p KeyedProvider) ForRequest(w http.ResponseWriter, r *http.Request) Persistence {
	name := p.SIDCookie
	if name == "" {
		name = DefaultSIDCookieName
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	sid := ""
	if c, err := r.Cookie(name); err == nil && uid.IsKSUID(c.Value) {
		sid = c.Value
	}
	return NewKeyedPersistence(p.Cache, p.KeyPrefix+"session:", sid, func(sid string) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(ttl / time.Second),
			HttpOnly: true,
			Secure:   p.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	})
}
