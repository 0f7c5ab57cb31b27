// Package cookies stores small user preferences as named string cookies
package cookies

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is the lifetime given to every cookie written by a store
const DefaultTTL = 365 * 24 * time.Hour

// Undefined is the textual marker used by callers that render an absent cookie
const Undefined = "undefined"

const (
	alertKey     = "dont_show_cookie_alert"
	reservoirKey = "reservoir"
)

// Store defines get/set access to named cookie values
type Store interface {
	Set(name, value string) error
	Get(name string) (string, bool)
}

type entry struct {
	value   string // percent-encoded
	path    string
	expires time.Time
}

// Document keeps cookies the way a browser document does: a single
// "; "-separated string of name=value pairs with per-cookie expiry
type Document struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	order   []string
	entries map[string]entry
}

// NewDocument creates an empty cookie document.
// A zero ttl falls back to DefaultTTL.
func NewDocument(clock clockwork.Clock, ttl time.Duration) *Document {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Document{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// TTL returns the expiration policy of the document
func (d *Document) TTL() time.Duration {
	return d.ttl
}

// Set writes name=value with path=/ and the document max-age
func (d *Document) Set(name, value string) error {
	if name == "" || strings.ContainsAny(name, "=; ") {
		return fmt.Errorf("failed to set cookie: invalid name %q", name)
	}
	d.SetCookie(fmt.Sprintf("%s=%s; path=/; max-age=%d", name, url.PathEscape(value), int64(d.ttl/time.Second)))
	return nil
}

// SetCookie applies a raw cookie assignment such as "name=value; path=/; max-age=60".
// A non-positive max-age removes the cookie. Assignments without a name are ignored.
func (d *Document) SetCookie(raw string) {
	parts := strings.Split(raw, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !ok || name == "" {
		log.Debug().Str("cookie", raw).Msg("Ignoring cookie assignment without a name")
		return
	}

	e := entry{value: value, path: "/", expires: d.clock.Now().Add(d.ttl)}
	for _, attr := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(attr), "=")
		switch strings.ToLower(key) {
		case "path":
			e.path = val
		case "max-age":
			seconds, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				continue
			}
			e.expires = d.clock.Now().Add(time.Duration(seconds) * time.Second)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !e.expires.After(d.clock.Now()) {
		d.remove(name)
		return
	}
	if _, exists := d.entries[name]; !exists {
		d.order = append(d.order, name)
	}
	d.entries[name] = e
}

// Cookie returns the live cookies as a "; "-separated name=value string
func (d *Document) Cookie() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	pairs := make([]string, 0, len(d.order))
	for _, name := range d.order {
		e := d.entries[name]
		if !e.expires.After(now) {
			continue
		}
		pairs = append(pairs, name+"="+e.value)
	}
	return strings.Join(pairs, "; ")
}

// Get returns the decoded value of the named cookie
func (d *Document) Get(name string) (string, bool) {
	return Lookup(d.Cookie(), name)
}

// Lookup finds name in a document cookie string. Only an exact "name=" prefix
// of a "; "-separated entry matches; the last matching entry wins. Only the
// matched value is decoded, and a value that fails to decode is not found.
func Lookup(cookie, name string) (string, bool) {
	prefix := name + "="
	raw, found := "", false
	for _, c := range strings.Split(cookie, "; ") {
		if strings.HasPrefix(c, prefix) {
			raw, found = c[len(prefix):], true
		}
	}
	if !found {
		return "", false
	}

	value, err := url.PathUnescape(raw)
	if err != nil {
		log.Warn().Err(err).Str("cookie", name).Msg("Malformed cookie value")
		return "", false
	}
	return value, true
}

func (d *Document) remove(name string) {
	if _, exists := d.entries[name]; !exists {
		return
	}
	delete(d.entries, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// DismissCookieAlert records that the cookie consent banner was closed
func DismissCookieAlert(s Store) error {
	return s.Set(alertKey, "true")
}

// CookieAlertDismissed reports whether the consent banner should stay hidden
func CookieAlertDismissed(s Store) bool {
	v, ok := s.Get(alertKey)
	return ok && v == "true"
}

// RememberReservoir stores the slug of the selected reservoir
func RememberReservoir(s Store, slug string) error {
	return s.Set(reservoirKey, slug)
}

// SelectedReservoir returns the remembered reservoir slug, or "" when none is stored
func SelectedReservoir(s Store) string {
	v, _ := s.Get(reservoirKey)
	return v
}
