// internal/session/cookie.go
//
// Folio – Visitor cookie.
//
// Context
//   Each browser is identified by a random UUID in the `folio_visitor`
//   cookie.  The id keys the in-memory form Store; it carries no personal
//   data and is never persisted server-side.  A missing or malformed cookie
//   is replaced with a fresh id.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is used when Cookies.Name is empty.
const DefaultCookieName = "folio_visitor"

// Cookies issues and reads the visitor cookie.
type Cookies struct {
	Name   string
	Secure bool          // Force the Secure flag (behind a TLS-terminating proxy).
	MaxAge time.Duration // Browser lifetime; session cookie when zero.
}

// VisitorID returns the id in r's cookie, minting and setting a new one
// on w when absent or invalid.
func (c Cookies) VisitorID(w http.ResponseWriter, r *http.Request) string {
	name := c.name()
	if ck, err := r.Cookie(name); err == nil {
		if id, err := uuid.Parse(ck.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	hc := &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if c.MaxAge > 0 {
		hc.MaxAge = int(c.MaxAge.Seconds())
	}
	http.SetCookie(w, hc)
	return id
}

// Clear expires the visitor cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (c Cookies) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}
