//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, client IP, country, URL, and timestamp).
//  These structs are inert.  They contain no pointers to database
//  handles or large buffers, so they are safe to log or JSON-encode.
//
//  The contact form reads them twice: the archive stores a sender
//  fingerprint next to each message, and bot user-agents are turned away
//  before a submission reaches the dispatcher.
//
//  Dependencies
//  • internal/ua                          (uasurfer wrapper)
//  • github.com/oschwald/geoip2-golang    (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/folio/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Geo holds IP-based geolocation hints.
// These are best-effort and may be empty if the DB has no match.
type Geo struct {
	IP         net.IP // Left-most client address
	CountryISO string // "US", "CA", "FR", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA          ua.Info
	Geo         Geo
	PrimaryLang string   // First tag from Accept-Language ("en", "es", ...)
	URL         *url.URL // Pointer copy, safe to dereference read-only
	Timestamp   time.Time
}

// ClientIP returns the client address as text, or "" when unknown.
func (ri *RequestInfo) ClientIP() string {
	if ri == nil || ri.Geo.IP == nil {
		return ""
	}
	return ri.Geo.IP.String()
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle.  It is safe for concurrent
// reads, which is all we ever perform.  Nil means geo lookups are off.
var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens a GeoLite2 Country (or City) database.  An empty path
// leaves lookups disabled and is not an error.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB %s: %w", dbPath, err)
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the MaxMind handle, if any.
func CloseGeo() {
	if r := geoReader.Swap(nil); r != nil {
		_ = r.Close()
	}
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// NewContext returns a copy of ctx carrying ri.  Enrich uses it; tests and
// background jobs may too.
func NewContext(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

// IsBot reports whether the request in ctx came from a known crawler.
func IsBot(ctx context.Context) bool {
	ri := FromContext(ctx)
	return ri != nil && ri.UA.IsBot
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	parts := strings.Split(al, ",")
	tag := strings.TrimSpace(parts[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := r.Country(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode}
}
