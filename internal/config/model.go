// internal/config/model.go
//
// Typed configuration model for Folio.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `FOLIO_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations are strings in YAML ("7s", "30m").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	// AdminToken guards the archive listing.  Empty disables the route.
	AdminToken string `koanf:"admin_token" validate:"omitempty,min=16"`
}

//
// Log section
//

// Log selects the minimum level written to the daily file.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Database section
//

// Database holds the archive DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  The *secret* (`Password`) is usually a
// vault: reference and replaces the `{password}` placeholder at runtime.
type Database struct {
	Driver   string `koanf:"driver"   validate:"required,oneof=sqlite mysql"`
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
}

// ResolvedDSN substitutes Password into DSN.
func (d Database) ResolvedDSN() string {
	return strings.ReplaceAll(d.DSN, "{password}", d.Password)
}

//
// Mail section
//

// Mail configures the SMTP relay used by the form's email action.
type Mail struct {
	Host     string   `koanf:"host"`
	Port     string   `koanf:"port"     validate:"omitempty,numeric"`
	Username string   `koanf:"username"`
	Password string   `koanf:"password"`
	From     string   `koanf:"from"     validate:"omitempty,email"`
	To       []string `koanf:"to"       validate:"omitempty,dive,email"`
}

//
// Form section
//

// Form tunes the contact form.
type Form struct {
	Definition    string        `koanf:"definition"`
	ResetDelay    time.Duration `koanf:"reset_delay"    validate:"gte=0"`
	MinFillTime   time.Duration `koanf:"min_fill_time"  validate:"gte=0"`
	TokenMaxAge   time.Duration `koanf:"token_max_age"  validate:"gte=0"`
	ActionTimeout time.Duration `koanf:"action_timeout" validate:"gte=0"`
	CSRFKey       string        `koanf:"csrf_key"`
	RejectBots    bool          `koanf:"reject_bots"`
}

//
// Session section
//

// Session tunes the in-memory visitor store.
type Session struct {
	CookieName    string        `koanf:"cookie_name"`
	IdleTTL       time.Duration `koanf:"idle_ttl"       validate:"gte=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"gte=0"`
	EvictInterval time.Duration `koanf:"evict_interval" validate:"gte=0"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2 database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or FOLIO_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FOLIO_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
	Database Database `koanf:"database"`
	Mail     Mail     `koanf:"mail"`
	Form     Form     `koanf:"form"`
	Session  Session  `koanf:"session"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
