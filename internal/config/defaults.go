// internal/config/defaults.go
//
// Built-in defaults, applied to the raw Koanf tree before any file or env
// layer so every later layer can override them.

package config

var defaults = map[string]any{
	"http.listen_addr":       ":8080",
	"http.force_https":       false,
	"log.level":              "info",
	"database.driver":        "sqlite",
	"database.dsn":           "data/folio.db?_pragma=busy_timeout(5000)",
	"mail.port":              "587",
	"form.reset_delay":       "7s",
	"form.min_fill_time":     "2s",
	"form.token_max_age":     "2h",
	"form.action_timeout":    "15s",
	"form.reject_bots":       true,
	"session.cookie_name":    "folio_visitor",
	"session.idle_ttl":       "30m",
	"session.max_entries":    1000,
	"session.evict_interval": "1m",
}
