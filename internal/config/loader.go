// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  0. Built-in defaults (defaults.go).
  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `FOLIO_`, where `__` maps to “.”
     (e.g., `FOLIO_HTTP__LISTEN_ADDR → http.listen_addr`).  `FOLIO_MAIL__TO`
     may hold a comma-separated list.

After merging, every `vault:` string is resolved, the tree is unmarshalled
into strongly-typed structs, validated, enriched with the runtime root
path, and cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, vault resolution.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/vault"
)

const envPrefix = "FOLIO_"

var current atomic.Pointer[Config]

// Resolver turns a vault: reference into its secret value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// newResolver is swapped in tests.
var newResolver = func() (Resolver, error) { return vault.New() }

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves FOLIO_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("FOLIO_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads defaults, .env, YAML, env overrides, resolves secrets,
// validates, and caches Config.
func Load(ctx context.Context) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("config default %s: %w", key, err)
		}
	}

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("config yaml %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: FOLIO_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := resolveSecrets(ctx, k); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	cfg.Paths.Root = root
	if cfg.Geo.DBPath != "" && !filepath.IsAbs(cfg.Geo.DBPath) {
		cfg.Geo.DBPath = filepath.Join(root, cfg.Geo.DBPath)
	}
	if cfg.Form.Definition != "" && !filepath.IsAbs(cfg.Form.Definition) {
		cfg.Form.Definition = filepath.Join(root, cfg.Form.Definition)
	}
	if cfg.Database.Driver == "sqlite" && isRelativeFile(cfg.Database.DSN) {
		cfg.Database.DSN = filepath.Join(root, cfg.Database.DSN)
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, fmt.Errorf("config invalid: %w", err)
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"db_driver", cfg.Database.Driver,
		"mail_host", cfg.Mail.Host,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps FOLIO_A__B_C to a.b_c and splits list-valued keys.
func envKey(key, value string) (string, any) {
	k := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, envPrefix), "__", "."))
	if k == "root" {
		return "", nil // FOLIO_ROOT is consumed by rootDir.
	}
	if k == "mail.to" {
		var list []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		return k, list
	}
	return k, value
}

// resolveSecrets replaces every vault: string in k.  The Vault client is
// only built when at least one reference is present.
func resolveSecrets(ctx context.Context, k *koanf.Koanf) error {
	var refs []string
	for key, val := range k.All() {
		if s, ok := val.(string); ok && vault.IsRef(s) {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	sort.Strings(refs)

	r, err := newResolver()
	if err != nil {
		return fmt.Errorf("config vault: %w", err)
	}
	for _, key := range refs {
		val, err := r.Resolve(ctx, k.String(key))
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// isRelativeFile reports whether a SQLite DSN names a relative file path.
func isRelativeFile(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, "file:") && !strings.HasPrefix(dsn, ":memory:") &&
		!filepath.IsAbs(dsn)
}

// Get returns the most recently loaded Config, or nil before Load.
func Get() *Config { return current.Load() }
