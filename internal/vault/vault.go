// internal/vault/vault.go
//
// Vault client wrapper for Folio.
//
// Context
// -------
//   - Provides a concurrency-safe client around the HashiCorp Vault Go SDK.
//   - Resolves `vault:<mount>/<path>#<key>` references found in configuration
//     (SMTP password, database password, CSRF key) so secrets stay out of
//     conf/global.yaml and git history.
//   - Reads KV-v2 secrets with a small per-key cache.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New()                       // only when a ref exists.
//  2. pw,  err := cli.Resolve(ctx, "vault:kv/folio#smtp_password")
//
// Notes
// -----
//   - References are resolved once at config load.  The process does not
//     renew its token; restart to pick up a rotated secret.
//   - Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a configuration value as a Vault reference.
const RefPrefix = "vault:"

//
// SECTION 1.  Public façade
//

// ReadFunc returns the data map of a KV-v2 secret.
type ReadFunc func(ctx context.Context, mount, rel string) (map[string]any, error)

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	read ReadFunc

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a client from the standard Vault environment.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token with read access to the referenced paths.
func New() (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}
	zap.S().Debugw("vault client ready", "addr", apiCli.Address())

	return NewWithReader(func(ctx context.Context, mount, rel string) (map[string]any, error) {
		sec, err := apiCli.KVv2(mount).Get(ctx, rel)
		if err != nil {
			return nil, err
		}
		return sec.Data, nil
	}), nil
}

// NewWithReader builds a Client over an arbitrary secret source.
func NewWithReader(read ReadFunc) *Client {
	return &Client{read: read, cache: make(map[string]cached)}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	if rel == "" {
		return "", fmt.Errorf("secret path %q has no mount prefix", secretPath)
	}
	data, err := c.read(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

//
// SECTION 2.  References
//

// IsRef reports whether s is a vault: reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// ParseRef splits "vault:mount/path#key".
func ParseRef(s string) (path, key string, err error) {
	if !IsRef(s) {
		return "", "", fmt.Errorf("%q is not a vault reference", s)
	}
	path, key, ok := strings.Cut(strings.TrimPrefix(s, RefPrefix), "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("vault reference %q must look like vault:mount/path#key", s)
	}
	return path, key, nil
}

// Resolve returns s unchanged unless it is a reference, in which case the
// secret value is fetched (cached for five minutes).
func (c *Client) Resolve(ctx context.Context, s string) (string, error) {
	if !IsRef(s) {
		return s, nil
	}
	path, key, err := ParseRef(s)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key, 5*time.Minute)
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
