// internal/vault/vault_test.go
//
// Unit-tests for reference parsing, caching, and the real SDK path against
// an httptest stand-in for Vault's KV-v2 endpoint.

package vault

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:kv/folio/smtp#password")
	if err != nil || path != "kv/folio/smtp" || key != "password" {
		t.Fatalf("got %q %q %v", path, key, err)
	}
	for _, bad := range []string{"kv/folio#x", "vault:kv/folio", "vault:#x", "vault:kv/folio#"} {
		if _, _, err := ParseRef(bad); err == nil {
			t.Errorf("ParseRef(%q) accepted", bad)
		}
	}
}

func TestResolve_CachesAndPassesThrough(t *testing.T) {
	reads := 0
	c := NewWithReader(func(_ context.Context, mount, rel string) (map[string]any, error) {
		reads++
		if mount != "kv" || rel != "folio" {
			return nil, errors.New("unexpected path " + mount + "/" + rel)
		}
		return map[string]any{"pw": "s3cret", "n": 5}, nil
	})
	ctx := context.Background()

	if got, _ := c.Resolve(ctx, "plain"); got != "plain" {
		t.Fatalf("plain value changed: %q", got)
	}
	for i := 0; i < 2; i++ {
		got, err := c.Resolve(ctx, "vault:kv/folio#pw")
		if err != nil || got != "s3cret" {
			t.Fatalf("Resolve: %q %v", got, err)
		}
	}
	if reads != 1 {
		t.Fatalf("reads = %d, want 1 (cached)", reads)
	}

	if _, err := c.Resolve(ctx, "vault:kv/folio#missing"); err == nil {
		t.Error("missing key resolved")
	}
	if _, err := c.Resolve(ctx, "vault:kv/folio#n"); err == nil {
		t.Error("non-string value resolved")
	}
	if _, err := c.GetKV(ctx, "kv", "pw", 0); err == nil {
		t.Error("mount-only path accepted")
	}
}

func TestNew_ReadsKVv2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/kv/data/folio/smtp" || r.Header.Get("X-Vault-Token") != "root" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"password":"hunter2"},` +
			`"metadata":{"created_time":"2025-06-05T12:00:00Z","deletion_time":"","destroyed":false,"version":1}}}`))
	}))
	defer srv.Close()

	t.Setenv("VAULT_ADDR", srv.URL)
	t.Setenv("VAULT_TOKEN", "root")

	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := c.Resolve(ctx, "vault:kv/folio/smtp#password")
	if err != nil || got != "hunter2" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}
