// internal/config/loader_test.go
//
// Unit-tests for Load: YAML, defaults, env overrides, vault references, and
// validation failures.
//
// Each test points FOLIO_ROOT at a temp dir holding conf/global.yaml.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeRoot(t *testing.T, yml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FOLIO_ROOT", root)
	return root
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	if v, ok := f[ref]; ok {
		return v, nil
	}
	return "", errors.New("no such secret " + ref)
}

func useResolver(t *testing.T, r Resolver) {
	t.Helper()
	prev := newResolver
	newResolver = func() (Resolver, error) { return r, nil }
	t.Cleanup(func() { newResolver = prev })
}

func TestLoad_DefaultsAndYAML(t *testing.T) {
	root := writeRoot(t, `
http:
  listen_addr: "127.0.0.1:9000"
mail:
  host: smtp.example.com
  to: [owner@example.com]
form:
  reset_delay: 5s
`)
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Form.ResetDelay != 5*time.Second || cfg.Form.MinFillTime != 2*time.Second {
		t.Errorf("form durations = %v / %v", cfg.Form.ResetDelay, cfg.Form.MinFillTime)
	}
	if !cfg.Form.RejectBots || cfg.Session.CookieName != "folio_visitor" || cfg.Session.MaxEntries != 1000 {
		t.Errorf("defaults missing: %#v %#v", cfg.Form, cfg.Session)
	}
	if cfg.Mail.Port != "587" || len(cfg.Mail.To) != 1 {
		t.Errorf("mail = %#v", cfg.Mail)
	}
	if !strings.HasPrefix(cfg.Database.DSN, filepath.Join(root, "data")) {
		t.Errorf("sqlite dsn not rooted: %q", cfg.Database.DSN)
	}
	if cfg.Paths.Root != root || Get() != cfg {
		t.Errorf("root=%q cached=%v", cfg.Paths.Root, Get() == cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	writeRoot(t, "http:\n  listen_addr: \":8080\"\n")
	t.Setenv("FOLIO_HTTP__LISTEN_ADDR", ":9090")
	t.Setenv("FOLIO_SESSION__MAX_ENTRIES", "50")
	t.Setenv("FOLIO_MAIL__HOST", "relay.local")
	t.Setenv("FOLIO_MAIL__TO", "a@example.com, b@example.com")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != ":9090" || cfg.Session.MaxEntries != 50 {
		t.Errorf("overrides not applied: %q %d", cfg.HTTP.ListenAddr, cfg.Session.MaxEntries)
	}
	if len(cfg.Mail.To) != 2 || cfg.Mail.To[1] != "b@example.com" {
		t.Errorf("mail.to = %v", cfg.Mail.To)
	}
}

func TestLoad_VaultReferences(t *testing.T) {
	writeRoot(t, `
database:
  driver: mysql
  dsn: "folio:{password}@tcp(db:3306)/folio?parseTime=true"
  password: "vault:kv/folio#db"
mail:
  host: smtp.example.com
  password: "vault:kv/folio#smtp"
  to: [owner@example.com]
`)
	useResolver(t, fakeResolver{"vault:kv/folio#db": "dbpw", "vault:kv/folio#smtp": "smtppw"})

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mail.Password != "smtppw" {
		t.Errorf("mail password = %q", cfg.Mail.Password)
	}
	if got := cfg.Database.ResolvedDSN(); got != "folio:dbpw@tcp(db:3306)/folio?parseTime=true" {
		t.Errorf("dsn = %q", got)
	}
}

func TestLoad_VaultFailure(t *testing.T) {
	writeRoot(t, "form:\n  csrf_key: \"vault:kv/folio#missing\"\n")
	useResolver(t, fakeResolver{})
	if _, err := Load(context.Background()); err == nil {
		t.Fatal("unresolvable reference accepted")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad addr":     "http:\n  listen_addr: nope\n",
		"bad driver":   "database:\n  driver: oracle\n",
		"bad level":    "log:\n  level: loud\n",
		"bad mail to":  "mail:\n  host: h\n  to: [not-an-email]\n",
		"mail no to":   "mail:\n  host: h\n",
		"dsn no pw":    "database:\n  driver: mysql\n  dsn: \"u:{password}@/db\"\n",
		"short token":  "http:\n  admin_token: abc\n",
		"neg duration": "form:\n  reset_delay: -1s\n",
	}
	for name, yml := range cases {
		writeRoot(t, yml)
		if _, err := Load(context.Background()); err == nil {
			t.Errorf("%s: Load succeeded", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("FOLIO_ROOT", t.TempDir())
	if _, err := Load(context.Background()); err == nil {
		t.Fatal("Load without conf/global.yaml succeeded")
	}
}
