// cmd/web/main.go
//
// Folio – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (.env → conf/global.yaml → FOLIO_* env, vault:
//     references resolved, validated).
//
//  2. Start the daily rotating logger (tees to console when running in a
//     TTY).
//
//  3. Open the archive database and apply its schema.
//
//  4. Build the outbound senders (SMTP, webhook) and the form dispatcher
//     from the form definition.
//
//  5. Build the per-visitor form store and the CSRF signer.
//
//  6. Mount middleware, /metrics, /healthz, and every registered
//     component.
//
//  7. Serve until SIGINT or SIGTERM, then drain and close sessions.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/folio/internal/component"
	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/database"
	"github.com/yanizio/folio/internal/form"
	"github.com/yanizio/folio/internal/logger"
	"github.com/yanizio/folio/internal/message"
	"github.com/yanizio/folio/internal/middleware"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/server"
	"github.com/yanizio/folio/internal/session"
	"github.com/yanizio/folio/internal/store"

	_ "github.com/yanizio/folio/components/contact"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "folio:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Infow("config loaded", "root", cfg.Paths.Root, "listen", cfg.HTTP.ListenAddr, "db_driver", cfg.Database.Driver)

	//
	// ── 3.  Archive database ────────────────────────────────────────────
	//
	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(sqlitePath(cfg.Database.DSN)), 0o755); err != nil {
			return fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	log.Infow("connecting to archive DB …", "driver", cfg.Database.Driver)
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.ResolvedDSN())
	if err != nil {
		return fmt.Errorf("connect archive DB: %w", err)
	}
	defer db.Close()

	archive := store.New(db)
	if err := archive.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate archive: %w", err)
	}
	log.Infow("archive DB online")

	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		return fmt.Errorf("open geo db: %w", err)
	}
	defer requestinfo.CloseGeo()

	//
	// ── 4.  Form definition and dispatcher ──────────────────────────────
	//
	def, err := form.LoadFormDef(cfg.Form.Definition)
	if err != nil {
		return err
	}

	deps := form.Deps{Archive: archive, Timeout: cfg.Form.ActionTimeout}
	if cfg.Mail.Host != "" {
		mailer, err := message.NewMailer(message.MailerConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
		})
		if err != nil {
			return err
		}
		deps.Mailer = mailer
	}
	dispatcher, err := form.NewDispatcher(def, deps)
	if err != nil {
		return err
	}

	//
	// ── 5.  Visitor sessions and CSRF signer ────────────────────────────
	//
	signer, err := form.NewSigner(cfg.Form.CSRFKey, cfg.Form.TokenMaxAge)
	if err != nil {
		return err
	}
	log.Infow("form ready", "form", def.ID, "actions", len(def.Actions), "token_max_age", signer.MaxAge())
	forms := session.New(func(id string) *form.Form {
		return form.New(form.Options{
			ID:         id,
			Sender:     dispatcher,
			ResetDelay: cfg.Form.ResetDelay,
		})
	}, session.Options{
		IdleTTL:       cfg.Session.IdleTTL,
		MaxEntries:    cfg.Session.MaxEntries,
		EvictInterval: cfg.Session.EvictInterval,
	})
	defer forms.Close()

	svc := component.Services{
		Config:  cfg,
		Def:     def,
		Forms:   forms,
		Cookies: session.Cookies{Name: cfg.Session.CookieName, Secure: cfg.HTTP.ForceHTTPS},
		Gate:    form.Gate{Signer: signer, MinFill: cfg.Form.MinFillTime},
		Archive: archive,
	}

	//
	// ── 6.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(requestinfo.Enrich)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	for _, c := range component.All() {
		if err := c.Init(svc); err != nil {
			return fmt.Errorf("init component %s: %w", c.Name(), err)
		}
		r.Mount("/", c.Routes())
		log.Infow("component mounted", "component", c.Name())
	}

	//
	// ── 7.  Serve ───────────────────────────────────────────────────────
	//
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, r), log)
}

// sqlitePath strips the URI scheme and query from a sqlite DSN.
func sqlitePath(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i != -1 {
		dsn = dsn[:i]
	}
	return dsn
}
