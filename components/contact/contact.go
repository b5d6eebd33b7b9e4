// components/contact/contact.go
//
// Folio – Contact component.
//
// Context
//   The contact section of the portfolio.  Visitors without JavaScript get a
//   classic POST/redirect-free round trip on /contact.  With JavaScript the
//   page drives the same per-visitor Form through a small JSON API so error
//   messages, the character counter, and the banner update as the visitor
//   types.
//
// Routes
//   GET  /contact                 page with the rendered form
//   POST /contact                 no-JS submit, re-renders the page
//   GET  /static/contact/*        contact.js
//   GET  /api/contact/state       Snapshot as JSON
//   POST /api/contact/events      {type, field, value} → Snapshot
//   POST /api/contact/submit      optional {fields} → Snapshot, 409 while busy
//   GET  /api/contact/validate    ?field=&value= → {error}
//   GET  /api/contact/messages    archive listing (bearer admin token)
//
// Notes
//   •  Every handler resolves the visitor's Form through the session store.
//      An evicted Form reports ErrClosed; the handler fetches a fresh one
//      once and retries.
//   •  Security rejections (token, timing, bots) are shown to the visitor,
//      never surfaced as 500s.
//
//------------------------------------------------------------------------------

package contact

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/folio/internal/component"
	"github.com/yanizio/folio/internal/form"
	"github.com/yanizio/folio/internal/middleware"
	"github.com/yanizio/folio/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// compile-time assertion
var _ component.Component = (*Comp)(nil)

// Comp implements component.Component.
type Comp struct {
	svc        component.Services
	views      *view.Engine
	rejectBots bool
	adminToken string
}

func (c *Comp) Name() string { return "contact" }

// Init stores the shared services and prepares the view engine.  Templates
// under <root>/templates/contact override the embedded ones.
func (c *Comp) Init(s component.Services) error {
	if s.Def == nil || s.Forms == nil || s.Gate.Signer == nil {
		return errors.New("contact: form definition, session store, and signer are required")
	}
	c.svc = s

	tpl, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return err
	}
	override := ""
	if s.Config != nil {
		c.rejectBots = s.Config.Form.RejectBots
		c.adminToken = s.Config.HTTP.AdminToken
		if s.Config.Paths.Root != "" {
			override = filepath.Join(s.Config.Paths.Root, "templates")
		}
	}
	c.views = view.New(c.Name(), tpl, override)
	return nil
}

func (c *Comp) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/contact", c.page)
	r.Post("/contact", c.postPage)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/contact/*", http.StripPrefix("/static/contact/", http.FileServer(http.FS(static))))

	r.Route("/api/contact", func(api chi.Router) {
		api.Get("/state", c.state)
		api.Post("/events", c.event)
		api.Post("/submit", c.submit)
		api.Get("/validate", c.validateField)
		api.With(middleware.BearerToken(c.adminToken)).Get("/messages", c.messages)
	})
	return r
}

// withForm runs fn against the visitor's Form, retrying once with a fresh
// Form when the first was closed by eviction.
func (c *Comp) withForm(w http.ResponseWriter, r *http.Request, fn func(*form.Form) (form.Snapshot, error)) (form.Snapshot, error) {
	id := c.svc.Cookies.VisitorID(w, r)
	snap, err := fn(c.svc.Forms.Get(id))
	if errors.Is(err, form.ErrClosed) {
		snap, err = fn(c.svc.Forms.Get(id))
	}
	return snap, err
}

// Register component at package init.
func init() {
	component.Register(&Comp{})
}
