// components/contact/handlers.go
//
// HTTP handlers for the contact component.  Page handlers render HTML
// through the view engine.  API handlers speak JSON and return the visitor's
// form Snapshot so the browser script can redraw from one source of truth.

package contact

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/folio/internal/form"
	"github.com/yanizio/folio/internal/head"
	"github.com/yanizio/folio/internal/logger"
	"github.com/yanizio/folio/internal/metrics"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/store"
)

const (
	maxBodyBytes    = 64 << 10
	defaultListSize = 50
	botRejection    = "Automated submissions are not accepted."
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// eventRequest is one keystroke (change) or focus loss (blur).
type eventRequest struct {
	Type  string `json:"type"  validate:"required,oneof=change blur"`
	Field string `json:"field" validate:"required,oneof=name email message"`
	Value string `json:"value" validate:"max=5000"`
}

// submitRequest optionally carries the final field values so a script that
// skipped events still submits what the visitor sees.
type submitRequest struct {
	Fields *form.Fields `json:"fields"`
}

// pageData feeds templates/page.html.
type pageData struct {
	Head *head.Builder
	Lang string
	Form template.HTML
}

// -----------------------------------------------------------------------------
// Pages
// -----------------------------------------------------------------------------

func (c *Comp) page(w http.ResponseWriter, r *http.Request) {
	snap, _ := c.withForm(w, r, func(f *form.Form) (form.Snapshot, error) {
		return f.Snapshot(), nil
	})
	c.render(w, r, http.StatusOK, snap)
}

func (c *Comp) postPage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if c.botBlocked(r) {
		snap, _ := c.withForm(w, r, func(f *form.Form) (form.Snapshot, error) { return f.Snapshot(), nil })
		c.render(w, r, http.StatusForbidden, withBanner(snap, botRejection))
		return
	}

	snap, err := c.withForm(w, r, func(f *form.Form) (form.Snapshot, error) {
		return form.HandleSubmit(r, f, c.svc.Gate)
	})

	var se *form.SecurityError
	switch {
	case err == nil:
		c.render(w, r, http.StatusOK, snap)
	case errors.As(err, &se):
		logger.FromContext(r.Context()).Infow("submission rejected", "reason", se.Reason, "err", se.Err)
		c.render(w, r, http.StatusForbidden, withBanner(snap, se.Reason))
	case errors.Is(err, form.ErrBusy):
		c.render(w, r, http.StatusConflict, snap)
	default:
		logger.FromContext(r.Context()).Errorw("contact submit", "err", err)
		c.render(w, r, http.StatusInternalServerError, withBanner(snap, form.FailureMessage))
	}
}

// render writes the full page with a fresh CSRF token.
func (c *Comp) render(w http.ResponseWriter, r *http.Request, status int, snap form.Snapshot) {
	log := logger.FromContext(r.Context())

	tok, err := c.svc.Gate.Signer.Token()
	if err != nil {
		log.Errorw("csrf token", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	markup, err := form.RenderForm(c.svc.Def, snap, form.RenderOptions{Action: "/contact", CSRFToken: tok})
	if err != nil {
		log.Errorw("render form", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	title := c.svc.Def.Title
	if title == "" {
		title = "Contact"
	}
	h := head.New()
	h.SetTitle(title)
	h.Meta(map[string]string{"name": "viewport", "content": "width=device-width, initial-scale=1"})
	h.Link(map[string]string{"rel": "stylesheet", "href": "/static/contact/contact.css"})
	h.Script(map[string]string{"src": "/static/contact/contact.js", "defer": ""})
	_ = h.JSONLD(map[string]string{"@context": "https://schema.org", "@type": "ContactPage", "name": title})

	lang := "en"
	if ri := requestinfo.FromContext(r.Context()); ri != nil && ri.PrimaryLang != "" {
		lang = ri.PrimaryLang
	}

	var buf bytes.Buffer
	if err := c.views.Render(&buf, "page", pageData{Head: h, Lang: lang, Form: markup}); err != nil {
		log.Errorw("render page", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// -----------------------------------------------------------------------------
// JSON API
// -----------------------------------------------------------------------------

func (c *Comp) state(w http.ResponseWriter, r *http.Request) {
	snap, err := c.withForm(w, r, func(f *form.Form) (form.Snapshot, error) {
		return f.Snapshot(), nil
	})
	c.writeSnapshot(w, r, snap, err)
}

func (c *Comp) event(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "type must be change or blur and field one of name, email, or message")
		return
	}

	snap, err := c.withForm(w, r, func(f *form.Form) (form.Snapshot, error) {
		if req.Type == "blur" {
			return f.Blur(form.Field(req.Field), req.Value)
		}
		return f.Change(form.Field(req.Field), req.Value)
	})
	c.writeSnapshot(w, r, snap, err)
}

func (c *Comp) submit(w http.ResponseWriter, r *http.Request) {
	if c.botBlocked(r) {
		writeError(w, http.StatusForbidden, botRejection)
		return
	}
	var se *form.SecurityError
	if err := c.svc.Gate.Check(r.Header.Get("X-CSRF-Token")); errors.As(err, &se) {
		logger.FromContext(r.Context()).Infow("submission rejected", "reason", se.Reason, "err", se.Err)
		writeError(w, http.StatusForbidden, se.Reason)
		return
	}

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	snap, err := c.withForm(w, r, func(f *form.Form) (form.Snapshot, error) {
		if req.Fields != nil {
			for _, name := range form.AllFields {
				if _, err := f.Blur(name, req.Fields.Get(name)); err != nil {
					return f.Snapshot(), err
				}
			}
		}
		return f.Submit(r.Context())
	})
	c.writeSnapshot(w, r, snap, err)
}

// validateField exposes the pure field validator.
func (c *Comp) validateField(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := form.Field(q.Get("field"))
	if !field.Known() {
		writeError(w, http.StatusBadRequest, "unknown field")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"error": form.ValidateField(field, q.Get("value"))})
}

// messages lists recent archived submissions for the operator.
func (c *Comp) messages(w http.ResponseWriter, r *http.Request) {
	if c.svc.Archive == nil {
		http.NotFound(w, r)
		return
	}
	limit := defaultListSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := c.svc.Archive.Recent(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("list submissions", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		rows = []store.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": rows})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// botBlocked reports whether r comes from a crawler while bot rejection is
// enabled.  Rejections are counted like other security rejections.
func (c *Comp) botBlocked(r *http.Request) bool {
	if !c.rejectBots || !requestinfo.IsBot(r.Context()) {
		return false
	}
	metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
	logger.FromContext(r.Context()).Infow("bot submission rejected")
	return true
}

// writeSnapshot maps form errors to status codes.
func (c *Comp) writeSnapshot(w http.ResponseWriter, r *http.Request, snap form.Snapshot, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, form.ErrBusy):
		writeJSON(w, http.StatusConflict, snap)
	case errors.Is(err, form.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "unknown field")
	default:
		logger.FromContext(r.Context()).Errorw("contact api", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// withBanner returns a copy of snap showing msg as an error banner.
func withBanner(snap form.Snapshot, msg string) form.Snapshot {
	snap.Status = form.StatusError
	snap.Banner = msg
	return snap
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
