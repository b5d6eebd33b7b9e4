// internal/form/renderer.go
//
// Folio – Contact form: HTML renderer.
//
// Context
//   Given a parsed FormDef and a Snapshot of one visitor's Form, this file
//   writes the contact form as plain, accessible HTML.  The same markup
//   serves the no-JS page and the first paint of the scripted page; the
//   script then keeps it current from /api/contact/state.
//
// Workflow
//   •  RenderForm writes the optional title, then one block per field via
//      writeField, then the message counter, hidden security inputs, the
//      submit button, and the status banner.
//   •  Errors are written only when visible (field touched and failing).
//   •  The counter reads `n/500` and gains class="over" past the limit.
//   •  While submitting, the button is disabled and reads "Sending...".
//
// Style
//   Output HTML is deliberately plain, no framework classes, so the site
//   stylesheet can target element selectors or the class hooks.  Each input
//   gets id="fld-{name}" and is wrapped in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"time"
)

// RenderOptions bundles per-request inputs to RenderForm.
type RenderOptions struct {
	Action     string    // POST target, "/contact" when empty.
	CSRFToken  string    // From Signer.Token.
	RenderedAt time.Time // Written as render_ts; now when zero.
}

// RenderForm returns the markup for fd in the state captured by snap.  The
// result is template.HTML so the page template does not double-escape it.
func RenderForm(fd *FormDef, snap Snapshot, opts RenderOptions) (template.HTML, error) {
	if opts.Action == "" {
		opts.Action = "/contact"
	}
	if opts.RenderedAt.IsZero() {
		opts.RenderedAt = time.Now()
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<form class="folio-form" id="form-%s" method="post" action="%s" novalidate>`+"\n",
		html.EscapeString(fd.ID), html.EscapeString(opts.Action))

	if fd.Title != "" {
		buf.WriteString(`<h3 class="form-title">` + html.EscapeString(fd.Title) + `</h3>` + "\n")
	}

	for i := range fd.Fields {
		if err := writeField(&buf, &fd.Fields[i], snap); err != nil {
			return "", err
		}
	}

	// Hidden meta inputs.
	buf.WriteString(`<input type="hidden" name="csrf_token" value="` + html.EscapeString(opts.CSRFToken) + `">` + "\n")
	buf.WriteString(`<input type="hidden" name="render_ts" value="` + strconv.FormatInt(opts.RenderedAt.UnixMicro(), 10) + `">` + "\n")

	// Submit button.
	if snap.CanSubmit {
		buf.WriteString(`<button type="submit">` + html.EscapeString(fd.Submit) + `</button>` + "\n")
	} else {
		buf.WriteString(`<button type="submit" disabled aria-busy="true">Sending...</button>` + "\n")
	}

	// Status banner.
	if snap.Banner != "" {
		class := "form-banner success"
		if snap.Status != StatusSuccess {
			class = "form-banner error"
		}
		buf.WriteString(`<div class="` + class + `" role="status">` + html.EscapeString(snap.Banner) + `</div>` + "\n")
	}

	buf.WriteString(`</form>`)
	return template.HTML(buf.String()), nil
}

// writeField emits one labelled input, its visible error, and for the
// message textarea the character counter.
func writeField(buf *bytes.Buffer, f *FieldDef, snap Snapshot) error {
	name := html.EscapeString(string(f.Name))
	val := snap.Fields.Get(f.Name)
	msg := snap.VisibleError(f.Name)

	buf.WriteString(`<div class="form-field">` + "\n")
	buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + ` *</label>` + "\n")

	attrs := `id="fld-` + name + `" name="` + name + `" required`
	if f.Placeholder != "" {
		attrs += ` placeholder="` + html.EscapeString(f.Placeholder) + `"`
	}
	if msg != "" {
		attrs += ` aria-invalid="true" aria-describedby="err-` + name + `"`
	}

	switch f.Type {
	case "text", "email":
		buf.WriteString(`<input type="` + f.Type + `" ` + attrs)
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

	case "textarea":
		// No maxlength: an over-long message must stay visible to the
		// counter and the validator.
		buf.WriteString(`<textarea rows="6" ` + attrs + `>` + html.EscapeString(val) + `</textarea>` + "\n")
		if f.Name == FieldMessage {
			class := "char-count"
			if snap.OverLimit {
				class += " over"
			}
			fmt.Fprintf(buf, `<span class="%s">%d/%d</span>`+"\n", class, snap.CharCount, snap.CharLimit)
		}

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	if msg != "" {
		buf.WriteString(`<span class="error" id="err-` + name + `" aria-live="polite">` + html.EscapeString(msg) + `</span>` + "\n")
	}
	buf.WriteString(`</div>` + "\n")
	return nil
}
