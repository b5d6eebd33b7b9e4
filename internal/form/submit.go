// internal/form/submit.go
//
// Folio – Contact form: no-JS submit helper.
//
// Context
//   Visitors without JavaScript post the whole form in one request.
//   HandleSubmit runs the same checks the JSON API would, plus the
//   anti-automation gates that only make sense for a rendered page:
//
//   1. Parse the urlencoded body.
//   2. Verify the CSRF token (signature and max age).
//   3. Reject pages submitted faster than MinFill after render.
//   4. Replay each field as a blur event, then Submit.
//
//   Gate failures return a *SecurityError wrapping ErrSecurity.  These are
//   visitor errors, shown as a banner, never a 500.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yanizio/folio/internal/metrics"
)

// DefaultMinFillTime is the fastest plausible human fill.
const DefaultMinFillTime = 2 * time.Second

// ErrSecurity matches every *SecurityError via errors.Is.
var ErrSecurity = errors.New("form: security check failed")

// SecurityError carries a visitor-facing reason.
type SecurityError struct {
	Reason string
	Err    error
}

func (e *SecurityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("form security: %s: %v", e.Reason, e.Err)
	}
	return "form security: " + e.Reason
}

// Is reports ErrSecurity.
func (e *SecurityError) Is(target error) bool { return target == ErrSecurity }

// Unwrap exposes the underlying cause.
func (e *SecurityError) Unwrap() error { return e.Err }

// Gate holds the anti-automation settings.
type Gate struct {
	Signer  *Signer
	MinFill time.Duration
}

// HandleSubmit parses r, runs the gates, applies the posted values, and
// submits f.  Form errors (ErrBusy, ErrClosed) pass through unchanged.
func HandleSubmit(r *http.Request, f *Form, g Gate) (Snapshot, error) {
	if err := r.ParseForm(); err != nil {
		return f.Snapshot(), &SecurityError{Reason: "Bad request.  Please reload the page.", Err: err}
	}

	if err := g.Check(r.PostForm.Get("csrf_token")); err != nil {
		return f.Snapshot(), err
	}

	for _, name := range AllFields {
		if _, err := f.Blur(name, r.PostForm.Get(string(name))); err != nil {
			return f.Snapshot(), err
		}
	}
	return f.Submit(r.Context())
}

// Check verifies the token and the fill time it carries.  Rejections are
// counted under the "rejected" outcome.
func (g Gate) Check(tok string) error {
	err := g.verify(tok)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
	}
	return err
}

func (g Gate) verify(tok string) error {
	if tok == "" {
		return &SecurityError{Reason: "Security token missing.  Please reload the page."}
	}
	issued, err := g.Signer.Verify(tok)
	switch {
	case errors.Is(err, errTokenExpired):
		return &SecurityError{Reason: "Form expired.  Please reload and submit again.", Err: err}
	case err != nil:
		return &SecurityError{Reason: "Security token invalid.  Please reload the page.", Err: err}
	}

	minFill := g.MinFill
	if minFill <= 0 {
		minFill = DefaultMinFillTime
	}
	if g.Signer.now().Sub(issued) < minFill {
		return &SecurityError{Reason: "Form submitted too quickly.  Please enter the fields manually."}
	}
	return nil
}
