// internal/form/actions.go
//
// Folio – Contact form: post-submit actions.
//
// Context
//   A FormDef lists the actions run once a submission passes validation.
//   The Dispatcher turns that list into a Sender for the Form state machine:
//
//      email   → message.Mailer   (owner notification, Reply-To visitor)
//      store   → store.Repository (archive row with request fingerprint)
//      webhook → message.Webhook  (JSON POST, `header.*` params)
//
//   All actions run concurrently through errgroup.  Any single failure
//   fails the send, and the visitor sees the error banner.  Per-action
//   latency lands in metrics.ActionDuration.
//
// Notes
//   •  Actions detach from the request's cancellation and stop at
//      Deps.Timeout instead.  Request-scoped values (request info, logger)
//      are still visible to them.
//   •  A failed send may have completed some actions.  Resubmitting can
//      produce a second archive row or a second email.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/folio/internal/logger"
	"github.com/yanizio/folio/internal/message"
	"github.com/yanizio/folio/internal/metrics"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/store"
)

// Action type names accepted in a FormDef.
const (
	ActionEmail   = "email"
	ActionStore   = "store"
	ActionWebhook = "webhook"
)

// DefaultActionTimeout bounds one complete dispatch.
const DefaultActionTimeout = 15 * time.Second

// Mailer is the subset of message.Mailer the email action uses.
type Mailer interface {
	Send(ctx context.Context, msg message.Email) error
}

// Archive is the subset of store.Repository the store action uses.
type Archive interface {
	Save(ctx context.Context, s store.Submission) error
}

// WebhookPoster is the subset of message.Webhook the webhook action uses.
type WebhookPoster interface {
	Post(ctx context.Context, req message.WebhookRequest) error
}

// Deps supplies the backends.  Only those referenced by the definition's
// actions are required.
type Deps struct {
	Mailer  Mailer
	Archive Archive
	Webhook WebhookPoster
	Timeout time.Duration
	Now     func() time.Time
}

// Dispatcher is the production Sender.
type Dispatcher struct {
	formID  string
	actions []action
	timeout time.Duration
}

type action struct {
	name string
	run  func(ctx context.Context, f Fields) error
}

var _ Sender = (*Dispatcher)(nil)

// NewDispatcher validates every action's parameters against deps and
// returns a ready Dispatcher.  Email actions are skipped with a warning when
// no Mailer is configured.  A definition left without actions is rejected.
func NewDispatcher(fd *FormDef, deps Deps) (*Dispatcher, error) {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultActionTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	d := &Dispatcher{formID: fd.ID, timeout: deps.Timeout}
	for i, ac := range fd.Actions {
		var (
			run func(context.Context, Fields) error
			err error
		)
		switch ac.Type {
		case ActionEmail:
			if deps.Mailer == nil {
				zap.S().Warnw("email action disabled, mail.host not set", "form", fd.ID, "action", i)
				continue
			}
			run, err = emailAction(fd, ac.Params, deps)
		case ActionStore:
			run, err = storeAction(fd, deps)
		case ActionWebhook:
			run, err = webhookAction(fd, ac.Params, deps)
		default:
			err = fmt.Errorf("unsupported action type %q", ac.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("form %s action %d (%s): %w", fd.ID, i, ac.Type, err)
		}
		d.actions = append(d.actions, action{name: ac.Type, run: run})
	}
	if len(d.actions) == 0 {
		return nil, fmt.Errorf("form %s: no actions configured", fd.ID)
	}
	return d, nil
}

// Send runs every action and returns the first error, if any.
func (d *Dispatcher) Send(ctx context.Context, f Fields) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	log := logger.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range d.actions {
		a := a
		g.Go(func() error {
			start := time.Now()
			err := a.run(gctx, f)
			result := "ok"
			if err != nil {
				result = "error"
				log.Errorw("form action failed", "form", d.formID, "action", a.name, "err", err)
			}
			metrics.ActionDuration.WithLabelValues(a.name, result).Observe(time.Since(start).Seconds())
			if err != nil {
				return fmt.Errorf("%s: %w", a.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// -----------------------------------------------------------------------------
// Email action
// -----------------------------------------------------------------------------

func emailAction(fd *FormDef, p map[string]any, deps Deps) (func(context.Context, Fields) error, error) {
	if deps.Mailer == nil {
		return nil, errors.New("no mailer configured")
	}

	// Recipients are optional here; the Mailer falls back to mail.to.
	var to []string
	switch v := p["to"].(type) {
	case nil:
	case string:
		to = []string{v}
	case []any:
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("'to' entries must be strings, got %T", e)
			}
			to = append(to, s)
		}
	default:
		return nil, fmt.Errorf("'to' must be a string or list, got %T", v)
	}

	subject, _ := p["subject"].(string)
	if subject == "" {
		subject = "New message from " + fd.Title + ": {{name}}"
	}

	return func(ctx context.Context, f Fields) error {
		return deps.Mailer.Send(ctx, message.Email{
			To:      to,
			ReplyTo: f.Email,
			Subject: expand(subject, f),
			Text:    emailBody(ctx, f),
		})
	}, nil
}

// expand substitutes {{name}}, {{email}}, and {{message}}.
func expand(tpl string, f Fields) string {
	return strings.NewReplacer(
		"{{name}}", trimJS(f.Name),
		"{{email}}", trimJS(f.Email),
		"{{message}}", f.Message,
	).Replace(tpl)
}

func emailBody(ctx context.Context, f Fields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:    %s\n", trimJS(f.Name))
	fmt.Fprintf(&b, "Email:   %s\n", trimJS(f.Email))
	if ri := requestinfo.FromContext(ctx); ri != nil {
		fmt.Fprintf(&b, "From:    %s %s (%s)\n", ri.ClientIP(), ri.Geo.CountryISO, ri.UA.Family())
	}
	b.WriteString("\n")
	b.WriteString(f.Message)
	b.WriteString("\n")
	return b.String()
}

// -----------------------------------------------------------------------------
// Store action
// -----------------------------------------------------------------------------

func storeAction(fd *FormDef, deps Deps) (func(context.Context, Fields) error, error) {
	if deps.Archive == nil {
		return nil, errors.New("no archive configured")
	}
	return func(ctx context.Context, f Fields) error {
		s := store.Submission{
			ID:        uuid.NewString(),
			FormID:    fd.ID,
			Name:      trimJS(f.Name),
			Email:     trimJS(f.Email),
			Message:   f.Message,
			CreatedAt: deps.Now().UTC(),
		}
		if ri := requestinfo.FromContext(ctx); ri != nil {
			s.ClientIP = ri.ClientIP()
			s.Country = ri.Geo.CountryISO
			s.Browser = ri.UA.Family()
			s.Device = ri.UA.Device
			s.IsBot = ri.UA.IsBot
		}
		return deps.Archive.Save(ctx, s)
	}, nil
}

// -----------------------------------------------------------------------------
// Webhook action
// -----------------------------------------------------------------------------

func webhookAction(fd *FormDef, p map[string]any, deps Deps) (func(context.Context, Fields) error, error) {
	if deps.Webhook == nil {
		deps.Webhook = &message.Webhook{}
	}
	url, _ := p["url"].(string)
	if url == "" {
		return nil, errors.New("webhook action requires 'url'")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("webhook url %q is not http(s)", url)
	}
	method, _ := p["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)
	for k, v := range p {
		if strings.HasPrefix(k, "header.") {
			headers[strings.TrimPrefix(k, "header.")] = fmt.Sprint(v)
		}
	}

	return func(ctx context.Context, f Fields) error {
		return deps.Webhook.Post(ctx, message.WebhookRequest{
			URL:     url,
			Method:  method,
			Headers: headers,
			Body: map[string]any{
				"form":         fd.ID,
				"fields":       f,
				"submitted_at": deps.Now().UTC().Format(time.RFC3339),
			},
		})
	}, nil
}
