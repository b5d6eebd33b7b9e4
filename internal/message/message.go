// internal/message/message.go
//
// Folio – Outbound messaging.
//
// Context
//   The contact form delivers accepted submissions to the site owner by
//   email and, optionally, to a webhook.  This package holds both senders.
//   Neither knows anything about forms; the form dispatcher builds the
//   payloads.
//
// Workflow
//   •  Mailer.Send writes a plain-text RFC 5322 message and hands it to an
//      SMTP relay with PLAIN auth.  Reply-To is set to the visitor so the
//      owner can answer directly.
//   •  Webhook.Post JSON-encodes a body and POSTs (or PUTs) it, treating any
//      non-2xx status as failure.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Email represents one outbound plain-text email.
type Email struct {
	To      []string // Overrides Mailer.To when non-empty.
	ReplyTo string
	Subject string
	Text    string
}

// -----------------------------------------------------------------------------
// SMTP mailer
// -----------------------------------------------------------------------------

// SendFunc matches smtp.SendMail so tests can capture messages.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends Email through an SMTP relay.  Zero value is invalid; use
// NewMailer.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	to       []string
	send     SendFunc
}

// MailerConfig carries relay settings.  Password may be empty for relays
// that accept unauthenticated mail from the host.
type MailerConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// NewMailer validates cfg and returns a Mailer using smtp.SendMail.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: host is required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: from or username is required")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		send:     smtp.SendMail,
	}, nil
}

// WithSendFunc replaces the transport.  Intended for tests.
func (m *Mailer) WithSendFunc(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

// Send delivers msg.  net/smtp has no context support, so the transport
// runs in its own goroutine and Send returns early when ctx ends.
func (m *Mailer) Send(ctx context.Context, msg Email) error {
	to := msg.To
	if len(to) == 0 {
		to = m.to
	}
	if len(to) == 0 {
		return errors.New("mailer: no recipients")
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	raw := m.compose(to, msg)
	addr := net.JoinHostPort(m.host, m.port)

	done := make(chan error, 1)
	go func() { done <- m.send(addr, auth, m.from, to, raw) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

// compose builds the wire message.  Header values are stripped of CR and
// LF so visitor input cannot inject headers.
func (m *Mailer) compose(to []string, msg Email) []byte {
	var b bytes.Buffer
	b.WriteString("From: " + headerSafe(m.from) + "\r\n")
	b.WriteString("To: " + headerSafe(strings.Join(to, ", ")) + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + headerSafe(msg.ReplyTo) + "\r\n")
	}
	b.WriteString("Subject: " + headerSafe(msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// -----------------------------------------------------------------------------
// Webhook
// -----------------------------------------------------------------------------

// WebhookRequest is one webhook delivery.
type WebhookRequest struct {
	URL     string
	Method  string // POST when empty.
	Headers map[string]string
	Body    any // JSON-encoded.
}

// Webhook posts JSON payloads.  Zero value uses a client with a 10 s
// timeout.
type Webhook struct {
	Client *http.Client
}

var defaultWebhookClient = &http.Client{Timeout: 10 * time.Second}

// Post delivers req.  Any non-2xx response is an error.
func (w *Webhook) Post(ctx context.Context, req WebhookRequest) error {
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return fmt.Errorf("webhook encode: %w", err)
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	hr, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}

	client := w.Client
	if client == nil {
		client = defaultWebhookClient
	}
	resp, err := client.Do(hr)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", req.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: status %d", req.URL, resp.StatusCode)
	}
	return nil
}
