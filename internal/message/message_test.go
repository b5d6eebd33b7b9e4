// internal/message/message_test.go
//
// Unit-tests for Mailer and Webhook.

package message

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
)

func TestMailerSend(t *testing.T) {
	m, err := NewMailer(MailerConfig{
		Host:     "smtp.example.com",
		Username: "site@example.com",
		Password: "secret",
		To:       []string{"owner@example.com"},
	})
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	m.WithSendFunc(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	})

	err = m.Send(context.Background(), Email{
		ReplyTo: "jane@example.com",
		Subject: "Hello\r\nBcc: evil@example.com",
		Text:    "line one\nline two",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "site@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "owner@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Reply-To: jane@example.com\r\n") {
		t.Errorf("missing Reply-To:\n%s", gotMsg)
	}
	if strings.Contains(gotMsg, "\r\nBcc:") {
		t.Errorf("header injection not neutralised:\n%s", gotMsg)
	}
	if !strings.Contains(gotMsg, "line one\r\nline two") {
		t.Errorf("body line endings not normalised:\n%s", gotMsg)
	}
}

func TestMailerSend_Errors(t *testing.T) {
	if _, err := NewMailer(MailerConfig{}); err == nil {
		t.Fatal("NewMailer accepted empty host")
	}

	m, _ := NewMailer(MailerConfig{Host: "h", From: "a@b.co"})
	if err := m.Send(context.Background(), Email{}); err == nil {
		t.Fatal("Send without recipients succeeded")
	}

	boom := errors.New("relay refused")
	m.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error { return boom })
	if err := m.Send(context.Background(), Email{To: []string{"x@y.co"}}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped relay error", err)
	}
}

func TestWebhookPost(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	var wh Webhook
	err := wh.Post(context.Background(), WebhookRequest{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer t"},
		Body:    map[string]string{"name": "Jane"},
	})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got["name"] != "Jane" || auth != "Bearer t" {
		t.Fatalf("body=%v auth=%q", got, auth)
	}
}

func TestWebhookPost_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := Webhook{Client: srv.Client()}
	if err := wh.Post(context.Background(), WebhookRequest{URL: srv.URL, Body: "x"}); err == nil {
		t.Fatal("502 treated as success")
	}
}
