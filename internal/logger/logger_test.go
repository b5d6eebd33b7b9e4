// internal/logger/logger_test.go
//
// Unit-tests for New, FromContext, and Middleware.

package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesDailyFile(t *testing.T) {
	root := t.TempDir()
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	l, err := New(root, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Infow("hello", "k", "v")
	_ = l.Sync()

	want := filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(t.TempDir(), "loud", false); err == nil {
		t.Fatal("accepted unknown level")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext returned nil without a stored logger")
	}
	l := zap.NewNop().Sugar()
	if got := FromContext(WithContext(context.Background(), l)); got != l {
		t.Fatal("stored logger not returned")
	}
}

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	var inner *zap.SugaredLogger
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contact", nil))

	if inner == nil {
		t.Fatal("handler saw no request logger")
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("access lines = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/contact" || fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("unexpected fields: %#v", fields)
	}
}
