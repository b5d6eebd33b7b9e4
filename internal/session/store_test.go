// internal/session/store_test.go
//
// Unit-tests for Store, the evictor, and the visitor cookie.
//
// Run: go test ./internal/session -v

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yanizio/folio/internal/form"
	"github.com/yanizio/folio/internal/metrics"
)

func factory(built *int) Factory {
	var mu sync.Mutex
	return func(id string) *form.Form {
		mu.Lock()
		*built++
		mu.Unlock()
		return form.New(form.Options{
			ID:     id,
			Sender: form.SenderFunc(func(context.Context, form.Fields) error { return nil }),
		})
	}
}

// manual returns a Store without the background loop and a settable clock.
func manual(built *int, opts Options) (*Store, *time.Time) {
	opts.EvictInterval = -1
	s := New(factory(built), opts)
	now := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGet_ReusesAndDedupes(t *testing.T) {
	built := 0
	s, _ := manual(&built, Options{})
	defer s.Close()

	var wg sync.WaitGroup
	forms := make([]*form.Form, 16)
	for i := range forms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			forms[i] = s.Get("visitor-a")
		}(i)
	}
	wg.Wait()

	for _, f := range forms[1:] {
		if f != forms[0] {
			t.Fatal("concurrent Get returned different forms")
		}
	}
	if built != 1 || s.Len() != 1 {
		t.Fatalf("built=%d len=%d, want 1/1", built, s.Len())
	}
	if s.Get("visitor-b") == forms[0] {
		t.Fatal("distinct visitors share a form")
	}
}

func TestSweep_Idle(t *testing.T) {
	built := 0
	s, now := manual(&built, Options{IdleTTL: 10 * time.Minute})
	defer s.Close()

	old := s.Get("old")
	*now = now.Add(5 * time.Minute)
	s.Get("fresh")
	*now = now.Add(6 * time.Minute) // old idle 11m, fresh idle 6m

	before := testutil.ToFloat64(metrics.SessionEvictTotal)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if got := testutil.ToFloat64(metrics.SessionEvictTotal) - before; got != 1 {
		t.Fatalf("evict counter delta = %v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
	if _, err := old.Change(form.FieldName, "x"); !errors.Is(err, form.ErrClosed) {
		t.Fatalf("evicted form not closed: %v", err)
	}
	if s.Get("old") == old {
		t.Fatal("evicted form handed out again")
	}
}

func TestSweep_LRU(t *testing.T) {
	built := 0
	s, now := manual(&built, Options{MaxEntries: 2})
	defer s.Close()

	a := s.Get("a")
	*now = now.Add(time.Second)
	s.Get("b")
	*now = now.Add(time.Second)
	s.Get("c")
	*now = now.Add(time.Second)
	s.Get("b") // touch b; a is least recent

	if n := s.Sweep(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, err := a.Blur(form.FieldName, "x"); !errors.Is(err, form.ErrClosed) {
		t.Fatal("LRU victim was not a")
	}
}

func TestClose(t *testing.T) {
	s := New(factory(new(int)), Options{EvictInterval: time.Hour})
	f := s.Get("a")
	s.Close()
	s.Close()
	if s.Len() != 0 {
		t.Fatalf("len after Close = %d", s.Len())
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, form.ErrClosed) {
		t.Fatalf("form not closed: %v", err)
	}
}

func TestCookies_VisitorID(t *testing.T) {
	c := Cookies{}
	w := httptest.NewRecorder()
	id := c.VisitorID(w, httptest.NewRequest(http.MethodGet, "/", nil))
	set := w.Result().Cookies()
	if len(set) != 1 || set[0].Name != DefaultCookieName || set[0].Value != id || !set[0].HttpOnly {
		t.Fatalf("cookie = %#v", set)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: id})
	w = httptest.NewRecorder()
	if got := c.VisitorID(w, r); got != id {
		t.Fatalf("existing id not reused: %q", got)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("cookie re-set for a known visitor")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
	if got := c.VisitorID(httptest.NewRecorder(), r); got == "../../etc" {
		t.Fatal("malformed id accepted")
	}
}
