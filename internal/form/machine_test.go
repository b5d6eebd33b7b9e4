// internal/form/machine_test.go
//
// Unit-tests for the Form state machine.
//
// Context
// -------
// fakeClock records scheduled callbacks so tests fire the automatic reset
// explicitly.  Senders are SenderFunc literals that succeed, fail, or block
// on a channel to hold the form in StatusSubmitting.

package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock satisfies Clock without real timers.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that has not been stopped.
func (c *fakeClock) fire() int {
	c.mu.Lock()
	pending := c.timers
	c.timers = nil
	c.mu.Unlock()

	n := 0
	for _, t := range pending {
		if !t.stopped {
			t.fn()
			n++
		}
	}
	return n
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func okSender(calls *int) Sender {
	return SenderFunc(func(context.Context, Fields) error {
		*calls++
		return nil
	})
}

func fillValid(t *testing.T, f *Form) {
	t.Helper()
	for field, v := range map[Field]string{
		FieldName:    "Jane Doe",
		FieldEmail:   "jane@example.com",
		FieldMessage: "I would like to talk about a project.",
	} {
		if _, err := f.Change(field, v); err != nil {
			t.Fatalf("Change(%s): %v", field, err)
		}
	}
}

func TestChange_UntouchedFieldKeepsErrors(t *testing.T) {
	f := New(Options{Sender: okSender(new(int)), Clock: &fakeClock{}})

	snap, err := f.Change(FieldName, "J")
	if err != nil {
		t.Fatalf("Change: %v", err)
	}
	if len(snap.Errors) != 0 {
		t.Fatalf("untouched field validated on change: %#v", snap.Errors)
	}
	if snap.Fields.Name != "J" {
		t.Fatalf("value not stored: %q", snap.Fields.Name)
	}
}

func TestBlur_TouchesAndValidates(t *testing.T) {
	f := New(Options{Sender: okSender(new(int)), Clock: &fakeClock{}})

	snap, _ := f.Blur(FieldName, "J")
	if !snap.Touched[FieldName] {
		t.Fatal("blur did not mark field touched")
	}
	if got := snap.VisibleError(FieldName); got != "Name must be at least 2 characters" {
		t.Fatalf("visible error = %q", got)
	}

	// Touched field now revalidates on every change.
	snap, _ = f.Change(FieldName, "Jane")
	if got := snap.VisibleError(FieldName); got != "" {
		t.Fatalf("error not cleared on change: %q", got)
	}
	snap, _ = f.Change(FieldName, "Jane2")
	if got := snap.VisibleError(FieldName); got != "Name can only contain letters" {
		t.Fatalf("error not raised on change: %q", got)
	}
}

func TestUnknownField(t *testing.T) {
	f := New(Options{Sender: okSender(new(int)), Clock: &fakeClock{}})
	if _, err := f.Change(Field("phone"), "555"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Change err = %v, want ErrUnknownField", err)
	}
	if _, err := f.Blur(Field("phone"), "555"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Blur err = %v, want ErrUnknownField", err)
	}
}

func TestSubmit_InvalidStaysIdle(t *testing.T) {
	calls := 0
	f := New(Options{Sender: okSender(&calls), Clock: &fakeClock{}})
	_, _ = f.Change(FieldName, "Jane")

	snap, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.Status != StatusIdle {
		t.Fatalf("status = %s, want idle", snap.Status)
	}
	if calls != 0 {
		t.Fatalf("sender called %d times for an invalid form", calls)
	}
	for _, field := range AllFields {
		if !snap.Touched[field] {
			t.Errorf("%s not forced touched", field)
		}
	}
	if snap.VisibleError(FieldEmail) != "Email is required" {
		t.Errorf("email error = %q", snap.VisibleError(FieldEmail))
	}
	if snap.VisibleError(FieldMessage) != "Message is required" {
		t.Errorf("message error = %q", snap.VisibleError(FieldMessage))
	}
	if snap.VisibleError(FieldName) != "" {
		t.Errorf("valid name has error %q", snap.VisibleError(FieldName))
	}
}

func TestSubmit_SuccessClearsAndResets(t *testing.T) {
	clock := &fakeClock{}
	var sent Fields
	var during Status
	var f *Form
	f = New(Options{
		Clock:      clock,
		ResetDelay: 7 * time.Second,
		Sender: SenderFunc(func(_ context.Context, in Fields) error {
			sent = in
			during = f.Status()
			return nil
		}),
	})
	fillValid(t, f)

	snap, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if during != StatusSubmitting {
		t.Fatalf("status during send = %s, want submitting", during)
	}
	if sent.Email != "jane@example.com" {
		t.Fatalf("sender got %#v", sent)
	}
	if snap.Status != StatusSuccess || snap.Banner != SuccessMessage {
		t.Fatalf("after send: status=%s banner=%q", snap.Status, snap.Banner)
	}
	if snap.Fields != (Fields{}) || len(snap.Touched) != 0 || len(snap.Errors) != 0 {
		t.Fatalf("form not cleared: %#v", snap)
	}

	tm := clock.last()
	if tm == nil || tm.d != 7*time.Second {
		t.Fatalf("reset not scheduled with 7s delay: %#v", tm)
	}
	if n := clock.fire(); n != 1 {
		t.Fatalf("fired %d timers, want 1", n)
	}
	snap = f.Snapshot()
	if snap.Status != StatusIdle || snap.Banner != "" {
		t.Fatalf("after reset: status=%s banner=%q", snap.Status, snap.Banner)
	}
}

func TestSubmit_FailureKeepsValuesAndResets(t *testing.T) {
	clock := &fakeClock{}
	f := New(Options{
		Clock: clock,
		Sender: SenderFunc(func(context.Context, Fields) error {
			return errors.New("smtp down")
		}),
	})
	fillValid(t, f)

	snap, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit returned send error: %v", err)
	}
	if snap.Status != StatusError || snap.Banner != FailureMessage {
		t.Fatalf("status=%s banner=%q", snap.Status, snap.Banner)
	}
	if snap.Fields.Name != "Jane Doe" {
		t.Fatalf("values lost on failure: %#v", snap.Fields)
	}
	if tm := clock.last(); tm == nil || tm.d != DefaultResetDelay {
		t.Fatalf("reset not scheduled with default delay")
	}

	clock.fire()
	if got := f.Status(); got != StatusIdle {
		t.Fatalf("status after reset = %s", got)
	}
}

func TestSubmit_BusyWhileSending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	f := New(Options{
		Clock: &fakeClock{},
		Sender: SenderFunc(func(context.Context, Fields) error {
			calls++
			close(started)
			<-release
			return nil
		}),
	})
	fillValid(t, f)

	done := make(chan Snapshot)
	go func() {
		snap, _ := f.Submit(context.Background())
		done <- snap
	}()
	<-started

	snap, err := f.Submit(context.Background())
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second submit err = %v, want ErrBusy", err)
	}
	if snap.CanSubmit {
		t.Fatal("CanSubmit true while submitting")
	}

	close(release)
	final := <-done
	if final.Status != StatusSuccess {
		t.Fatalf("final status = %s", final.Status)
	}
	if calls != 1 {
		t.Fatalf("sender called %d times, want 1", calls)
	}
}

func TestSubmit_AgainDuringBannerCancelsOldReset(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	f := New(Options{Sender: okSender(&calls), Clock: clock})

	fillValid(t, f)
	_, _ = f.Submit(context.Background())
	first := clock.last()

	fillValid(t, f)
	snap, _ := f.Submit(context.Background())
	if snap.Status != StatusSuccess || calls != 2 {
		t.Fatalf("status=%s calls=%d", snap.Status, calls)
	}
	if !first.stopped {
		t.Fatal("first reset timer was not cancelled")
	}
}

func TestSubmit_InvalidDuringBannerClearsIt(t *testing.T) {
	clock := &fakeClock{}
	f := New(Options{
		Clock:  clock,
		Sender: SenderFunc(func(context.Context, Fields) error { return errors.New("smtp down") }),
	})
	fillValid(t, f)
	_, _ = f.Submit(context.Background())
	pending := clock.last()

	_, _ = f.Change(FieldEmail, "nope")
	snap, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.Status != StatusIdle || snap.Banner != "" {
		t.Fatalf("status=%s banner=%q, want idle and no banner", snap.Status, snap.Banner)
	}
	if snap.VisibleError(FieldEmail) != "Please enter a valid email" {
		t.Fatalf("email error = %q", snap.VisibleError(FieldEmail))
	}
	if !pending.stopped {
		t.Fatal("reset timer left running after a new attempt")
	}
}

func TestStaleTimerIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	f := New(Options{Sender: okSender(new(int)), Clock: clock})
	fillValid(t, f)
	_, _ = f.Submit(context.Background())

	stale := clock.last()
	f.mu.Lock()
	f.cancelResetLocked()
	f.mu.Unlock()

	stale.fn() // fires even though stopped, as a racing time.AfterFunc could
	if got := f.Status(); got != StatusSuccess {
		t.Fatalf("stale timer changed status to %s", got)
	}
}

func TestClose(t *testing.T) {
	clock := &fakeClock{}
	f := New(Options{Sender: okSender(new(int)), Clock: clock})
	fillValid(t, f)
	_, _ = f.Submit(context.Background())
	tm := clock.last()

	f.Close()
	if !tm.stopped {
		t.Fatal("Close did not stop reset timer")
	}
	if _, err := f.Change(FieldName, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Change after Close: %v", err)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after Close: %v", err)
	}
	f.Close() // idempotent
}

func TestSnapshot_CharCounter(t *testing.T) {
	f := New(Options{Sender: okSender(new(int)), Clock: &fakeClock{}})
	snap, _ := f.Change(FieldMessage, strings.Repeat("x", 501))
	if snap.CharCount != 501 || snap.CharLimit != 500 || !snap.OverLimit {
		t.Fatalf("counter = %d/%d over=%v", snap.CharCount, snap.CharLimit, snap.OverLimit)
	}
	snap, _ = f.Change(FieldMessage, strings.Repeat("x", 500))
	if snap.OverLimit {
		t.Fatal("500 characters flagged over limit")
	}
}
