// internal/form/machine.go
//
// Folio – Contact form: interaction state machine.
//
// Context
//   A Form mirrors what the visitor sees: the values typed so far, which
//   fields have been left at least once (touched), the current error per
//   field, and the lifecycle of one send attempt.  The lifecycle is a
//   looplab/fsm machine:
//
//      idle ──submit──▶ submitting ──succeed──▶ success ──reset──▶ idle
//                                   └──fail────▶ error   ──reset──▶ idle
//
//   success and error also accept submit, so a visitor may send again while
//   the banner is still showing.  Both terminal states schedule an automatic
//   reset after ResetDelay.
//
// Workflow
//   •  Change stores a value and revalidates only when the field is touched.
//   •  Blur marks the field touched and revalidates it.
//   •  Submit revalidates everything, forces every field touched, and either
//      stops (errors present) or sends through the injected Sender with the
//      lock released.  A second Submit while submitting gets ErrBusy.
//   •  Close cancels the pending reset timer.  The session store calls it on
//      eviction and shutdown.
//
// Notes
//   •  Send failures never escape: they become StatusError plus a banner.
//   •  The Clock is injected so tests drive the reset without sleeping.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/metrics"
)

// Status is the lifecycle stage of one send attempt.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

const (
	eventSubmit  = "submit"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventReset   = "reset"
)

// DefaultResetDelay is how long the success or error banner stays up.
const DefaultResetDelay = 7 * time.Second

// Banner texts shown after a send resolves.
const (
	SuccessMessage = "Thank you! Your message has been sent successfully. I'll get back to you soon!"
	FailureMessage = "Oops! Something went wrong. Please try again or contact me directly via email."
)

var (
	// ErrBusy is returned by Submit while a send is already in flight.
	ErrBusy = errors.New("form: submission already in progress")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("form: closed")
	// ErrUnknownField is returned by Change and Blur for names outside
	// AllFields.
	ErrUnknownField = errors.New("form: unknown field")
)

// Sender delivers an accepted submission.  It is a black box: nil means
// delivered, any error means the visitor should retry.
type Sender interface {
	Send(ctx context.Context, f Fields) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, f Fields) error

// Send implements Sender.
func (fn SenderFunc) Send(ctx context.Context, f Fields) error { return fn(ctx, f) }

// Timer is the cancellable handle returned by Clock.AfterFunc.
type Timer interface{ Stop() bool }

// Clock schedules the automatic reset.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

// SystemClock is the wall-clock implementation used outside tests.
var SystemClock Clock = systemClock{}

// Options configures New.  Sender is required; everything else defaults.
type Options struct {
	ID         string
	Sender     Sender
	Clock      Clock
	ResetDelay time.Duration
	Logger     *zap.SugaredLogger
}

// Form is one visitor's contact form.  Safe for concurrent use.
type Form struct {
	id         string
	sender     Sender
	clock      Clock
	resetDelay time.Duration
	log        *zap.SugaredLogger

	mu      sync.Mutex
	machine *fsm.FSM
	fields  Fields
	errors  Errors
	touched Touched
	banner  string
	timer   Timer
	gen     uint64 // bumps on every schedule or cancel; stale timers compare
	closed  bool
}

// New returns an empty Form in StatusIdle.
func New(opts Options) *Form {
	if opts.Sender == nil {
		panic("form.New: Sender is required")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.S()
	}

	f := &Form{
		id:         opts.ID,
		sender:     opts.Sender,
		clock:      opts.Clock,
		resetDelay: opts.ResetDelay,
		log:        opts.Logger,
		errors:     make(Errors),
		touched:    make(Touched),
	}

	f.machine = fsm.NewFSM(
		string(StatusIdle),
		fsm.Events{
			{Name: eventSubmit, Src: []string{string(StatusIdle), string(StatusSuccess), string(StatusError)}, Dst: string(StatusSubmitting)},
			{Name: eventSucceed, Src: []string{string(StatusSubmitting)}, Dst: string(StatusSuccess)},
			{Name: eventFail, Src: []string{string(StatusSubmitting)}, Dst: string(StatusError)},
			{Name: eventReset, Src: []string{string(StatusSuccess), string(StatusError)}, Dst: string(StatusIdle)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				metrics.FormTransitionsTotal.WithLabelValues(e.Dst).Inc()
				f.log.Debugw("form status", "form", f.id, "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return f
}

// ID returns the identifier the Form was created with.
func (f *Form) ID() string { return f.id }

// -----------------------------------------------------------------------------
// Field events
// -----------------------------------------------------------------------------

// Change records a new value.  The error for field is recomputed only when
// the field is already touched.
func (f *Form) Change(field Field, value string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Snapshot{}, ErrClosed
	}
	if !f.fields.Set(field, value) {
		return f.snapshotLocked(), ErrUnknownField
	}
	if f.touched[field] {
		f.errors[field] = ValidateField(field, value)
	}
	return f.snapshotLocked(), nil
}

// Blur marks field touched, records value, and recomputes its error.
func (f *Form) Blur(field Field, value string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Snapshot{}, ErrClosed
	}
	if !f.fields.Set(field, value) {
		return f.snapshotLocked(), ErrUnknownField
	}
	f.touched[field] = true
	msg := ValidateField(field, value)
	f.errors[field] = msg
	if msg != "" {
		metrics.ValidationErrorsTotal.WithLabelValues(string(field)).Inc()
	}
	return f.snapshotLocked(), nil
}

// -----------------------------------------------------------------------------
// Submission
// -----------------------------------------------------------------------------

// Submit validates every field and, when all pass, sends the values.  The
// returned error is only ever ErrBusy or ErrClosed.  Validation and send
// failures are reported through the Snapshot.
func (f *Form) Submit(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()

	if f.closed {
		f.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if f.statusLocked() == StatusSubmitting {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		metrics.SubmissionsTotal.WithLabelValues("busy").Inc()
		return snap, ErrBusy
	}

	// A new attempt dismisses the previous outcome before validating.
	if f.machine.Can(eventReset) {
		f.cancelResetLocked()
		f.banner = ""
		_ = f.machine.Event(context.Background(), eventReset)
	}

	f.errors = ValidateAll(f.fields)
	for _, name := range AllFields {
		f.touched[name] = true
	}
	if f.errors.Any() {
		for name := range f.errors {
			metrics.ValidationErrorsTotal.WithLabelValues(string(name)).Inc()
		}
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		f.log.Debugw("form submit rejected", "form", f.id, "errors", len(f.errors))
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, nil
	}

	f.cancelResetLocked()
	f.banner = ""
	if err := f.machine.Event(context.Background(), eventSubmit); err != nil {
		// Unreachable with the event table above; keep the caller informed.
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, err
	}
	payload := f.fields
	f.mu.Unlock()

	start := time.Now()
	sendErr := f.sender.Send(ctx, payload)
	metrics.SendDuration.Observe(time.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()

	if sendErr != nil {
		f.banner = FailureMessage
		_ = f.machine.Event(context.Background(), eventFail)
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		f.log.Errorw("contact send failed", "form", f.id, "err", sendErr)
	} else {
		f.fields = Fields{}
		f.touched = make(Touched)
		f.errors = make(Errors)
		f.banner = SuccessMessage
		_ = f.machine.Event(context.Background(), eventSucceed)
		metrics.SubmissionsTotal.WithLabelValues("success").Inc()
		f.log.Infow("contact message sent", "form", f.id)
	}

	if !f.closed {
		f.scheduleResetLocked()
	}
	return f.snapshotLocked(), nil
}

// -----------------------------------------------------------------------------
// Reset timer
// -----------------------------------------------------------------------------

func (f *Form) scheduleResetLocked() {
	f.cancelResetLocked()
	gen := f.gen
	f.timer = f.clock.AfterFunc(f.resetDelay, func() { f.expire(gen) })
}

func (f *Form) cancelResetLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
}

// expire runs on the clock's goroutine.  A timer that lost the race with a
// newer schedule or a cancel sees a different generation and does nothing.
func (f *Form) expire(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || gen != f.gen {
		return
	}
	f.timer = nil
	if f.machine.Can(eventReset) {
		_ = f.machine.Event(context.Background(), eventReset)
		f.banner = ""
	}
}

// Close cancels any pending reset.  Further calls return ErrClosed.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.cancelResetLocked()
}

// -----------------------------------------------------------------------------
// Read access
// -----------------------------------------------------------------------------

// Status returns the current lifecycle stage.
func (f *Form) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked()
}

// Snapshot returns a copy of the visible state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) statusLocked() Status { return Status(f.machine.Current()) }

func (f *Form) snapshotLocked() Snapshot {
	s := Snapshot{
		Fields:    f.fields,
		Errors:    make(map[Field]string, len(f.errors)),
		Visible:   make(map[Field]string, len(f.errors)),
		Touched:   make(map[Field]bool, len(f.touched)),
		Status:    f.statusLocked(),
		Banner:    f.banner,
		CharCount: f.fields.CharCount(),
		CharLimit: MaxMessageLength,
	}
	for k, v := range f.touched {
		s.Touched[k] = v
	}
	for k, v := range f.errors {
		if v == "" {
			continue
		}
		s.Errors[k] = v
		if f.touched[k] {
			s.Visible[k] = v
		}
	}
	s.OverLimit = s.CharCount > MaxMessageLength
	s.CanSubmit = s.Status != StatusSubmitting
	return s
}

// Snapshot is a point-in-time copy of a Form, safe to render or encode.
type Snapshot struct {
	Fields    Fields           `json:"fields"`
	Errors    map[Field]string `json:"errors"`
	Visible   map[Field]string `json:"visible_errors"`
	Touched   map[Field]bool   `json:"touched"`
	Status    Status           `json:"status"`
	Banner    string           `json:"banner,omitempty"`
	CharCount int              `json:"char_count"`
	CharLimit int              `json:"char_limit"`
	OverLimit bool             `json:"over_limit"`
	CanSubmit bool             `json:"can_submit"`
}

// VisibleError returns the message to show next to field, if any.
func (s Snapshot) VisibleError(field Field) string { return s.Visible[field] }
