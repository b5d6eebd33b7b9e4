// internal/form/renderer_test.go
//
// Unit-tests for RenderForm.

package form

import (
	"context"
	"strings"
	"testing"
)

func renderDefault(t *testing.T, snap Snapshot) string {
	t.Helper()
	fd, err := DefaultFormDef()
	if err != nil {
		t.Fatalf("DefaultFormDef: %v", err)
	}
	out, err := RenderForm(fd, snap, RenderOptions{CSRFToken: "tok<>"})
	if err != nil {
		t.Fatalf("RenderForm: %v", err)
	}
	return string(out)
}

func TestRenderForm_HidesUntouchedErrors(t *testing.T) {
	f := New(Options{Sender: okSender(new(int)), Clock: &fakeClock{}})
	_, _ = f.Change(FieldName, "J")   // failing but untouched
	_, _ = f.Blur(FieldEmail, "nope") // failing and touched

	out := renderDefault(t, f.Snapshot())
	if strings.Contains(out, "Name must be at least") {
		t.Error("untouched name error rendered")
	}
	if !strings.Contains(out, `<span class="error" id="err-email" aria-live="polite">Please enter a valid email</span>`) {
		t.Errorf("email error missing:\n%s", out)
	}
	if !strings.Contains(out, `value="J"`) {
		t.Error("typed value not re-rendered")
	}
	if !strings.Contains(out, `value="tok&lt;&gt;"`) {
		t.Error("csrf token not escaped")
	}
	if !strings.Contains(out, `name="render_ts"`) {
		t.Error("render_ts missing")
	}
	if !strings.Contains(out, `<button type="submit">Send Message</button>`) {
		t.Errorf("submit button missing:\n%s", out)
	}
}

func TestRenderForm_CounterAndBanner(t *testing.T) {
	f := New(Options{Sender: okSender(new(int)), Clock: &fakeClock{}})
	_, _ = f.Change(FieldMessage, strings.Repeat("x", 501))
	out := renderDefault(t, f.Snapshot())
	if !strings.Contains(out, `<span class="char-count over">501/500</span>`) {
		t.Errorf("over-limit counter missing:\n%s", out)
	}

	fillValid(t, f)
	_, _ = f.Submit(context.Background())
	out = renderDefault(t, f.Snapshot())
	if !strings.Contains(out, `<div class="form-banner success" role="status">`) {
		t.Errorf("success banner missing:\n%s", out)
	}
	if !strings.Contains(out, `<span class="char-count">0/500</span>`) {
		t.Errorf("counter not reset:\n%s", out)
	}
}

func TestRenderForm_DisabledWhileSubmitting(t *testing.T) {
	out := renderDefault(t, Snapshot{Status: StatusSubmitting, CharLimit: MaxMessageLength})
	if !strings.Contains(out, `disabled aria-busy="true">Sending...</button>`) {
		t.Errorf("button not disabled:\n%s", out)
	}
}

func TestRenderForm_EscapesValues(t *testing.T) {
	snap := Snapshot{Fields: Fields{Message: "</textarea><script>"}, CanSubmit: true}
	out := renderDefault(t, snap)
	if strings.Contains(out, "<script>") {
		t.Fatalf("unescaped value:\n%s", out)
	}
}
