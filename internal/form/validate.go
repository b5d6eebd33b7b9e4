// internal/form/validate.go
//
// Folio – Contact form: field validation.
//
// Context
//   ValidateField is the single source of truth for what a valid contact
//   submission looks like.  The state machine (machine.go) calls it on
//   blur, on change of a touched field, and for every field at submit time.
//   The JSON API exposes it directly so the browser can ask the server for
//   the same verdict it would get on submit.
//
// Workflow
//   •  Each field has an ordered rule list.  The first failing rule wins and
//      its message is returned verbatim; later rules are not evaluated.
//   •  An empty string means valid.  Unknown field names have no rules, so
//      they are always valid.
//   •  ValidateAll collects the non-empty messages for a whole Fields value.
//
// Notes
//   •  Lengths count UTF-16 code units, so a character outside the Basic
//      Multilingual Plane (most emoji) counts as two.  This matches what the
//      browser's counter shows.
//   •  Whitespace is the ECMAScript set: Unicode Zs, the ASCII controls
//      \t \n \v \f \r, U+2028, U+2029, and U+FEFF.  RE2's \s is
//      ASCII-only, so patterns spell the class out.
//   •  The letters-only and email patterns run against the raw value, the
//      required and minimum-length checks against the trimmed value.
//   •  Two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

// Length bounds shared by the validator, renderer, and snapshot.
const (
	MinNameLength    = 2
	MinMessageLength = 10
	MaxMessageLength = 500
)

// jsSpace is the body of a character class matching ECMAScript \s.
const jsSpace = `\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z` + jsSpace + `]+$`)
	emailPattern = regexp.MustCompile(`^[^` + jsSpace + `@]+@[^` + jsSpace + `@]+\.[^` + jsSpace + `@]+$`)
)

// rule is one ordered check.  ok reports whether value passes.
type rule struct {
	ok  func(value string) bool
	msg string
}

// rules maps each known field to its ordered checks.
var rules = map[Field][]rule{
	FieldName: {
		{notBlank, "Name is required"},
		{minTrimmed(MinNameLength), fmt.Sprintf("Name must be at least %d characters", MinNameLength)},
		{namePattern.MatchString, "Name can only contain letters"},
	},
	FieldEmail: {
		{notBlank, "Email is required"},
		{emailPattern.MatchString, "Please enter a valid email"},
	},
	FieldMessage: {
		{notBlank, "Message is required"},
		{minTrimmed(MinMessageLength), fmt.Sprintf("Message must be at least %d characters", MinMessageLength)},
		{maxRaw(MaxMessageLength), fmt.Sprintf("Message cannot exceed %d characters", MaxMessageLength)},
	},
}

// ValidateField returns the first failing rule's message for field, or the
// empty string when value is valid.  It has no side effects.
func ValidateField(field Field, value string) string {
	for _, r := range rules[field] {
		if !r.ok(value) {
			return r.msg
		}
	}
	return ""
}

// ValidateAll validates every field of f and returns only the failures.
// A nil or empty map means the form may be sent.
func ValidateAll(f Fields) Errors {
	errs := make(Errors)
	for _, name := range AllFields {
		if msg := ValidateField(name, f.Get(name)); msg != "" {
			errs[name] = msg
		}
	}
	return errs
}

// -----------------------------------------------------------------------------
// Rule helpers
// -----------------------------------------------------------------------------

func notBlank(s string) bool { return trimJS(s) != "" }

func minTrimmed(n int) func(string) bool {
	return func(s string) bool { return jsLength(trimJS(s)) >= n }
}

func maxRaw(n int) func(string) bool {
	return func(s string) bool { return jsLength(s) <= n }
}

// isJSSpace reports whether r is whitespace to ECMAScript.
func isJSSpace(r rune) bool {
	switch {
	case r >= '\t' && r <= '\r', r == ' ', r == 0xa0, r == 0x1680,
		r >= 0x2000 && r <= 0x200a, r == 0x2028, r == 0x2029,
		r == 0x202f, r == 0x205f, r == 0x3000, r == 0xfeff:
		return true
	}
	return false
}

// trimJS strips leading and trailing ECMAScript whitespace.
func trimJS(s string) string { return strings.TrimFunc(s, isJSSpace) }

// jsLength returns the length of s in UTF-16 code units.
func jsLength(s string) int { return len(utf16.Encode([]rune(s))) }
