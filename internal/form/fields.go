// internal/form/fields.go
//
// Folio – Contact form: data model.
//
// Context
//   The contact form has exactly three user-editable text fields.  Field is
//   the typed name used as the key in Errors and Touched, and as the HTML
//   input name.  Fields holds the current values.
//
//------------------------------------------------------------------------------

package form

// Field names one input on the contact form.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldMessage Field = "message"
)

// AllFields lists the fields in display and validation order.
var AllFields = []Field{FieldName, FieldEmail, FieldMessage}

// Known reports whether f is one of the contact form fields.
func (f Field) Known() bool {
	switch f {
	case FieldName, FieldEmail, FieldMessage:
		return true
	}
	return false
}

// Fields holds the values the visitor has typed so far.
type Fields struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Get returns the value for f, or "" for an unknown field.
func (v Fields) Get(f Field) string {
	switch f {
	case FieldName:
		return v.Name
	case FieldEmail:
		return v.Email
	case FieldMessage:
		return v.Message
	}
	return ""
}

// Set stores value under f.  Unknown fields are ignored and reported false.
func (v *Fields) Set(f Field, value string) bool {
	switch f {
	case FieldName:
		v.Name = value
	case FieldEmail:
		v.Email = value
	case FieldMessage:
		v.Message = value
	default:
		return false
	}
	return true
}

// CharCount is the message length shown next to the textarea, in the same
// UTF-16 units the length rule uses.
func (v Fields) CharCount() int { return jsLength(v.Message) }

// Errors maps a field to its current error message.  A missing key or an
// empty string both mean valid.
type Errors map[Field]string

// Any reports whether at least one entry is non-empty.
func (e Errors) Any() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

// Touched records which fields the visitor has left at least once.
type Touched map[Field]bool
