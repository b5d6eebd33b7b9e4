// internal/form/definition.go
//
// Folio – Contact form: YAML definition loader.
//
// Context
//   The presentation of the contact form (labels, placeholders, input types,
//   button text) and its post-submit actions are declared in YAML so the
//   site owner can reword the form or add a webhook without a rebuild.  The
//   validation rules are NOT configurable; they live in validate.go.
//
//   A default definition is embedded in the binary.  When form.definition is
//   set in config, that file replaces the default entirely.
//
// Workflow
//   •  ParseFormDef decodes YAML and enforces structural rules.
//   •  LoadFormDef reads a file, or falls back to the embedded default when
//      the path is empty.
//   •  FieldDef lookups go through FormDef.Field.
//
// Style
//   Comments follow the house guide: full sentences, two spaces after
//   periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed contact.yaml
var defaultDefinition []byte

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef is the parsed form definition.
type FormDef struct {
	ID      string      `yaml:"id"`      // Used in logs and the archive.
	Title   string      `yaml:"title"`   // Heading above the form, optional.
	Submit  string      `yaml:"submit"`  // Button label, optional.
	Fields  []FieldDef  `yaml:"fields"`  // One entry per contact field.
	Actions []ActionDef `yaml:"actions"` // Post-submit actions.  May be empty.
}

// FieldDef describes how one input is rendered.
type FieldDef struct {
	Name        Field  `yaml:"name"`        // name, email, or message.
	Label       string `yaml:"label"`       // Human-readable label.  Required.
	Type        string `yaml:"type"`        // text, email, or textarea.
	Placeholder string `yaml:"placeholder"` // Optional placeholder text.
}

// ActionDef configures one action run after a successful validation.
// Provider-specific keys are kept inline in Params.
type ActionDef struct {
	Type   string         `yaml:"type"`    // email, store, or webhook.
	Params map[string]any `yaml:",inline"` // Everything else.
}

// Field returns the definition for name.
func (fd *FormDef) Field(name Field) (FieldDef, bool) {
	for _, f := range fd.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// DefaultFormDef returns the embedded definition.
func DefaultFormDef() (*FormDef, error) {
	return ParseFormDef(defaultDefinition, "embedded contact.yaml")
}

// LoadFormDef reads path, or returns the embedded default for "".
func LoadFormDef(path string) (*FormDef, error) {
	if path == "" {
		return DefaultFormDef()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return ParseFormDef(raw, path)
}

// ParseFormDef decodes raw YAML.  src names the origin in error messages.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := validateFormDef(&fd, src); err != nil {
		return nil, err
	}
	if fd.Submit == "" {
		fd.Submit = "Send Message"
	}
	return &fd, nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

var (
	fieldTypes  = map[string]bool{"text": true, "email": true, "textarea": true}
	actionTypes = map[string]bool{ActionEmail: true, ActionStore: true, ActionWebhook: true}
)

// validateFormDef enforces the rules YAML tags cannot express.
func validateFormDef(fd *FormDef, src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}

	seen := make(map[Field]bool, len(fd.Fields))
	for _, f := range fd.Fields {
		if !f.Name.Known() {
			return fmt.Errorf("form %s: unknown field %q", src, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("form %s: duplicate field %q", src, f.Name)
		}
		seen[f.Name] = true
		if f.Label == "" {
			return fmt.Errorf("form %s: field %q missing 'label'", src, f.Name)
		}
		if !fieldTypes[f.Type] {
			return fmt.Errorf("form %s: field %q has unsupported type %q", src, f.Name, f.Type)
		}
	}
	for _, name := range AllFields {
		if !seen[name] {
			return fmt.Errorf("form %s: field %q is required", src, name)
		}
	}

	for _, ac := range fd.Actions {
		if !actionTypes[ac.Type] {
			return fmt.Errorf("form %s: unsupported action type %q", src, ac.Type)
		}
	}
	return nil
}
