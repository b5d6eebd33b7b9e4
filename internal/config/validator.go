// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Tag rules cover single fields.  Cross-field rules live in
// `validateConfig`, registered as a struct-level validation.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = func() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterStructValidation(validateConfig, Config{})
	return val
}()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}

// validateConfig enforces rules spanning sections.
func validateConfig(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)

	// A {password} placeholder needs a password to fill it.
	if strings.Contains(c.Database.DSN, "{password}") && c.Database.Password == "" {
		sl.ReportError(c.Database.Password, "Database.Password", "Password", "required_with_placeholder", "")
	}
	// Mail settings are all-or-nothing.
	if c.Mail.Host != "" && len(c.Mail.To) == 0 {
		sl.ReportError(c.Mail.To, "Mail.To", "To", "required_with_host", "")
	}
}
