// Package validation collects configuration problems and reports them as a
// single INVALID_CONFIGURATION error.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection.
//
// # Struct Tag Validation
//
//	type Document struct {
//	    Version int `yaml:"version" validate:"required,eq=1"`
//	}
//	err := validation.Validate(doc)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("aliases.mailer", target)
//	v.Custom(known(target), "aliases.mailer", "targets an unknown service")
//	err := v.Err()
package validation
