package validation

import (
	"regexp"
	"strings"
)

var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateBlueprintID validates a caller-supplied blueprint identity. The
// identity names directories on the shared store, so it must be a single
// safe path segment.
func ValidateBlueprintID(id string) []FieldError {
	var errs []FieldError

	id = strings.TrimSpace(id)
	switch {
	case id == "":
		errs = append(errs, FieldError{Field: "id", Message: "blueprint id is required"})
	case id == "." || id == "..":
		errs = append(errs, FieldError{Field: "id", Message: "blueprint id must not be a relative path segment"})
	case !idRegex.MatchString(id):
		errs = append(errs, FieldError{Field: "id", Message: "blueprint id must be alphanumeric with dots, hyphens or underscores, at most 128 characters"})
	}

	return errs
}
