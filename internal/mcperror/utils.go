// file: internal/mcperror/utils.go
package mcperror

import (
	"github.com/cockroachdb/errors"
)

// GetCategory returns the category of the first categorized error in the
// chain, or "" when err carries none.
func GetCategory(err error) Category {
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return ""
}

// IsTaxonomy reports whether err already belongs to the taxonomy and must be
// surfaced as-is rather than re-wrapped.
func IsTaxonomy(err error) bool {
	return GetCategory(err) != ""
}

// GetErrorCode maps an error to the JSON-RPC code used when it is reported as
// a protocol error.
func GetErrorCode(err error) int {
	switch GetCategory(err) {
	case CategoryValidation:
		return CodeInvalidParams
	case CategoryNotFound:
		var res *UnknownResourceError
		if errors.As(err, &res) {
			return CodeResourceNotFound
		}
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}

// ViolationsOf returns the violations carried by a ValidationError in err's
// chain, or nil.
func ViolationsOf(err error) []Violation {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Violations
	}
	return nil
}
