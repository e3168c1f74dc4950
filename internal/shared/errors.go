package shared

import "errors"

var (
	// ErrUnauthenticated indicates missing or failed authentication. Bad
	// credentials and missing, malformed or expired tokens all map here so a
	// response never reveals which check failed.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated caller lacking a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a reference to a nonexistent record.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate unique name on create.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)
